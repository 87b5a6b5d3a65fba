package app

import (
	"context"
	"fmt"
	"log/slog"

	"postreel/internal/capture"
	"postreel/internal/images"
	"postreel/internal/llm"
	"postreel/internal/notify"
	"postreel/internal/script"
	"postreel/internal/speech"
	"postreel/internal/storage"
	"postreel/internal/store"
	"postreel/internal/video"
	"postreel/pkg/config"
	"postreel/pkg/prompts"
)

// Runtime bundles the built service with its store handles and the
// resources that need closing on shutdown.
type Runtime struct {
	Service *Service
	Worker  *Worker
	Posts   store.PostStore
	Tasks   store.TaskStore
	Videos  store.VideoStore

	closers []func() error
}

func (r *Runtime) Close() error {
	var firstErr error
	for _, fn := range r.closers {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildRuntime wires the production collaborators from configuration.
func BuildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}

	if err := config.BackfillSecrets(ctx, cfg); err != nil {
		logger.Warn("secret backfill unavailable", "error", err)
	}

	switch cfg.Store.Backend {
	case "memory":
		mem := store.NewMemory()
		rt.Posts = mem.Posts()
		rt.Tasks = mem.Tasks()
		rt.Videos = mem.Videos()
	default:
		fs, err := store.NewFirestore(ctx, cfg.GCPProjectID, cfg.GCPCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("build firestore: %w", err)
		}
		rt.closers = append(rt.closers, fs.Close)
		rt.Posts = fs.Posts()
		rt.Tasks = fs.Tasks()
		rt.Videos = fs.Videos()
	}

	synth, err := speech.NewGoogle(ctx, speech.GoogleOptions{
		CredentialsFile: cfg.GCPCredentialsFile,
		UseStudio:       cfg.Speech.VoiceStyle == "studio" || cfg.Speech.VoiceStyle == "conversational",
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build synthesizer: %w", err)
	}
	rt.closers = append(rt.closers, synth.Close)

	groqClient, err := llm.NewGroqClient(cfg.GroqAPIKey, cfg.Groq.Model)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	promptSet, err := prompts.Load()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	var searcher images.Searcher
	if cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchEngineID != "" {
		searcher = images.NewSearchClient(cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID)
	} else {
		logger.Warn("image search not configured, scripted videos will use placeholders")
	}

	var publisher storage.Publisher
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCPCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("build gcs publisher: %w", err)
		}
		rt.closers = append(rt.closers, gcs.Close)
		publisher = gcs
	} else {
		logger.Warn("no bucket configured, publishing to local output dir")
		publisher = storage.NewLocal(cfg.Video.OutputDir)
	}

	rt.Service = NewService(ServiceOptions{
		Config:    cfg,
		Posts:     rt.Posts,
		Tasks:     rt.Tasks,
		Videos:    rt.Videos,
		Synth:     synth,
		Capturer:  capture.New(capture.Options{ExecPath: cfg.Capture.BrowserPath, Logger: logger}),
		Generator: script.NewGenerator(groqClient, promptSet, logger),
		Images:    images.NewProvider(searcher, logger),
		Composer:  video.NewComposer(logger),
		Muxer:     video.NewMuxer(),
		Publisher: publisher,
		Logger:    logger,
		Heartbeat: func(taskID string) {
			logger.Debug("still processing", "taskId", taskID)
		},
	})

	var mailer notify.Mailer
	if cfg.Notify.Endpoint != "" {
		mailer = notify.NewEmailClient(cfg.Notify.Endpoint, logger)
	}
	rt.Worker = NewWorker(WorkerOptions{
		Service:   rt.Service,
		Posts:     rt.Posts,
		Tasks:     rt.Tasks,
		Mailer:    mailer,
		Recipient: cfg.Notify.Recipient,
		Logger:    logger,
	})

	return rt, nil
}
