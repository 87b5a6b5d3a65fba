// Package app orchestrates the video generation pipeline: it claims posts,
// drives the capture/synthesis/composition stages and keeps the task and
// video records honest about what happened.
package app

import (
	"context"
	"log/slog"

	"postreel/internal/model"
	"postreel/internal/script"
	"postreel/internal/speech"
	"postreel/internal/storage"
	"postreel/internal/store"
	"postreel/pkg/config"
)

// Capturer records a scrolling page capture into frame files.
type Capturer interface {
	CaptureScroll(ctx context.Context, url string, durationSeconds float64, dir string) ([]string, error)
}

// ScriptGenerator produces a narration script and image queries for a post.
type ScriptGenerator interface {
	Generate(ctx context.Context, title, content, language string) (*script.Result, error)
}

// ImageProvider resolves image queries to assets and downloads them.
type ImageProvider interface {
	Resolve(ctx context.Context, queries []string) []model.Image
	Download(ctx context.Context, imageURL string) ([]byte, error)
}

// Composer renders video tracks from frames or stills.
type Composer interface {
	FramesToVideo(ctx context.Context, framesDir string, fps int, outputPath string) error
	ImageSlideshow(ctx context.Context, imagePaths []string, duration float64, captions []model.CaptionCue, tempDir, outputPath string) error
	TextOnlyVideo(ctx context.Context, scriptText string, duration float64, captions []model.CaptionCue, outputPath string) error
}

// Muxer joins audio and video and probes durations.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Service wires the pipeline stages together.
type Service struct {
	cfg       *config.Config
	posts     store.PostStore
	tasks     store.TaskStore
	videos    store.VideoStore
	synth     speech.Synthesizer
	capturer  Capturer
	generator ScriptGenerator
	images    ImageProvider
	composer  Composer
	muxer     Muxer
	publisher storage.Publisher
	logger    *slog.Logger

	// heartbeat, when set, is invoked periodically while a run is in
	// flight. Deployments on scale-to-zero runtimes use it to signal
	// liveness.
	heartbeat func(taskID string)
}

type ServiceOptions struct {
	Config    *config.Config
	Posts     store.PostStore
	Tasks     store.TaskStore
	Videos    store.VideoStore
	Synth     speech.Synthesizer
	Capturer  Capturer
	Generator ScriptGenerator
	Images    ImageProvider
	Composer  Composer
	Muxer     Muxer
	Publisher storage.Publisher
	Logger    *slog.Logger
	Heartbeat func(taskID string)
}

func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       opts.Config,
		posts:     opts.Posts,
		tasks:     opts.Tasks,
		videos:    opts.Videos,
		synth:     opts.Synth,
		capturer:  opts.Capturer,
		generator: opts.Generator,
		images:    opts.Images,
		composer:  opts.Composer,
		muxer:     opts.Muxer,
		publisher: opts.Publisher,
		logger:    logger,
		heartbeat: opts.Heartbeat,
	}
}
