package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"postreel/internal/model"
	"postreel/internal/notify"
	"postreel/internal/store"
)

// Worker claims eligible posts and drives them through the pipeline,
// sending a completion notification per finished task.
type Worker struct {
	service   *Service
	posts     store.PostStore
	tasks     store.TaskStore
	mailer    notify.Mailer
	recipient string
	videoType model.VideoType
	logger    *slog.Logger
}

type WorkerOptions struct {
	Service   *Service
	Posts     store.PostStore
	Tasks     store.TaskStore
	Mailer    notify.Mailer
	Recipient string
	VideoType model.VideoType
	Logger    *slog.Logger
}

func NewWorker(opts WorkerOptions) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	videoType := opts.VideoType
	if videoType == "" {
		videoType = model.VideoTypeScrolling
	}
	return &Worker{
		service:   opts.Service,
		posts:     opts.Posts,
		tasks:     opts.Tasks,
		mailer:    opts.Mailer,
		recipient: opts.Recipient,
		videoType: videoType,
		logger:    logger,
	}
}

// WithVideoType switches the generation mode for subsequently processed
// posts.
func (w *Worker) WithVideoType(t model.VideoType) *Worker {
	w.videoType = t
	return w
}

// ProcessNext claims one eligible post and generates its video. It returns
// false when no post was available. A failed run releases the claim so the
// post can be retried later.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	post, err := w.posts.NextEligible(ctx)
	if err != nil {
		return false, fmt.Errorf("claim post: %w", err)
	}
	if post == nil {
		return false, nil
	}

	w.logger.Info("claimed post", "postId", post.PostID, "title", post.Title)

	resp := w.service.GenerateVideoForPost(ctx, post, w.videoType, "")
	if !resp.Success {
		if err := w.posts.ReleaseClaim(ctx, post.PostID); err != nil {
			w.logger.Error("could not release claim after failure",
				"postId", post.PostID, "error", err)
		}
		return true, fmt.Errorf("generate video for post %s: %s", post.PostID, resp.Error)
	}

	w.notifyCompletion(ctx, resp)
	return true, nil
}

// notifyCompletion emails the finished video link and flips the task's
// EmailSent flag. Delivery trouble is logged, never escalated: the video
// exists whether or not the mail got through.
func (w *Worker) notifyCompletion(ctx context.Context, resp *Response) {
	if w.mailer == nil || w.recipient == "" {
		return
	}

	task, err := w.tasks.GetByID(ctx, resp.TaskID)
	if err != nil {
		w.logger.Error("could not load task for notification", "taskId", resp.TaskID, "error", err)
		return
	}
	if task.EmailSent {
		return
	}

	if err := w.mailer.SendVideoCompletion(ctx, w.recipient, resp.VideoURL, resp.PostID); err != nil {
		w.logger.Error("completion email failed", "taskId", resp.TaskID, "error", err)
		return
	}
	if err := w.tasks.MarkEmailSent(ctx, resp.TaskID); err != nil {
		w.logger.Error("could not mark email sent", "taskId", resp.TaskID, "error", err)
	}
}

// Run polls for eligible posts until the context is cancelled.
func (w *Worker) Run(ctx context.Context, pollInterval time.Duration) error {
	w.logger.Info("worker started", "pollInterval", pollInterval)
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopping")
			return ctx.Err()
		}

		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error("processing failed", "error", err)
		}
		if processed {
			// Look for more work immediately after finishing a post.
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
