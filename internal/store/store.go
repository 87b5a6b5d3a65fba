// Package store persists posts, tasks and video records. The interfaces are
// the seams the orchestrator depends on; Firestore backs production and the
// memory implementation backs tests and offline runs.
package store

import (
	"context"
	"errors"

	"postreel/internal/model"
)

// ErrTerminal is returned when an update targets a record already in a
// terminal state.
var ErrTerminal = errors.New("record is in a terminal state")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// PostStore claims and updates posts on behalf of the pipeline.
type PostStore interface {
	// NextEligible atomically claims the next post needing a video and
	// returns it, or nil when no post is available.
	NextEligible(ctx context.Context) (*model.Post, error)
	// ReleaseClaim clears the claim flag so a failed post can be retried.
	ReleaseClaim(ctx context.Context, postID string) error
	// AppendVideo adds a video id to the post's video list. Appending an id
	// already present is a no-op.
	AppendVideo(ctx context.Context, postID, videoID string) error
	GetByID(ctx context.Context, postID string) (*model.Post, error)
}

// TaskStore persists pipeline run records.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	UpdateStatus(ctx context.Context, id string, status model.Status, result *model.TaskResult) error
	// SaveConfig records the materials a run actually used (script,
	// images, audio reference, caption cues), so a video can be audited
	// or regenerated from its task record.
	SaveConfig(ctx context.Context, id string, cfg model.TaskConfig) error
	MarkEmailSent(ctx context.Context, id string) error
	ByPostID(ctx context.Context, postID string) ([]model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
}

// VideoStore persists video artifact records.
type VideoStore interface {
	Create(ctx context.Context, video *model.Video) (string, error)
	Update(ctx context.Context, id string, patch model.VideoPatch) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	ByPostID(ctx context.Context, postID string) ([]model.Video, error)
}
