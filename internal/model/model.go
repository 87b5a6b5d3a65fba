// Package model holds the persisted records shared across the pipeline:
// posts, generation tasks, video artifacts and caption cues.
package model

import "time"

// Status is the lifecycle state shared by Task and Video records.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further status transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Re-entrant processing updates are allowed for metadata patches.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	}
	return false
}

// VideoType selects the generation mode for a video.
type VideoType string

const (
	VideoTypeScrolling VideoType = "scrolling"
	VideoTypeScripted  VideoType = "scripted"
)

// TaskType identifies the kind of pipeline run a task records.
type TaskType string

const (
	TaskTypeVideoGeneration         TaskType = "video-generation"
	TaskTypeScriptedVideoGeneration TaskType = "scripted-video-generation"
)

// Post is a content unit owned by the blog subsystem. The pipeline only
// reads its content and appends video references.
type Post struct {
	ID              string    `firestore:"id"`
	PostID          string    `firestore:"postId"`
	URL             string    `firestore:"URL"`
	Content         string    `firestore:"content"`
	Title           string    `firestore:"title,omitempty"`
	Excerpt         string    `firestore:"excerpt,omitempty"`
	Slug            string    `firestore:"slug,omitempty"`
	Tags            []string  `firestore:"tags,omitempty"`
	Videos          []string  `firestore:"videos"`
	Status          string    `firestore:"status,omitempty"`
	VideoGenerating bool      `firestore:"videoGenerating"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

// ArticleURL returns the canonical URL for the post, falling back to a
// path built from the slug when no explicit URL is stored.
func (p *Post) ArticleURL(baseURL string) string {
	if p.URL != "" {
		return p.URL
	}
	slug := p.Slug
	if slug == "" {
		slug = p.PostID
	}
	return baseURL + "/posts/" + slug
}

// Image describes a visual asset resolved for a scripted video.
type Image struct {
	URL    string `firestore:"url" json:"url"`
	Thumb  string `firestore:"thumbUrl,omitempty" json:"thumbUrl,omitempty"`
	Title  string `firestore:"title" json:"title"`
	Source string `firestore:"source" json:"source"`
}

// CaptionCue is a timed text fragment for on-screen overlay. Start and End
// are seconds relative to the narration audio track.
type CaptionCue struct {
	Text  string  `firestore:"text" json:"text"`
	Start float64 `firestore:"start" json:"start"`
	End   float64 `firestore:"end" json:"end"`
}

// TaskConfig carries the mode-specific parameters of one pipeline run.
type TaskConfig struct {
	Script     string       `firestore:"script,omitempty"`
	Images     []Image      `firestore:"images,omitempty"`
	ArticleURL string       `firestore:"articleUrl,omitempty"`
	AudioFile  string       `firestore:"audioFile"`
	Duration   float64      `firestore:"durationInSeconds"`
	VideoFile  string       `firestore:"videoFile,omitempty"`
	Captions   []CaptionCue `firestore:"captions,omitempty"`
	PostID     string       `firestore:"postId"`
	Language   string       `firestore:"language,omitempty"`
}

// TaskResult records the outcome of a completed or failed task.
type TaskResult struct {
	VideoURL string `firestore:"videoUrl,omitempty"`
	Error    string `firestore:"error,omitempty"`
}

// Task is a persisted record of one pipeline execution attempt.
type Task struct {
	ID        string      `firestore:"id"`
	Type      TaskType    `firestore:"type"`
	Status    Status      `firestore:"status"`
	Config    TaskConfig  `firestore:"config"`
	Result    *TaskResult `firestore:"result,omitempty"`
	EmailSent bool        `firestore:"emailSent"`
	CreatedAt time.Time   `firestore:"createdAt"`
	UpdatedAt time.Time   `firestore:"updatedAt"`
}

// Video is a persisted record describing a generated artifact.
type Video struct {
	ID          string    `firestore:"id"`
	PostID      string    `firestore:"postId"`
	Type        VideoType `firestore:"type"`
	Language    string    `firestore:"language,omitempty"`
	Status      Status    `firestore:"status"`
	AudioFile   string    `firestore:"audioFile,omitempty"`
	DownloadURL string    `firestore:"downloadUrl,omitempty"`
	Duration    float64   `firestore:"duration,omitempty"`
	FileSize    int64     `firestore:"fileSize,omitempty"`
	FilePath    string    `firestore:"filePath,omitempty"`
	FileName    string    `firestore:"fileName,omitempty"`
	Format      string    `firestore:"format,omitempty"`
	Resolution  string    `firestore:"resolution,omitempty"`
	TaskID      string    `firestore:"taskId,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// VideoPatch is a partial update applied to a video record as the
// pipeline progresses. Nil fields are left untouched.
type VideoPatch struct {
	Status      Status
	DownloadURL string
	Duration    float64
	FileSize    int64
	FilePath    string
}
