package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"postreel/internal/model"
)

func TestNextEligibleClaimsOldestFirst(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.AddPost(&model.Post{PostID: "newer", CreatedAt: now})
	m.AddPost(&model.Post{PostID: "older", CreatedAt: now.Add(-time.Hour)})

	post, err := m.Posts().NextEligible(context.Background())
	if err != nil {
		t.Fatalf("NextEligible() error = %v", err)
	}
	if post == nil {
		t.Fatal("NextEligible() = nil, want post")
	}
	if post.PostID != "older" {
		t.Errorf("claimed post = %q, want %q", post.PostID, "older")
	}
	if !post.VideoGenerating {
		t.Error("claimed post should have the claim flag set")
	}
}

func TestNextEligibleSkipsClaimedAndCompleted(t *testing.T) {
	m := NewMemory()
	m.AddPost(&model.Post{PostID: "claimed", VideoGenerating: true})
	m.AddPost(&model.Post{PostID: "done", Videos: []string{"vid-1"}})

	post, err := m.Posts().NextEligible(context.Background())
	if err != nil {
		t.Fatalf("NextEligible() error = %v", err)
	}
	if post != nil {
		t.Errorf("NextEligible() = %v, want nil", post.PostID)
	}
}

func TestNextEligibleDoesNotDoubleClaim(t *testing.T) {
	m := NewMemory()
	m.AddPost(&model.Post{PostID: "p1"})

	first, err := m.Posts().NextEligible(context.Background())
	if err != nil || first == nil {
		t.Fatalf("first claim: post=%v err=%v", first, err)
	}
	second, err := m.Posts().NextEligible(context.Background())
	if err != nil {
		t.Fatalf("second claim error = %v", err)
	}
	if second != nil {
		t.Errorf("second claim = %q, want nil", second.PostID)
	}
}

func TestReleaseClaimMakesPostEligibleAgain(t *testing.T) {
	m := NewMemory()
	m.AddPost(&model.Post{PostID: "p1"})
	ctx := context.Background()

	if _, err := m.Posts().NextEligible(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := m.Posts().ReleaseClaim(ctx, "p1"); err != nil {
		t.Fatalf("ReleaseClaim() error = %v", err)
	}

	post, err := m.Posts().NextEligible(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if post == nil || post.PostID != "p1" {
		t.Errorf("reclaim = %v, want p1", post)
	}
}

func TestAppendVideoIsIdempotent(t *testing.T) {
	m := NewMemory()
	m.AddPost(&model.Post{PostID: "p1"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.Posts().AppendVideo(ctx, "p1", "vid-1"); err != nil {
			t.Fatalf("AppendVideo() error = %v", err)
		}
	}
	if err := m.Posts().AppendVideo(ctx, "p1", "vid-2"); err != nil {
		t.Fatalf("AppendVideo() error = %v", err)
	}

	post, err := m.Posts().GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(post.Videos) != 2 {
		t.Errorf("videos = %v, want 2 distinct ids", post.Videos)
	}
}

func TestTaskUpdateStatusRejectsTerminal(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	task := &model.Task{Type: model.TaskTypeVideoGeneration}
	if err := m.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Tasks().UpdateStatus(ctx, task.ID, model.StatusProcessing, nil); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if err := m.Tasks().UpdateStatus(ctx, task.ID, model.StatusFailed, &model.TaskResult{Error: "boom"}); err != nil {
		t.Fatalf("to failed: %v", err)
	}

	err := m.Tasks().UpdateStatus(ctx, task.ID, model.StatusCompleted, nil)
	if !errors.Is(err, ErrTerminal) {
		t.Errorf("update after failure = %v, want ErrTerminal", err)
	}

	got, err := m.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Result == nil || got.Result.Error != "boom" {
		t.Errorf("result = %v, want error preserved", got.Result)
	}
}

func TestTaskSaveConfig(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	task := &model.Task{Type: model.TaskTypeScriptedVideoGeneration}
	if err := m.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cfg := model.TaskConfig{
		Script:    "a narration",
		Images:    []model.Image{{URL: "https://img.example.com/1.jpg"}},
		AudioFile: "narration.mp3",
		Duration:  42,
		VideoFile: "video_x.mp4",
		Captions:  []model.CaptionCue{{Text: "A narration", Start: 0, End: 2}},
		PostID:    "p1",
		Language:  "en-US",
	}
	if err := m.Tasks().SaveConfig(ctx, task.ID, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	got, err := m.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Config.Script != "a narration" || got.Config.Duration != 42 {
		t.Errorf("config = %+v", got.Config)
	}
	if len(got.Config.Images) != 1 || len(got.Config.Captions) != 1 {
		t.Errorf("images = %d captions = %d, want 1 each", len(got.Config.Images), len(got.Config.Captions))
	}

	if err := m.Tasks().SaveConfig(ctx, "missing", cfg); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveConfig(missing) = %v, want ErrNotFound", err)
	}
}

func TestVideoUpdateAllowsReentrantProcessing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Videos().Create(ctx, &model.Video{PostID: "p1", Type: model.VideoTypeScrolling})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Videos().Update(ctx, id, model.VideoPatch{Status: model.StatusProcessing}); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if err := m.Videos().Update(ctx, id, model.VideoPatch{Status: model.StatusProcessing, Duration: 12.5}); err != nil {
		t.Fatalf("re-entrant processing: %v", err)
	}
	if err := m.Videos().Update(ctx, id, model.VideoPatch{Status: model.StatusCompleted, DownloadURL: "https://cdn.example.com/v.mp4"}); err != nil {
		t.Fatalf("to completed: %v", err)
	}

	err = m.Videos().Update(ctx, id, model.VideoPatch{Status: model.StatusFailed})
	if !errors.Is(err, ErrTerminal) {
		t.Errorf("update after completion = %v, want ErrTerminal", err)
	}

	video, err := m.Videos().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if video.Duration != 12.5 {
		t.Errorf("duration = %v, want 12.5", video.Duration)
	}
	if video.DownloadURL == "" {
		t.Error("download url not persisted")
	}
}

func TestStoresReturnNotFound(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Posts().GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("posts GetByID = %v, want ErrNotFound", err)
	}
	if err := m.Posts().AppendVideo(ctx, "missing", "vid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendVideo = %v, want ErrNotFound", err)
	}
	if err := m.Tasks().UpdateStatus(ctx, "missing", model.StatusProcessing, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("tasks UpdateStatus = %v, want ErrNotFound", err)
	}
	if err := m.Videos().Update(ctx, "missing", model.VideoPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("videos Update = %v, want ErrNotFound", err)
	}
}
