package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"postreel/internal/model"
)

// Memory is an in-process backing for all three stores. It applies the
// same lifecycle rules as the Firestore implementation so tests exercise
// identical semantics. The Posts/Tasks/Videos views implement the store
// interfaces over the shared maps.
type Memory struct {
	mu     sync.Mutex
	posts  map[string]*model.Post
	tasks  map[string]*model.Task
	videos map[string]*model.Video
}

type MemoryPosts struct{ m *Memory }
type MemoryTasks struct{ m *Memory }
type MemoryVideos struct{ m *Memory }

func NewMemory() *Memory {
	return &Memory{
		posts:  make(map[string]*model.Post),
		tasks:  make(map[string]*model.Task),
		videos: make(map[string]*model.Video),
	}
}

func (m *Memory) Posts() *MemoryPosts   { return &MemoryPosts{m: m} }
func (m *Memory) Tasks() *MemoryTasks   { return &MemoryTasks{m: m} }
func (m *Memory) Videos() *MemoryVideos { return &MemoryVideos{m: m} }

// AddPost seeds a post. Intended for tests and local runs.
func (m *Memory) AddPost(post *model.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *post
	m.posts[post.PostID] = &clone
}

func (p *MemoryPosts) NextEligible(ctx context.Context) (*model.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	var candidates []*model.Post
	for _, post := range p.m.posts {
		if !post.VideoGenerating && len(post.Videos) == 0 {
			candidates = append(candidates, post)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	claimed := candidates[0]
	claimed.VideoGenerating = true
	claimed.UpdatedAt = time.Now()
	clone := *claimed
	return &clone, nil
}

func (p *MemoryPosts) ReleaseClaim(ctx context.Context, postID string) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	post, ok := p.m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	post.VideoGenerating = false
	post.UpdatedAt = time.Now()
	return nil
}

func (p *MemoryPosts) AppendVideo(ctx context.Context, postID, videoID string) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	post, ok := p.m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range post.Videos {
		if id == videoID {
			return nil
		}
	}
	post.Videos = append(post.Videos, videoID)
	post.UpdatedAt = time.Now()
	return nil
}

func (p *MemoryPosts) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	post, ok := p.m.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *post
	return &clone, nil
}

func (t *MemoryTasks) Create(ctx context.Context, task *model.Task) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	clone := *task
	t.m.tasks[task.ID] = &clone
	return nil
}

func (t *MemoryTasks) UpdateStatus(ctx context.Context, id string, status model.Status, result *model.TaskResult) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	task, ok := t.m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if !task.Status.CanTransition(status) {
		return ErrTerminal
	}
	task.Status = status
	task.UpdatedAt = time.Now()
	if result != nil {
		clone := *result
		task.Result = &clone
	}
	return nil
}

func (t *MemoryTasks) SaveConfig(ctx context.Context, id string, cfg model.TaskConfig) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	task, ok := t.m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.Config = cfg
	task.UpdatedAt = time.Now()
	return nil
}

func (t *MemoryTasks) MarkEmailSent(ctx context.Context, id string) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	task, ok := t.m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.EmailSent = true
	task.UpdatedAt = time.Now()
	return nil
}

func (t *MemoryTasks) ByPostID(ctx context.Context, postID string) ([]model.Task, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	var tasks []model.Task
	for _, task := range t.m.tasks {
		if task.Config.PostID == postID {
			tasks = append(tasks, *task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (t *MemoryTasks) GetByID(ctx context.Context, id string) (*model.Task, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	task, ok := t.m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *task
	return &clone, nil
}

func (v *MemoryVideos) Create(ctx context.Context, video *model.Video) (string, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if video.ID == "" {
		video.ID = "vid-" + uuid.NewString()
	}
	now := time.Now()
	video.CreatedAt = now
	video.UpdatedAt = now
	if video.Status == "" {
		video.Status = model.StatusPending
	}
	clone := *video
	v.m.videos[video.ID] = &clone
	return video.ID, nil
}

func (v *MemoryVideos) Update(ctx context.Context, id string, patch model.VideoPatch) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	video, ok := v.m.videos[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Status != "" {
		if !video.Status.CanTransition(patch.Status) {
			return ErrTerminal
		}
		video.Status = patch.Status
	}
	if patch.DownloadURL != "" {
		video.DownloadURL = patch.DownloadURL
	}
	if patch.Duration > 0 {
		video.Duration = patch.Duration
	}
	if patch.FileSize > 0 {
		video.FileSize = patch.FileSize
	}
	if patch.FilePath != "" {
		video.FilePath = patch.FilePath
	}
	video.UpdatedAt = time.Now()
	return nil
}

func (v *MemoryVideos) GetByID(ctx context.Context, id string) (*model.Video, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	video, ok := v.m.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *video
	return &clone, nil
}

func (v *MemoryVideos) ByPostID(ctx context.Context, postID string) ([]model.Video, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	var videos []model.Video
	for _, vid := range v.m.videos {
		if vid.PostID == postID {
			videos = append(videos, *vid)
		}
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.Before(videos[j].CreatedAt)
	})
	return videos, nil
}
