package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"postreel/internal/model"
)

const (
	postsCollection  = "posts"
	tasksCollection  = "tasks"
	videosCollection = "videos"
)

// Firestore backs the post, task and video stores with one shared client.
type Firestore struct {
	client *firestore.Client
}

type FirestorePosts struct{ f *Firestore }
type FirestoreTasks struct{ f *Firestore }
type FirestoreVideos struct{ f *Firestore }

func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) Close() error { return f.client.Close() }

func (f *Firestore) Posts() *FirestorePosts   { return &FirestorePosts{f: f} }
func (f *Firestore) Tasks() *FirestoreTasks   { return &FirestoreTasks{f: f} }
func (f *Firestore) Videos() *FirestoreVideos { return &FirestoreVideos{f: f} }

// NextEligible claims the oldest post without videos inside a transaction:
// the claim flag is checked and set atomically so two concurrent workers
// never pick up the same post.
func (p *FirestorePosts) NextEligible(ctx context.Context) (*model.Post, error) {
	var claimed *model.Post

	err := p.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		query := p.f.client.Collection(postsCollection).
			Where("videoGenerating", "==", false).
			Where("videos", "==", []string{}).
			OrderBy("createdAt", firestore.Asc).
			Limit(1)

		docs := tx.Documents(query)
		doc, err := docs.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query posts: %w", err)
		}

		var post model.Post
		if err := doc.DataTo(&post); err != nil {
			return fmt.Errorf("decode post: %w", err)
		}
		post.ID = doc.Ref.ID

		if err := tx.Update(doc.Ref, []firestore.Update{
			{Path: "videoGenerating", Value: true},
			{Path: "updatedAt", Value: time.Now()},
		}); err != nil {
			return fmt.Errorf("claim post: %w", err)
		}

		claimed = &post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (p *FirestorePosts) ReleaseClaim(ctx context.Context, postID string) error {
	_, err := p.f.client.Collection(postsCollection).Doc(postID).Update(ctx, []firestore.Update{
		{Path: "videoGenerating", Value: false},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("release claim for post %s: %w", postID, err)
	}
	return nil
}

// AppendVideo relies on ArrayUnion, so re-appending an id already present
// leaves the list unchanged.
func (p *FirestorePosts) AppendVideo(ctx context.Context, postID, videoID string) error {
	ref := p.f.client.Collection(postsCollection).Doc(postID)
	if _, err := ref.Get(ctx); err != nil {
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "videos", Value: firestore.ArrayUnion(videoID)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("append video %s to post %s: %w", videoID, postID, err)
	}
	return nil
}

func (p *FirestorePosts) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	doc, err := p.f.client.Collection(postsCollection).Doc(postID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	var post model.Post
	if err := doc.DataTo(&post); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	post.ID = doc.Ref.ID
	return &post, nil
}

func (t *FirestoreTasks) Create(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = t.f.client.Collection(tasksCollection).NewDoc().ID
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	_, err := t.f.client.Collection(tasksCollection).Doc(task.ID).Set(ctx, task)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (t *FirestoreTasks) UpdateStatus(ctx context.Context, id string, status model.Status, result *model.TaskResult) error {
	ref := t.f.client.Collection(tasksCollection).Doc(id)

	return t.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		var task model.Task
		if err := doc.DataTo(&task); err != nil {
			return fmt.Errorf("decode task: %w", err)
		}
		if !task.Status.CanTransition(status) {
			return fmt.Errorf("task %s %s -> %s: %w", id, task.Status, status, ErrTerminal)
		}

		updates := []firestore.Update{
			{Path: "status", Value: status},
			{Path: "updatedAt", Value: time.Now()},
		}
		if result != nil {
			updates = append(updates, firestore.Update{Path: "result", Value: result})
		}
		return tx.Update(ref, updates)
	})
}

func (t *FirestoreTasks) SaveConfig(ctx context.Context, id string, cfg model.TaskConfig) error {
	_, err := t.f.client.Collection(tasksCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "config", Value: cfg},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("save task %s config: %w", id, err)
	}
	return nil
}

func (t *FirestoreTasks) MarkEmailSent(ctx context.Context, id string) error {
	_, err := t.f.client.Collection(tasksCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "emailSent", Value: true},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("mark task %s email sent: %w", id, err)
	}
	return nil
}

func (t *FirestoreTasks) ByPostID(ctx context.Context, postID string) ([]model.Task, error) {
	iter := t.f.client.Collection(tasksCollection).
		Where("config.postId", "==", postID).
		Documents(ctx)
	defer iter.Stop()

	var tasks []model.Task
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list tasks for post %s: %w", postID, err)
		}
		var task model.Task
		if err := doc.DataTo(&task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (t *FirestoreTasks) GetByID(ctx context.Context, id string) (*model.Task, error) {
	doc, err := t.f.client.Collection(tasksCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	var task model.Task
	if err := doc.DataTo(&task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

func (v *FirestoreVideos) Create(ctx context.Context, video *model.Video) (string, error) {
	if video.ID == "" {
		video.ID = "vid-" + v.f.client.Collection(videosCollection).NewDoc().ID
	}
	now := time.Now()
	video.CreatedAt = now
	video.UpdatedAt = now
	if video.Status == "" {
		video.Status = model.StatusPending
	}
	_, err := v.f.client.Collection(videosCollection).Doc(video.ID).Set(ctx, video)
	if err != nil {
		return "", fmt.Errorf("create video record: %w", err)
	}
	return video.ID, nil
}

func (v *FirestoreVideos) Update(ctx context.Context, id string, patch model.VideoPatch) error {
	ref := v.f.client.Collection(videosCollection).Doc(id)

	return v.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		var video model.Video
		if err := doc.DataTo(&video); err != nil {
			return fmt.Errorf("decode video: %w", err)
		}

		updates := []firestore.Update{{Path: "updatedAt", Value: time.Now()}}
		if patch.Status != "" {
			if !video.Status.CanTransition(patch.Status) {
				return fmt.Errorf("video %s %s -> %s: %w", id, video.Status, patch.Status, ErrTerminal)
			}
			updates = append(updates, firestore.Update{Path: "status", Value: patch.Status})
		}
		if patch.DownloadURL != "" {
			updates = append(updates, firestore.Update{Path: "downloadUrl", Value: patch.DownloadURL})
		}
		if patch.Duration > 0 {
			updates = append(updates, firestore.Update{Path: "duration", Value: patch.Duration})
		}
		if patch.FileSize > 0 {
			updates = append(updates, firestore.Update{Path: "fileSize", Value: patch.FileSize})
		}
		if patch.FilePath != "" {
			updates = append(updates, firestore.Update{Path: "filePath", Value: patch.FilePath})
		}
		return tx.Update(ref, updates)
	})
}

func (v *FirestoreVideos) GetByID(ctx context.Context, id string) (*model.Video, error) {
	doc, err := v.f.client.Collection(videosCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	var video model.Video
	if err := doc.DataTo(&video); err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	return &video, nil
}

func (v *FirestoreVideos) ByPostID(ctx context.Context, postID string) ([]model.Video, error) {
	iter := v.f.client.Collection(videosCollection).
		Where("postId", "==", postID).
		Documents(ctx)
	defer iter.Stop()

	var videos []model.Video
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list videos for post %s: %w", postID, err)
		}
		var video model.Video
		if err := doc.DataTo(&video); err != nil {
			return nil, fmt.Errorf("decode video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, nil
}
