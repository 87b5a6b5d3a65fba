package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"postreel/internal/model"
	"postreel/internal/script"
	"postreel/internal/speech"
	"postreel/internal/store"
	"postreel/pkg/config"
)

type fakeSynth struct {
	err error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, language string) (*speech.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	// 10 seconds at the nominal bitrate.
	return &speech.Result{
		Audio:     make([]byte, 160000),
		Duration:  10,
		VoiceName: "en-US-Neural2-F",
		Hash:      "abc",
	}, nil
}

type fakeCapturer struct {
	err    error
	frames int
}

func (f *fakeCapturer) CaptureScroll(ctx context.Context, url string, durationSeconds float64, dir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	framesDir := filepath.Join(dir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, err
	}
	count := f.frames
	if count == 0 {
		count = 5
	}
	var paths []string
	for i := 0; i < count; i++ {
		path := filepath.Join(framesDir, fmt.Sprintf("frame_%05d.jpg", i))
		if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

type fakeGenerator struct {
	err    error
	result *script.Result
}

func (f *fakeGenerator) Generate(ctx context.Context, title, content, language string) (*script.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &script.Result{
		Script:       "A short narration about the article.",
		ImageQueries: []string{"q1", "q2", "q3", "q4", "q5"},
	}, nil
}

type fakeImages struct {
	downloadErr error
	failURLs    map[string]bool
}

func (f *fakeImages) Resolve(ctx context.Context, queries []string) []model.Image {
	images := make([]model.Image, len(queries))
	for i, q := range queries {
		images[i] = model.Image{
			URL:    "https://img.example.com/" + q,
			Thumb:  "https://thumb.example.com/" + q,
			Title:  q,
			Source: "test",
		}
	}
	return images
}

func (f *fakeImages) Download(ctx context.Context, imageURL string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	if f.failURLs[imageURL] {
		return nil, errors.New("host rejected request")
	}
	return []byte{0xFF, 0xD8, 0xFF, 0x00}, nil
}

type fakeComposer struct {
	framesErr    error
	slideshowErr error
	textOnly     bool
}

func (f *fakeComposer) FramesToVideo(ctx context.Context, framesDir string, fps int, outputPath string) error {
	if f.framesErr != nil {
		return f.framesErr
	}
	return os.WriteFile(outputPath, []byte("frames video"), 0o644)
}

func (f *fakeComposer) ImageSlideshow(ctx context.Context, imagePaths []string, duration float64, cues []model.CaptionCue, tempDir, outputPath string) error {
	if f.slideshowErr != nil {
		return f.slideshowErr
	}
	return os.WriteFile(outputPath, []byte("slideshow video"), 0o644)
}

func (f *fakeComposer) TextOnlyVideo(ctx context.Context, scriptText string, duration float64, cues []model.CaptionCue, outputPath string) error {
	f.textOnly = true
	return os.WriteFile(outputPath, []byte("text only video"), 0o644)
}

type fakeMuxer struct {
	muxErr error
}

func (f *fakeMuxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	if f.muxErr != nil {
		return f.muxErr
	}
	return os.WriteFile(outputPath, []byte("final video"), 0o644)
}

func (f *fakeMuxer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return 10, nil
}

type fakePublisher struct {
	err  error
	urls []string
}

func (f *fakePublisher) Upload(ctx context.Context, data []byte, name, category string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url := "https://cdn.example.com/" + category + "/" + name
	f.urls = append(f.urls, url)
	return url, nil
}

type fixture struct {
	service   *Service
	mem       *store.Memory
	synth     *fakeSynth
	capturer  *fakeCapturer
	generator *fakeGenerator
	images    *fakeImages
	composer  *fakeComposer
	muxer     *fakeMuxer
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Video.TempDir = t.TempDir()
	cfg.Video.Resolution = "1080x1920"
	cfg.Speech.Language = "en-US"
	cfg.Blog.BaseURL = "https://blog.example.com"

	f := &fixture{
		mem:       store.NewMemory(),
		synth:     &fakeSynth{},
		capturer:  &fakeCapturer{},
		generator: &fakeGenerator{},
		images:    &fakeImages{},
		composer:  &fakeComposer{},
		muxer:     &fakeMuxer{},
		publisher: &fakePublisher{},
	}
	f.service = NewService(ServiceOptions{
		Config:    cfg,
		Posts:     f.mem.Posts(),
		Tasks:     f.mem.Tasks(),
		Videos:    f.mem.Videos(),
		Synth:     f.synth,
		Capturer:  f.capturer,
		Generator: f.generator,
		Images:    f.images,
		Composer:  f.composer,
		Muxer:     f.muxer,
		Publisher: f.publisher,
	})
	return f
}

func seedPost(f *fixture) *model.Post {
	post := &model.Post{
		PostID:  "post-1",
		Title:   "A Post",
		Content: "Some article content long enough to narrate.",
		Slug:    "a-post",
	}
	f.mem.AddPost(post)
	return post
}

func TestScrollingModeHappyPath(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScrolling, "en-US")
	if !resp.Success {
		t.Fatalf("response not successful: %+v", resp)
	}
	if resp.VideoURL == "" {
		t.Error("video url empty")
	}

	task, err := f.mem.Tasks().GetByID(ctx, resp.TaskID)
	if err != nil {
		t.Fatalf("task lookup: %v", err)
	}
	if task.Type != model.TaskTypeVideoGeneration {
		t.Errorf("task type = %s", task.Type)
	}
	if task.Status != model.StatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}

	video, err := f.mem.Videos().GetByID(ctx, resp.VideoID)
	if err != nil {
		t.Fatalf("video lookup: %v", err)
	}
	if video.Type != model.VideoTypeScrolling || video.Status != model.StatusCompleted {
		t.Errorf("video = type %s status %s", video.Type, video.Status)
	}
	if video.DownloadURL == "" || video.Duration != 10 {
		t.Errorf("video metadata = url %q duration %v", video.DownloadURL, video.Duration)
	}

	stored, _ := f.mem.Posts().GetByID(ctx, post.PostID)
	if len(stored.Videos) != 1 || stored.Videos[0] != resp.VideoID {
		t.Errorf("post videos = %v", stored.Videos)
	}

	if task.Config.ArticleURL == "" {
		t.Error("article url not persisted on the task")
	}
	if task.Config.VideoFile == "" || task.Config.AudioFile == "" {
		t.Errorf("file references = video %q audio %q", task.Config.VideoFile, task.Config.AudioFile)
	}
}

func TestScriptedModeHappyPath(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScripted, "en-US")
	if !resp.Success {
		t.Fatalf("response not successful: %+v", resp)
	}

	task, _ := f.mem.Tasks().GetByID(ctx, resp.TaskID)
	if task.Type != model.TaskTypeScriptedVideoGeneration {
		t.Errorf("task type = %s", task.Type)
	}
	if len(task.Config.Captions) == 0 {
		t.Error("caption cues not persisted on the task")
	}
	if task.Config.Script == "" {
		t.Error("script not persisted on the task")
	}
	if len(task.Config.Images) != 5 {
		t.Errorf("persisted images = %d, want 5", len(task.Config.Images))
	}
	if task.Config.AudioFile == "" || task.Config.Duration != 10 {
		t.Errorf("audio reference = %q duration %v", task.Config.AudioFile, task.Config.Duration)
	}
	if task.Config.PostID != post.PostID {
		t.Errorf("config post id = %q", task.Config.PostID)
	}

	video, _ := f.mem.Videos().GetByID(ctx, resp.VideoID)
	if video.Type != model.VideoTypeScripted || video.Status != model.StatusCompleted {
		t.Errorf("video = type %s status %s", video.Type, video.Status)
	}
	if f.composer.textOnly {
		t.Error("slideshow path should be used when images download")
	}
}

func TestEmptyContentCreatesNoRecords(t *testing.T) {
	f := newFixture(t)
	post := &model.Post{PostID: "empty-post", Content: "   "}
	f.mem.AddPost(post)
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScrolling, "")
	if resp.Success {
		t.Fatal("expected failure for empty content")
	}
	if resp.Error != ErrNoContent.Error() {
		t.Errorf("error = %q", resp.Error)
	}

	tasks, _ := f.mem.Tasks().ByPostID(ctx, post.PostID)
	if len(tasks) != 0 {
		t.Errorf("tasks created for invalid post: %d", len(tasks))
	}
	videos, _ := f.mem.Videos().ByPostID(ctx, post.PostID)
	if len(videos) != 0 {
		t.Errorf("videos created for invalid post: %d", len(videos))
	}
}

func TestSynthesisFailureMarksTaskFailed(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	f.synth.err = errors.New("tts quota exhausted")
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScrolling, "")
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error == "" {
		t.Error("error message empty")
	}

	task, _ := f.mem.Tasks().GetByID(ctx, resp.TaskID)
	if task.Status != model.StatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
	if task.Result == nil || task.Result.Error == "" {
		t.Error("task result error not retained")
	}

	// No video record exists for a pre-render failure.
	videos, _ := f.mem.Videos().ByPostID(ctx, post.PostID)
	if len(videos) != 0 {
		t.Errorf("videos = %d, want 0", len(videos))
	}
}

func TestCaptureFailureMarksVideoFailed(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	f.capturer.err = errors.New("browser crashed")
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScrolling, "")
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.VideoID == "" {
		t.Fatal("video record should exist before capture runs")
	}

	video, _ := f.mem.Videos().GetByID(ctx, resp.VideoID)
	if video.Status != model.StatusFailed {
		t.Errorf("video status = %s, want failed", video.Status)
	}
	task, _ := f.mem.Tasks().GetByID(ctx, resp.TaskID)
	if task.Status != model.StatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}

	stored, _ := f.mem.Posts().GetByID(ctx, post.PostID)
	if len(stored.Videos) != 0 {
		t.Errorf("failed run should not append to post videos: %v", stored.Videos)
	}
}

func TestScriptFailureProducesNoVideoRecord(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	f.generator.err = errors.New("parse script response: invalid JSON")
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScripted, "")
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.VideoURL != "" {
		t.Error("no video url should be produced")
	}

	videos, _ := f.mem.Videos().ByPostID(ctx, post.PostID)
	if len(videos) != 0 {
		t.Errorf("videos = %d, want 0", len(videos))
	}
}

func TestScriptedModeFallsBackToTextOnly(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	f.images.downloadErr = errors.New("host unreachable")
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScripted, "")
	if !resp.Success {
		t.Fatalf("image trouble should not fail the run: %+v", resp)
	}
	if !f.composer.textOnly {
		t.Error("text-only fallback not used")
	}
}

func TestScriptedModeFallsBackToThumbnails(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	f.images.failURLs = map[string]bool{}
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		f.images.failURLs["https://img.example.com/"+q] = true
	}
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScripted, "")
	if !resp.Success {
		t.Fatalf("thumbnail fallback should keep the run alive: %+v", resp)
	}
	if f.composer.textOnly {
		t.Error("slideshow should be used when thumbnails download")
	}

	task, _ := f.mem.Tasks().GetByID(ctx, resp.TaskID)
	if len(task.Config.Images) != 5 {
		t.Errorf("persisted images = %d, want 5", len(task.Config.Images))
	}
}

func TestTerminalStateNeverLeftProcessing(t *testing.T) {
	scenarios := []struct {
		name string
		prep func(*fixture)
	}{
		{"muxFailure", func(f *fixture) { f.muxer.muxErr = errors.New("mux failed") }},
		{"uploadFailure", func(f *fixture) { f.publisher.err = errors.New("bucket gone") }},
		{"composeFailure", func(f *fixture) { f.composer.framesErr = errors.New("encode failed") }},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			f := newFixture(t)
			post := seedPost(f)
			sc.prep(f)
			ctx := context.Background()

			resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScrolling, "")
			if resp.Success {
				t.Fatal("expected failure")
			}

			task, _ := f.mem.Tasks().GetByID(ctx, resp.TaskID)
			if !task.Status.Terminal() {
				t.Errorf("task left in %s", task.Status)
			}
			if resp.VideoID != "" {
				video, _ := f.mem.Videos().GetByID(ctx, resp.VideoID)
				if !video.Status.Terminal() {
					t.Errorf("video left in %s", video.Status)
				}
			}
		})
	}
}

func TestSessionCleanup(t *testing.T) {
	f := newFixture(t)
	post := seedPost(f)
	ctx := context.Background()

	resp := f.service.GenerateVideoForPost(ctx, post, model.VideoTypeScrolling, "")
	if !resp.Success {
		t.Fatalf("run failed: %+v", resp)
	}

	sessionDir := filepath.Join(f.service.cfg.Video.TempDir, resp.TaskID)
	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Errorf("session dir %s not cleaned up", sessionDir)
	}
}
