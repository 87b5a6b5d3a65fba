package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postreel/internal/captions"
	"postreel/internal/model"
	"postreel/internal/speech"
)

const (
	captureFPS        = 2
	heartbeatInterval = 20 * time.Second
)

// Response is the structured outcome of one generation run. The pipeline
// never returns a Go error to its caller; failures are reported here so a
// worker loop can act on them without crashing.
type Response struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	TaskID   string  `json:"taskId,omitempty"`
	VideoID  string  `json:"videoId,omitempty"`
	PostID   string  `json:"postId"`
	VideoURL string  `json:"videoUrl,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	FileSize int64   `json:"fileSize,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// GenerateVideoForPost runs the full pipeline for one post. Empty content
// is rejected before any record is created. After the first record exists,
// every failure marks the task (and video, once created) failed and
// produces a failure response.
func (s *Service) GenerateVideoForPost(ctx context.Context, post *model.Post, videoType model.VideoType, language string) *Response {
	if strings.TrimSpace(post.Content) == "" {
		return &Response{
			Success: false,
			Message: "post has no content to narrate",
			PostID:  post.PostID,
			Error:   ErrNoContent.Error(),
		}
	}
	if language == "" {
		language = s.cfg.Speech.Language
	}

	taskType := model.TaskTypeVideoGeneration
	if videoType == model.VideoTypeScripted {
		taskType = model.TaskTypeScriptedVideoGeneration
	}

	task := &model.Task{
		Type:   taskType,
		Status: model.StatusPending,
		Config: model.TaskConfig{
			PostID:   post.PostID,
			Language: language,
		},
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return &Response{
			Success: false,
			Message: "could not create task record",
			PostID:  post.PostID,
			Error:   err.Error(),
		}
	}

	stopHeartbeat := s.startHeartbeat(task.ID)
	defer stopHeartbeat()

	sess, err := newSession(s.cfg.Video.TempDir, task.ID)
	if err != nil {
		return s.fail(ctx, task.ID, "", post.PostID, stageErr("session", err))
	}
	defer sess.cleanup()

	if err := s.tasks.UpdateStatus(ctx, task.ID, model.StatusProcessing, nil); err != nil {
		return s.fail(ctx, task.ID, "", post.PostID, stageErr("task update", err))
	}

	s.logger.Info("starting video generation",
		"taskId", task.ID, "postId", post.PostID, "type", videoType, "language", language)

	var videoID string
	var result *Response
	switch videoType {
	case model.VideoTypeScripted:
		videoID, result = s.runScripted(ctx, post, task.ID, language, sess)
	default:
		videoID, result = s.runScrolling(ctx, post, task.ID, language, sess)
	}
	if result != nil {
		return result
	}

	// Terminal bookkeeping shared by both modes.
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return s.fail(ctx, task.ID, videoID, post.PostID, stageErr("video lookup", err))
	}

	if err := s.posts.AppendVideo(ctx, post.PostID, videoID); err != nil {
		return s.fail(ctx, task.ID, videoID, post.PostID, stageErr("append video", err))
	}
	if err := s.tasks.UpdateStatus(ctx, task.ID, model.StatusCompleted, &model.TaskResult{VideoURL: video.DownloadURL}); err != nil {
		s.logger.Error("completed run but task update failed", "taskId", task.ID, "error", err)
	}

	s.logger.Info("video generation complete",
		"taskId", task.ID, "videoId", videoID, "url", video.DownloadURL, "duration", video.Duration)

	return &Response{
		Success:  true,
		Message:  "video generation completed successfully",
		TaskID:   task.ID,
		VideoID:  videoID,
		PostID:   post.PostID,
		VideoURL: video.DownloadURL,
		Duration: video.Duration,
		FileSize: video.FileSize,
	}
}

// runScrolling narrates the post body and records a scrolling capture of
// the article page. Returns the completed video id, or a failure response.
func (s *Service) runScrolling(ctx context.Context, post *model.Post, taskID, language string, sess *session) (string, *Response) {
	speechResult, err := s.synth.Synthesize(ctx, post.Content, language)
	if err != nil {
		return "", s.fail(ctx, taskID, "", post.PostID, stageErr("synthesis", err))
	}
	duration, err := s.saveNarration(ctx, sess, speechResult)
	if err != nil {
		return "", s.fail(ctx, taskID, "", post.PostID, stageErr("synthesis", err))
	}

	videoID, failResp := s.createVideoRecord(ctx, post, taskID, model.VideoTypeScrolling, language, duration)
	if failResp != nil {
		return "", failResp
	}

	articleURL := post.ArticleURL(s.cfg.Blog.BaseURL)
	s.saveTaskConfig(ctx, taskID, model.TaskConfig{
		ArticleURL: articleURL,
		AudioFile:  filepath.Base(sess.audioPath()),
		Duration:   duration,
		VideoFile:  videoFileName(taskID),
		PostID:     post.PostID,
		Language:   language,
	})

	if _, err := s.capturer.CaptureScroll(ctx, articleURL, duration, sess.dir); err != nil {
		return "", s.fail(ctx, taskID, videoID, post.PostID, stageErr("capture", err))
	}
	framesDir := filepath.Join(sess.dir, "frames")
	if err := s.composer.FramesToVideo(ctx, framesDir, captureFPS, sess.framesVideoPath()); err != nil {
		return "", s.fail(ctx, taskID, videoID, post.PostID, stageErr("composition", err))
	}

	if resp := s.finishVideo(ctx, post, taskID, videoID, sess, sess.framesVideoPath(), duration); resp != nil {
		return "", resp
	}
	return videoID, nil
}

// runScripted generates a narration script, narrates it and composes an
// image slideshow with caption overlay.
func (s *Service) runScripted(ctx context.Context, post *model.Post, taskID, language string, sess *session) (string, *Response) {
	scriptResult, err := s.generator.Generate(ctx, post.Title, post.Content, language)
	if err != nil {
		return "", s.fail(ctx, taskID, "", post.PostID, stageErr("script", err))
	}

	speechResult, err := s.synth.Synthesize(ctx, scriptResult.Script, language)
	if err != nil {
		return "", s.fail(ctx, taskID, "", post.PostID, stageErr("synthesis", err))
	}
	duration, err := s.saveNarration(ctx, sess, speechResult)
	if err != nil {
		return "", s.fail(ctx, taskID, "", post.PostID, stageErr("synthesis", err))
	}

	videoID, failResp := s.createVideoRecord(ctx, post, taskID, model.VideoTypeScripted, language, duration)
	if failResp != nil {
		return "", failResp
	}

	timings := speech.EstimateTimingsFromDuration(scriptResult.Script, duration)
	cues := captions.FromWordTimings(timings, duration)
	if len(cues) == 0 {
		cues = captions.FromScript(scriptResult.Script, duration)
	}

	imagePaths, usedImages := s.downloadImages(ctx, scriptResult.ImageQueries, sess)

	s.saveTaskConfig(ctx, taskID, model.TaskConfig{
		Script:    scriptResult.Script,
		Images:    usedImages,
		AudioFile: filepath.Base(sess.audioPath()),
		Duration:  duration,
		VideoFile: videoFileName(taskID),
		Captions:  cues,
		PostID:    post.PostID,
		Language:  language,
	})

	var track string
	if len(imagePaths) == 0 {
		s.logger.Warn("no usable images, rendering text-only video", "taskId", taskID)
		track = sess.slideshowPath()
		if err := s.composer.TextOnlyVideo(ctx, scriptResult.Script, duration, cues, track); err != nil {
			return "", s.fail(ctx, taskID, videoID, post.PostID, stageErr("composition", err))
		}
	} else {
		track = sess.slideshowPath()
		if err := s.composer.ImageSlideshow(ctx, imagePaths, duration, cues, sess.dir, track); err != nil {
			return "", s.fail(ctx, taskID, videoID, post.PostID, stageErr("composition", err))
		}
	}

	if resp := s.finishVideo(ctx, post, taskID, videoID, sess, track, duration); resp != nil {
		return "", resp
	}
	return videoID, nil
}

// saveNarration writes the audio to the session dir and returns the best
// known duration: the ffprobe measurement when available, the bitrate
// estimate otherwise.
func (s *Service) saveNarration(ctx context.Context, sess *session, result *speech.Result) (float64, error) {
	if err := os.WriteFile(sess.audioPath(), result.Audio, 0o644); err != nil {
		return 0, fmt.Errorf("write narration: %w", err)
	}
	duration := result.Duration
	if probed, err := s.muxer.ProbeDuration(ctx, sess.audioPath()); err == nil && probed > 0 {
		duration = probed
	}
	return duration, nil
}

func (s *Service) createVideoRecord(ctx context.Context, post *model.Post, taskID string, videoType model.VideoType, language string, duration float64) (string, *Response) {
	videoID, err := s.videos.Create(ctx, &model.Video{
		PostID:     post.PostID,
		Type:       videoType,
		Language:   language,
		Status:     model.StatusProcessing,
		Duration:   duration,
		Format:     "mp4",
		Resolution: s.cfg.Video.Resolution,
		TaskID:     taskID,
	})
	if err != nil {
		return "", s.fail(ctx, taskID, "", post.PostID, stageErr("video record", err))
	}
	return videoID, nil
}

// downloadImages fetches resolved images into the session dir, skipping
// failures. Image trouble degrades the video, it does not fail the run.
// The returned metadata describes the images that actually downloaded, in
// the same order as the returned paths.
func (s *Service) downloadImages(ctx context.Context, queries []string, sess *session) ([]string, []model.Image) {
	resolved := s.images.Resolve(ctx, queries)
	var paths []string
	var used []model.Image
	for i, img := range resolved {
		data, err := s.images.Download(ctx, img.URL)
		if err != nil && img.Thumb != "" {
			s.logger.Warn("image download failed, trying thumbnail",
				"url", img.URL, "error", err)
			data, err = s.images.Download(ctx, img.Thumb)
		}
		if err != nil {
			s.logger.Warn("image download failed, skipping", "url", img.URL, "error", err)
			continue
		}
		path := sess.imagePath(i)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			s.logger.Warn("image write failed, skipping", "path", path, "error", err)
			continue
		}
		paths = append(paths, path)
		used = append(used, img)
	}
	return paths, used
}

// saveTaskConfig persists the run materials for audit. A write failure
// here does not fail the run; the video itself is unaffected.
func (s *Service) saveTaskConfig(ctx context.Context, taskID string, cfg model.TaskConfig) {
	if err := s.tasks.SaveConfig(ctx, taskID, cfg); err != nil {
		s.logger.Warn("could not persist task config", "taskId", taskID, "error", err)
	}
}

func videoFileName(taskID string) string {
	return fmt.Sprintf("video_%s.mp4", taskID)
}

// finishVideo muxes the track with narration, publishes the artifact and
// marks the video record completed.
func (s *Service) finishVideo(ctx context.Context, post *model.Post, taskID, videoID string, sess *session, trackPath string, duration float64) *Response {
	if err := s.muxer.Mux(ctx, trackPath, sess.audioPath(), sess.finalPath()); err != nil {
		return s.fail(ctx, taskID, videoID, post.PostID, stageErr("mux", err))
	}

	finalDuration := duration
	if probed, err := s.muxer.ProbeDuration(ctx, sess.finalPath()); err == nil && probed > 0 {
		finalDuration = probed
	}

	data, err := os.ReadFile(sess.finalPath())
	if err != nil {
		return s.fail(ctx, taskID, videoID, post.PostID, stageErr("upload", err))
	}
	fileName := videoFileName(taskID)
	url, err := s.publisher.Upload(ctx, data, fileName, "videos")
	if err != nil {
		return s.fail(ctx, taskID, videoID, post.PostID, stageErr("upload", err))
	}

	if err := s.videos.Update(ctx, videoID, model.VideoPatch{
		Status:      model.StatusCompleted,
		DownloadURL: url,
		Duration:    finalDuration,
		FileSize:    int64(len(data)),
		FilePath:    "videos/" + fileName,
	}); err != nil {
		return s.fail(ctx, taskID, videoID, post.PostID, stageErr("video update", err))
	}
	return nil
}

// fail marks the task and video failed and converts the stage error into a
// failure response. Terminal-state errors from the stores are logged, not
// escalated, so a double failure cannot mask the original cause.
func (s *Service) fail(ctx context.Context, taskID, videoID, postID string, cause *StageError) *Response {
	s.logger.Error("video generation failed",
		"taskId", taskID, "videoId", videoID, "postId", postID,
		"stage", cause.Stage, "error", cause.Err)

	if taskID != "" {
		if err := s.tasks.UpdateStatus(ctx, taskID, model.StatusFailed, &model.TaskResult{Error: cause.Error()}); err != nil {
			s.logger.Error("could not mark task failed", "taskId", taskID, "error", err)
		}
	}
	if videoID != "" {
		if err := s.videos.Update(ctx, videoID, model.VideoPatch{Status: model.StatusFailed}); err != nil {
			s.logger.Error("could not mark video failed", "videoId", videoID, "error", err)
		}
	}

	return &Response{
		Success: false,
		Message: fmt.Sprintf("video generation failed during %s", cause.Stage),
		TaskID:  taskID,
		VideoID: videoID,
		PostID:  postID,
		Error:   cause.Error(),
	}
}

// startHeartbeat invokes the liveness hook on an interval until the
// returned stop function is called.
func (s *Service) startHeartbeat(taskID string) func() {
	if s.heartbeat == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.heartbeat(taskID)
			}
		}
	}()
	return func() { close(done) }
}
