package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// session owns the scratch directory for one pipeline run. Everything the
// run writes lives under the task-scoped dir so cleanup is one removal.
type session struct {
	taskID string
	dir    string
}

func newSession(baseDir, taskID string) (*session, error) {
	dir := filepath.Join(baseDir, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &session{taskID: taskID, dir: dir}, nil
}

func (s *session) audioPath() string       { return filepath.Join(s.dir, "narration.mp3") }
func (s *session) framesVideoPath() string { return filepath.Join(s.dir, "frames.mp4") }
func (s *session) slideshowPath() string   { return filepath.Join(s.dir, "slideshow.mp4") }
func (s *session) finalPath() string       { return filepath.Join(s.dir, "final.mp4") }

func (s *session) imagePath(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("image_%d.jpg", i))
}

func (s *session) cleanup() {
	_ = os.RemoveAll(s.dir)
}
