package video

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Muxer combines a video track with narration audio and probes media
// metadata.
type Muxer struct {
	ffmpegPath  string
	ffprobePath string
}

func NewMuxer() *Muxer {
	return &Muxer{ffmpegPath: "ffmpeg", ffprobePath: "ffprobe"}
}

// Mux copies the video track and encodes the audio as AAC. -shortest trims
// whichever track runs longer so the output never ends on frozen frames or
// silent video.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux failed: %w, output: %s", err, string(output))
	}
	return nil
}

// ProbeDuration returns the container duration in seconds.
func (m *Muxer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := exec.CommandContext(ctx, m.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}
