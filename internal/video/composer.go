// Package video renders the visual track and muxes it with narration audio
// by shelling out to ffmpeg.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"path/filepath"
	"strings"

	"postreel/internal/model"
)

const (
	outputWidth  = 1080
	outputHeight = 1920

	// Minimum per-image dwell time for slideshows. Faster switching
	// reads as a slideshow glitch, so excess images are dropped instead.
	minSecondsPerImage = 4.0

	// 38% from the top plus a buffer clearing the player UI overlays.
	captionY = "h*0.38+100"
)

// Composer builds video tracks from captured frames or still images.
type Composer struct {
	ffmpegPath string
	logger     *slog.Logger
}

func NewComposer(logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{ffmpegPath: "ffmpeg", logger: logger}
}

// FramesToVideo encodes a captured frame sequence into a video track at the
// capture frame rate.
func (c *Composer) FramesToVideo(ctx context.Context, framesDir string, fps int, outputPath string) error {
	args := []string{
		"-y",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", filepath.Join(framesDir, "frame_%05d.jpg"),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		outputPath,
	}
	return c.run(ctx, args)
}

// slideshowPacing decides how many images to use and how long each stays
// on screen. When images would flip too fast, the excess is dropped rather
// than sped up. The used images always span the full duration, so the
// track is never shorter than the narration it is muxed against.
func slideshowPacing(imageCount int, duration float64) (used int, secondsPerImage float64) {
	if imageCount == 0 || duration <= 0 {
		return 0, 0
	}
	used = imageCount
	secondsPerImage = duration / float64(imageCount)
	if secondsPerImage < minSecondsPerImage {
		used = int(math.Floor(duration / minSecondsPerImage))
		if used < 1 {
			used = 1
		}
		secondsPerImage = duration / float64(used)
	}
	return used, secondsPerImage
}

// ImageSlideshow turns still images into a captioned vertical video. Each
// image becomes a looped segment scaled and padded to 1080x1920; the
// segments are concatenated and the caption chain drawn on top.
func (c *Composer) ImageSlideshow(ctx context.Context, imagePaths []string, duration float64, captions []model.CaptionCue, tempDir, outputPath string) error {
	used, secondsPerImage := slideshowPacing(len(imagePaths), duration)
	if used == 0 {
		return fmt.Errorf("no images for slideshow")
	}
	if used < len(imagePaths) {
		c.logger.Info("dropping excess images for pacing",
			"have", len(imagePaths), "using", used, "secondsPerImage", secondsPerImage)
	}
	imagePaths = imagePaths[:used]

	segments := make([]string, 0, used)
	for i, imagePath := range imagePaths {
		segmentPath := filepath.Join(tempDir, fmt.Sprintf("segment_%d.mp4", i))
		args := []string{
			"-y",
			"-loop", "1",
			"-t", fmt.Sprintf("%.3f", secondsPerImage),
			"-i", imagePath,
			"-c:v", "libx264",
			"-preset", "fast",
			"-pix_fmt", "yuv420p",
			"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
				outputWidth, outputHeight, outputWidth, outputHeight),
			"-r", "24",
			segmentPath,
		}
		if err := c.run(ctx, args); err != nil {
			return fmt.Errorf("render segment %d: %w", i, err)
		}
		segments = append(segments, segmentPath)
	}

	inputs := make([]string, 0, len(segments)*2)
	labels := make([]string, 0, len(segments))
	for i, seg := range segments {
		inputs = append(inputs, "-i", seg)
		labels = append(labels, fmt.Sprintf("[%d:v]", i))
	}

	filter := fmt.Sprintf("%sconcat=n=%d:v=1:a=0[outv]", strings.Join(labels, ""), len(segments))
	outputMap := "[outv]"
	if chain := captionFilter(captions); chain != "" {
		filter = fmt.Sprintf("%s;[outv]%s[final]", filter, chain)
		outputMap = "[final]"
	}

	args := append([]string{"-y"}, inputs...)
	args = append(args,
		"-filter_complex", filter,
		"-map", outputMap,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		outputPath,
	)
	return c.run(ctx, args)
}

// TextOnlyVideo renders captions over a black background. Used when no
// usable images exist so a run still produces a watchable video.
func (c *Composer) TextOnlyVideo(ctx context.Context, script string, duration float64, captions []model.CaptionCue, outputPath string) error {
	chain := captionFilter(captions)
	if chain == "" {
		text := escapeDrawtext(trimForOverlay(script))
		chain = fmt.Sprintf(
			"drawtext=text='%s':fontcolor=white:fontsize=48:borderw=3:bordercolor=black:shadowx=1:shadowy=1:shadowcolor=black@0.6:x=(w-text_w)/2:y=%s:enable='between(t,0,%.3f)'",
			text, captionY, duration)
	}

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%.3f:r=24", outputWidth, outputHeight, duration),
		"-filter_complex", chain,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		outputPath,
	}
	return c.run(ctx, args)
}

// captionFilter builds a drawtext chain with one filter per cue, enabled
// for the cue's time window.
func captionFilter(captions []model.CaptionCue) string {
	if len(captions) == 0 {
		return ""
	}
	filters := make([]string, 0, len(captions))
	for _, cue := range captions {
		text := escapeDrawtext(cue.Text)
		if text == "" {
			continue
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontcolor=white:fontsize=64:borderw=3:bordercolor=black:shadowx=1:shadowy=1:shadowcolor=black@0.6:x=(w-text_w)/2:y=%s:enable='between(t,%.3f,%.3f)'",
			text, captionY, cue.Start, cue.End))
	}
	return strings.Join(filters, ",")
}

// escapeDrawtext guards the characters that terminate or confuse drawtext
// arguments. Cue sanitation removes most of them already; this covers raw
// script text too.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, ``,
		`"`, ``,
		`:`, `\:`,
		`%`, `\%`,
		`,`, ` `,
		`;`, ` `,
	)
	return strings.TrimSpace(replacer.Replace(text))
}

// trimForOverlay shortens a full script to something that fits one frame.
func trimForOverlay(script string) string {
	words := strings.Fields(script)
	if len(words) > 12 {
		words = words[:12]
	}
	return strings.Join(words, " ")
}

func (c *Composer) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, output: %s", err, string(output))
	}
	return nil
}
