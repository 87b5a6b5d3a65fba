// Package capture records a scrolling screenshot sequence of an article
// page with a headless browser. The frames feed the composer, which turns
// them into the scrolling video track.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	viewportWidth  = 480
	viewportHeight = 1200
	deviceScale    = 1.5

	// Slow capture rate so text stays readable while scrolling.
	framesPerSecond = 2
	maxFrames       = 200

	// Pages that fail to report a sane height get a generous fallback so
	// the scroll still covers a full article.
	minPageHeight      = 500
	fallbackPageHeight = 5000

	settleDelay = 3 * time.Second
	frameDelay  = 200 * time.Millisecond
)

// readabilityCSS strips navigation, ads and footers and enlarges body text
// so the narrow viewport reads like an article page.
const readabilityCSS = `
body {
  font-size: 140% !important;
  line-height: 1.4 !important;
  color: #333 !important;
  background-color: white !important;
  margin: 0 !important;
  padding: 20px !important;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif !important;
}
p, div, span, li, td, th, a {
  font-size: 1em !important;
  line-height: 1.4 !important;
  margin-bottom: 12px !important;
  color: #333 !important;
}
h1, h2, h3, h4, h5, h6 {
  font-weight: bold !important;
  margin-top: 20px !important;
  margin-bottom: 15px !important;
  color: #111 !important;
}
h1 { font-size: 1.6em !important; }
h2 { font-size: 1.4em !important; }
h3, h4, h5, h6 { font-size: 1.2em !important; }
header nav, .navigation, .nav-menu, .navbar, [role="banner"], [role="navigation"],
footer, .footer, [role="contentinfo"],
.ad, .advertisement, .banner, .sidebar, aside, .aside, .related,
.cookie-banner, .consent-banner, .popup, .modal, .dialog,
button, .button, [type="button"], [role="button"] {
  display: none !important;
}
article, main, .content, .post-content, .entry-content {
  max-width: 100% !important;
  padding: 0 !important;
  margin: 0 !important;
}
img {
  max-width: 100% !important;
  height: auto !important;
  margin: 10px 0 !important;
}
`

// Capturer drives a headless Chrome instance to record page scrolls.
type Capturer struct {
	execPath string
	logger   *slog.Logger
}

type Options struct {
	// ExecPath overrides the browser binary location. Empty means let the
	// driver find one.
	ExecPath string
	Logger   *slog.Logger
}

func New(opts Options) *Capturer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{execPath: opts.ExecPath, logger: logger}
}

// CaptureScroll loads the article, injects the readability CSS and captures
// frames while scrolling top to bottom with smoothstep easing. It returns
// the captured frame paths in order. Mid-capture browser failures are
// tolerated as long as at least one frame exists, so a flaky page still
// yields a shorter video instead of a failed run.
func (c *Capturer) CaptureScroll(ctx context.Context, url string, durationSeconds float64, dir string) ([]string, error) {
	if strings.Contains(url, "undefined") {
		return nil, fmt.Errorf("invalid article url %q", url)
	}

	framesDir := filepath.Join(dir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if c.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	c.logger.Info("capturing article scroll", "url", url, "duration", durationSeconds)

	pageHeight, navErr := c.preparePage(browserCtx, url)
	if navErr != nil {
		// Navigation trouble is not fatal yet: the page may have partially
		// rendered, which is enough to scroll through.
		c.logger.Warn("page preparation incomplete", "url", url, "error", navErr)
	}
	if pageHeight < minPageHeight {
		c.logger.Warn("page height below threshold, using fallback",
			"measured", pageHeight, "fallback", fallbackPageHeight)
		pageHeight = fallbackPageHeight
	}

	totalSteps := planSteps(durationSeconds)
	effectiveHeight := scrollableHeight(pageHeight)

	var frames []string
	for i := 0; i < totalSteps; i++ {
		scrollPos := easedPosition(i, totalSteps, effectiveHeight)

		framePath := filepath.Join(framesDir, fmt.Sprintf("frame_%05d.jpg", i))
		if err := c.captureFrame(browserCtx, scrollPos, framePath); err != nil {
			if len(frames) > 0 {
				c.logger.Warn("frame capture failed, keeping partial sequence",
					"frame", i, "captured", len(frames), "error", err)
				break
			}
			return nil, fmt.Errorf("capture frame %d: %w", i, err)
		}
		frames = append(frames, framePath)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames captured for %s", url)
	}
	c.logger.Info("scroll capture complete", "frames", len(frames))
	return frames, nil
}

// preparePage navigates, applies the readability CSS and measures the
// scrollable height.
func (c *Capturer) preparePage(ctx context.Context, url string) (float64, error) {
	var pageHeight float64
	err := chromedp.Run(ctx,
		emulation.SetDeviceMetricsOverride(viewportWidth, viewportHeight, deviceScale, false),
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Evaluate(injectStyleJS(readabilityCSS), nil),
		chromedp.Sleep(settleDelay),
		chromedp.Evaluate(`Math.max(
			document.body ? document.body.scrollHeight : 0,
			document.documentElement ? document.documentElement.scrollHeight : 0,
			document.body ? document.body.offsetHeight : 0,
			1000)`, &pageHeight),
	)
	if err != nil {
		return pageHeight, fmt.Errorf("prepare page: %w", err)
	}
	return pageHeight, nil
}

func (c *Capturer) captureFrame(ctx context.Context, scrollPos float64, path string) error {
	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`window.scrollTo({top: %f, behavior: "auto"})`, scrollPos), nil),
		chromedp.Sleep(frameDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(85).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// planSteps converts the narration length into a frame count, capped so a
// long narration does not explode the capture time.
func planSteps(durationSeconds float64) int {
	steps := int(durationSeconds * framesPerSecond)
	if steps > maxFrames {
		return maxFrames
	}
	if steps < 1 {
		return 1
	}
	return steps
}

// scrollableHeight subtracts the viewport from the page height, with a
// floor so short pages still scroll a meaningful distance.
func scrollableHeight(pageHeight float64) float64 {
	return math.Max(pageHeight-viewportHeight, pageHeight*0.7)
}

// easedPosition applies smoothstep easing so scrolling accelerates at the
// top of the article and decelerates near the end.
func easedPosition(step, totalSteps int, effectiveHeight float64) float64 {
	progress := float64(step) / float64(totalSteps)
	eased := progress * progress * (3 - 2*progress)
	return eased * effectiveHeight
}

func injectStyleJS(css string) string {
	return fmt.Sprintf(`(() => {
		const style = document.createElement("style");
		style.textContent = %q;
		document.head.appendChild(style);
	})()`, css)
}
