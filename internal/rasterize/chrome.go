package rasterize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/surface"
)

const (
	defaultCaptureTimeout  = 30 * time.Second
	defaultCaptureWidth    = 794 // CSS px, A4 width at 96 dpi
	defaultCaptureScale    = 2.0
	defaultCaptureSelector = "body"
)

// ChromeOptions configures the headless Chrome rasterizer.
type ChromeOptions struct {
	// RemoteURL points at a running Chrome DevTools endpoint. Empty launches
	// a local browser.
	RemoteURL string
	NoSandbox bool
	// Width of the layout viewport in CSS pixels.
	Width int
	// Scale is the device pixel ratio of the screenshot.
	Scale float64
	// Selector of the element to capture.
	Selector string
	Timeout  time.Duration
}

// Chrome renders HTML in headless Chrome and screenshots one element.
type Chrome struct {
	opts        ChromeOptions
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChrome prepares the browser allocator. No browser starts until the
// first capture.
func NewChrome(opts ChromeOptions) *Chrome {
	if opts.Width <= 0 {
		opts.Width = defaultCaptureWidth
	}
	if opts.Scale <= 0 {
		opts.Scale = defaultCaptureScale
	}
	if strings.TrimSpace(opts.Selector) == "" {
		opts.Selector = defaultCaptureSelector
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCaptureTimeout
	}

	c := &Chrome{opts: opts}
	if opts.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
		return c
	}

	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if opts.NoSandbox {
		flags = append(flags, chromedp.Flag("no-sandbox", true))
	}
	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), flags...)
	return c
}

// Close shuts down the allocator and any browser it started.
func (c *Chrome) Close() {
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// Capture loads v.Content as the document and screenshots the configured
// element at the configured device scale.
func (c *Chrome) Capture(ctx context.Context, v View) (*surface.Surface, error) {
	html := string(v.Content)
	if strings.TrimSpace(html) == "" {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "chrome capture", "HTML content is empty")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug().Str("component", "chromedp").Msgf(format, args...)
		}),
	)
	defer browserCancel()

	// tie the browser tab to the caller's deadline
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var shot []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(c.opts.Width), 1024),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady(c.opts.Selector, chromedp.ByQuery),
		chromedp.ScreenshotScale(c.opts.Selector, c.opts.Scale, &shot, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, exporterr.New(exporterr.KindCaptureFailed,
				fmt.Sprintf("chrome capture timed out after %v", c.opts.Timeout), err)
		}
		return nil, exporterr.New(exporterr.KindCaptureFailed, "chrome capture", err)
	}
	if len(shot) == 0 {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "chrome capture", "screenshot is empty")
	}

	s, err := surface.DecodeBytes(shot)
	if err != nil {
		return nil, exporterr.New(exporterr.KindCaptureFailed, "chrome capture", err)
	}

	log.Info().
		Str("document_id", v.DocumentID).
		Int("width", s.Width()).
		Int("height", s.Height()).
		Float64("scale", c.opts.Scale).
		Dur("duration", time.Since(start)).
		Msg("captured HTML view")
	return s, nil
}
