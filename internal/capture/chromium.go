package capture

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"shiftcal/internal/config"
)

// Default capture parameters. These should match the layout used by the
// /calendar page.
const (
	DefaultWidth      = 1200
	DefaultHeight     = 1600
	DefaultTimeoutSec = 30

	// ReadySelector matches the /calendar root once the page is complete.
	ReadySelector = `[data-ready="true"]`
)

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar".
	URL string

	// OutputPath is where the PNG screenshot will be written, e.g.
	// "/var/lib/shiftcal/preview.png".
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero, a sane default
	// (DefaultTimeoutSec) is used.
	Timeout time.Duration
}

func (o CaptureOptions) normalize() (CaptureOptions, error) {
	if o.URL == "" {
		return o, fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return o, fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o, nil
}

// OptionsFromConfig points a capture at this process's own /calendar page
// for team, using the snapshot settings of cfg.
func OptionsFromConfig(cfg *config.Config, team string) CaptureOptions {
	host, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		host, port = "127.0.0.1", "8080"
	}
	// A wildcard listen address is not dialable.
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/calendar"}
	if team != "" {
		u.RawQuery = url.Values{"team": {team}}.Encode()
	}
	if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != "" {
		u.User = url.UserPassword(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}

	return CaptureOptions{
		URL:        u.String(),
		OutputPath: cfg.Snapshot.Path,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
	}
}

// CaptureCalendarPNG launches a headless Chromium instance via chromedp,
// navigates to opts.URL (typically /calendar), waits for the DOM to signal
// that rendering is complete, and then writes a PNG screenshot at the
// requested resolution.
//
// Rendering-complete condition: the /calendar root element carries
// data-ready="true", and this function waits until ReadySelector is visible.
func CaptureCalendarPNG(parentCtx context.Context, opts CaptureOptions) error {
	opts, err := opts.normalize()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	// Apply timeout to the entire capture sequence.
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	// /preview.png may be served while we write.
	if err := config.WriteFileAtomic(opts.OutputPath, png, ".preview-*.png"); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
