// Package snapshot renders the calendar page in headless Chromium and saves
// it as a PNG, for wall displays and the /preview.png endpoint.
package snapshot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "monthcal/internal/log"
)

// Viewport and timeout used when Options leaves them zero. The size fits a
// six-row month at a readable cell height.
const (
	DefaultWidth   = 1200
	DefaultHeight  = 900
	DefaultTimeout = 30 * time.Second
)

// ReadySelector matches the calendar root once its events have settled.
const ReadySelector = `[data-ready="true"]`

// Options configures one capture.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:8080/calendar".
	URL string
	// OutputPath receives the PNG. Parent directories are created.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration

	// Username and Password are sent as HTTP Basic Auth when the server
	// protects the page.
	Username string
	Password string
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("snapshot: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("snapshot: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// tasks is the capture sequence: size the viewport, open the page, wait for
// data-ready and shoot.
func (o Options) tasks(buf *[]byte) chromedp.Tasks {
	var tasks chromedp.Tasks
	if o.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + cred}),
		)
	}
	return append(tasks,
		chromedp.EmulateViewport(int64(o.Width), int64(o.Height)),
		chromedp.Navigate(o.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts and the last layout pass settle.
		chromedp.Sleep(300*time.Millisecond),
		chromedp.FullScreenshot(buf, 100),
	)
}

// CapturePNG opens opts.URL in a new headless Chromium tab and writes a
// screenshot of the page to opts.OutputPath.
func CapturePNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	began := time.Now()
	var png []byte
	if err := chromedp.Run(ctx, opts.tasks(&png)); err != nil {
		return fmt.Errorf("snapshot: capture %s: %w", opts.URL, err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	appLog.Info("calendar snapshot saved",
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(began).Round(time.Millisecond).String(),
	)
	return nil
}

// writeFileAtomic replaces path so /preview.png never serves a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
