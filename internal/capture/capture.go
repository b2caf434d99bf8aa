// Package capture renders targets in headless Chromium and stores full-page
// screenshots on disk.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

var (
	// ErrCaptureTimeout is returned when the page does not settle in time
	ErrCaptureTimeout = errors.New("capture timeout")
	// ErrCaptureRender is returned for browser, navigation and write failures
	ErrCaptureRender = errors.New("capture render error")
)

// Wait policies
const (
	WaitNetworkIdle = "networkidle"
	WaitLoad        = "load"
)

// Options configure the browser and the capture policy
type Options struct {
	Dir     string
	Timeout time.Duration
	Wait    string
	Width   int
	Height  int
	// ExecPath overrides the Chromium binary lookup
	ExecPath string
}

// Browser owns one headless Chromium process shared by all captures.
// Each capture runs in its own tab.
type Browser struct {
	opts        Options
	allocCtx    context.Context
	cancelAlloc context.CancelFunc

	mu         sync.Mutex
	browserCtx context.Context
	cancel     context.CancelFunc
	started    bool
}

// NewBrowser creates the browser allocator. The process launches on the
// first capture and is relaunched if it exits.
func NewBrowser(opts Options) (*Browser, error) {
	if opts.Dir == "" {
		opts.Dir = "screenshots"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Wait == "" {
		opts.Wait = WaitNetworkIdle
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1366, 768
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Browser{
		opts:        opts,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Close shuts the browser down
func (b *Browser) Close() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	b.cancelAlloc()
}

// browser returns the context of the running browser process, launching it
// when it is not running. Tabs derived from it share the process.
func (b *Browser) browser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}
	if b.cancel != nil {
		b.cancel()
	}

	ctx, cancel := chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		b.started = false
		return nil, fmt.Errorf("%w: failed to launch browser: %v", ErrCaptureRender, err)
	}

	b.browserCtx, b.cancel, b.started = ctx, cancel, true
	return ctx, nil
}

// Running reports whether the browser process has been launched
func (b *Browser) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started && b.browserCtx.Err() == nil
}

// Dir returns the screenshot directory
func (b *Browser) Dir() string {
	return b.opts.Dir
}

// Capture renders url, waits for the configured load signal and writes a
// full-page PNG. It returns the screenshot file name.
func (b *Browser) Capture(ctx context.Context, url string) (string, error) {
	browserCtx, err := b.browser()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var buf []byte
	if err := chromedp.Run(tabCtx, b.actions(tabCtx, url, &buf)...); err != nil {
		return "", classify(tabCtx, err)
	}

	name := FileName(url)
	if err := os.WriteFile(filepath.Join(b.opts.Dir, name), buf, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write screenshot: %v", ErrCaptureRender, err)
	}

	return name, nil
}

func (b *Browser) actions(ctx context.Context, url string, buf *[]byte) []chromedp.Action {
	if b.opts.Wait == WaitLoad {
		return []chromedp.Action{
			chromedp.Navigate(url),
			chromedp.FullScreenshot(buf, 100),
		}
	}

	var (
		armed atomic.Bool
		once  sync.Once
		idle  = make(chan struct{})
	)
	// events from the blank tab before navigation are ignored
	chromedp.ListenTarget(ctx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" && armed.Load() {
			once.Do(func() { close(idle) })
		}
	})

	return []chromedp.Action{
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			armed.Store(true)
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		chromedp.FullScreenshot(buf, 100),
	}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrCaptureTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrCaptureRender, err)
}

// FileName derives the screenshot file name from a target URL:
// the scheme is dropped and "/" becomes "_".
func FileName(url string) string {
	name := strings.TrimPrefix(url, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, ":", "_")
	return name + ".png"
}
