// Package convert turns a vendor page URL into cleaned content cached on disk.
package convert

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Driver is the four-call contract the converter needs from a browser
// automation session: navigate, wait for readiness, settle, and extract the
// rendered body markup. It is injected so tests can substitute a fake and a
// future concurrent implementation can hold a pool of sessions.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context) error
	Sleep(ctx context.Context, d time.Duration) error
	HTML(ctx context.Context) (string, error)
}

// BrowserDriver is a chromedp-backed Driver owning a single headless browser
// session. Only one navigation may be in flight at a time.
type BrowserDriver struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBrowserDriver starts a headless browser session. The caller owns the
// returned driver and must Close it.
func NewBrowserDriver(ctx context.Context) (*BrowserDriver, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a missing Chrome fails here, not mid-batch.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &BrowserDriver{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

// Navigate loads a URL in the session.
func (d *BrowserDriver) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(d.runCtx(ctx), chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitReady blocks until the document body exists.
func (d *BrowserDriver) WaitReady(ctx context.Context) error {
	if err := chromedp.Run(d.runCtx(ctx), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("wait for page load: %w", err)
	}
	return nil
}

// Sleep lets client-side rendering settle before extraction.
func (d *BrowserDriver) Sleep(ctx context.Context, dur time.Duration) error {
	return chromedp.Run(d.runCtx(ctx), chromedp.Sleep(dur))
}

// HTML returns the rendered body markup.
func (d *BrowserDriver) HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(d.runCtx(ctx), chromedp.OuterHTML("body", &html)); err != nil {
		return "", fmt.Errorf("extract rendered HTML: %w", err)
	}
	return html, nil
}

// Close tears down the browser session.
func (d *BrowserDriver) Close() {
	d.cancel()
}

// runCtx bounds a session action with the caller's deadline/cancellation.
func (d *BrowserDriver) runCtx(ctx context.Context) context.Context {
	merged, cancel := context.WithCancel(d.ctx)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}
