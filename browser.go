// Package main - browser.go
//
// This file implements the browser backend: a chromedp-controlled Chrome
// window pointed at a web build of the puzzle. Browser is both a Capturer
// (clipped viewport screenshots) and a Pointer (CDP mouse events), so the
// perception and controller code is identical for desktop and browser runs.
//
// Browser Architecture:
// The Browser uses nested contexts for proper resource management:
//   - allocCtx: Allocator context for browser process management
//   - ctx: Browser context for page operations
// Both contexts have cancel functions for graceful cleanup.
//
// Timeout Strategy:
//   - Navigation: 60 seconds (slow network tolerance)
//   - Screenshot: 5 seconds (prevent hanging)
//   - Viewport query and mouse events: 2 seconds
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Default browser window size
const (
	browserWidth  = 1280
	browserHeight = 800
)

// Browser manages the chromedp browser instance for game interaction.
//
// Lifecycle:
//   1. NewBrowser(): Create instance from config
//   2. Start(): Initialize chromedp contexts and navigate to the game URL
//   3. Capture()/MoveClick(): used through the Capturer and Pointer interfaces
//   4. Close(): Clean up contexts and browser process
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCtx    context.Context
	allocCancel context.CancelFunc

	url          string
	moveDuration time.Duration
	clickPause   time.Duration
}

// NewBrowser creates a new browser instance
func NewBrowser(cfg *Config) *Browser {
	return &Browser{
		url:          cfg.GameURL,
		moveDuration: cfg.Timing.MoveDuration,
		clickPause:   cfg.Timing.ClickPause,
	}
}

// Start launches Chrome and navigates to the game URL. The browser window is
// visible so the user can watch the run.
func (b *Browser) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false), // Show browser window
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(browserWidth, browserHeight),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	LogInfo("Browser allocator context created")

	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		LogDebug(format, args...)
	}))
	LogInfo("Browser context created")

	LogInfo("Navigating to %s", b.url)

	navCtx, navCancel := context.WithTimeout(b.ctx, 60*time.Second)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(b.url)); err != nil {
		LogError("Navigation error: %v", err)
		return fmt.Errorf("navigate to %s: %w", b.url, err)
	}

	LogInfo("Navigation completed successfully")
	return nil
}

// valid reports whether the browser context can still be used
func (b *Browser) valid() bool {
	return b.ctx != nil && b.ctx.Err() == nil
}

// ScreenBounds returns the current viewport size
func (b *Browser) ScreenBounds() image.Rectangle {
	fallback := image.Rect(0, 0, browserWidth, browserHeight)
	if !b.valid() {
		return fallback
	}

	var dims []int
	evalCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &dims)); err != nil || len(dims) != 2 {
		LogDebug("Viewport query failed, using window size: %v", err)
		return fallback
	}
	return image.Rect(0, 0, dims[0], dims[1])
}

// Capture takes a screenshot of r in viewport coordinates
func (b *Browser) Capture(r image.Rectangle) (*image.RGBA, error) {
	if !b.valid() {
		return nil, fmt.Errorf("%w: browser context is invalid", ErrCaptureFailed)
	}

	var buf []byte
	captureCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	defer cancel()

	err := chromedp.Run(captureCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{
				X:      float64(r.Min.X),
				Y:      float64(r.Min.Y),
				Width:  float64(r.Dx()),
				Height: float64(r.Dy()),
				Scale:  1,
			}).
			Do(ctx)
		return err
	}))
	if err != nil {
		LogDebug("Screenshot failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCaptureFailed, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}

// MoveClick moves the page mouse to (x, y), waits, clicks and waits again
func (b *Browser) MoveClick(ctx context.Context, x, y int) error {
	if !b.valid() {
		return fmt.Errorf("browser context is invalid")
	}

	moveCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	err := chromedp.Run(moveCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)).Do(ctx)
	}))
	cancel()
	if err != nil {
		return fmt.Errorf("mouse move to (%d, %d): %w", x, y, err)
	}

	if err := pause(ctx, b.moveDuration); err != nil {
		return err
	}

	clickCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	err = chromedp.Run(clickCtx, chromedp.MouseClickXY(float64(x), float64(y)))
	cancel()
	if err != nil {
		return fmt.Errorf("click at (%d, %d): %w", x, y, err)
	}
	LogDebug("Browser click at (%d, %d)", x, y)

	return pause(ctx, b.clickPause)
}

// Close closes the browser
func (b *Browser) Close() {
	LogInfo("Closing browser...")
	if b.cancel != nil {
		LogDebug("Cancelling browser context")
		b.cancel()
	}
	if b.allocCancel != nil {
		LogDebug("Cancelling allocator context")
		b.allocCancel()
	}
	LogInfo("Browser closed successfully")
}
