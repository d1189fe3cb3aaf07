// Package main - action.go
//
// This file implements simulated pointer input for the desktop backend.
// All clicks go through the Pointer interface so the controller does not
// care whether input is native (robotgo) or dispatched into a browser tab
// (chromedp, see browser.go).
//
// Key Responsibilities:
//   - Move+click gestures with the configured settle delays
//   - Game window activation before calibration
//   - Canvas to screen coordinate conversion for clicks
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
)

// Pointer performs one move+click gesture at screen (or viewport)
// coordinates. Implementations wait for the gesture to settle before
// returning.
type Pointer interface {
	MoveClick(ctx context.Context, x, y int) error
}

// robotPointer drives the native OS pointer through robotgo.
type robotPointer struct {
	moveDuration time.Duration // Wait between move and click
	clickPause   time.Duration // Wait after the click
}

// NewRobotPointer creates the desktop pointer with the configured timing
func NewRobotPointer(timing TimingConfig) Pointer {
	return &robotPointer{
		moveDuration: timing.MoveDuration,
		clickPause:   timing.ClickPause,
	}
}

// MoveClick moves the cursor to (x, y), waits, clicks and waits again
func (rp *robotPointer) MoveClick(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	robotgo.Move(x, y)
	if err := pause(ctx, rp.moveDuration); err != nil {
		return err
	}

	robotgo.Click("left")
	LogDebug("Click at (%d, %d)", x, y)

	return pause(ctx, rp.clickPause)
}

// FocusWindow activates the game window by title. Failure is reported to the
// caller, which treats it as a warning.
func FocusWindow(title string) error {
	if title == "" {
		return nil
	}
	if err := robotgo.ActiveName(title); err != nil {
		return fmt.Errorf("activate window %q: %w", title, err)
	}
	LogInfo("Activated window %q", title)
	return nil
}

// ClickCanvasPoint clicks a point given in canvas coordinates
func ClickCanvasPoint(ctx context.Context, ptr Pointer, region CanvasRegion, p Point) error {
	s := region.ToScreen(p)
	return ptr.MoveClick(ctx, s.X, s.Y)
}

// pause sleeps for d or until ctx is cancelled
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
