// Package main - tray.go
//
// This file implements the system tray status display.
// Uses getlantern/systray library for cross-platform tray menu support.
//
// Menu Structure:
//   Ferry Bot
//   ├─ Status: controller state and step (read-only)
//   ├─ Shores: token counts per group (read-only)
//   ├─ Last move (read-only)
//   └─ Quit (cancels the run)
//
// The tray is an EventSink: the controller never talks to it directly.
//
// Lifecycle:
//   1. NewTrayApp: Create instance with the run function and its cancel
//   2. Run: Start systray (blocking call, must own the main thread)
//   3. onReady: Build the menu and start the run in the background
//   4. Emit: Update menu titles from controller events
//   5. The run returning, or Quit, ends systray
//   6. Run waits for the run to return before handing back control
package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// TrayApp shows controller progress in the system tray.
type TrayApp struct {
	work   func() // Started once the tray is ready
	cancel context.CancelFunc

	mu      sync.Mutex
	ready   bool
	started bool
	done    chan struct{} // Closed when work returns

	// Menu items
	statusItem *systray.MenuItem
	shoresItem *systray.MenuItem
	moveItem   *systray.MenuItem
	quitItem   *systray.MenuItem
}

// NewTrayApp creates a new tray application. work runs in the background
// after the tray is ready; cancel is called on Quit.
func NewTrayApp(work func(), cancel context.CancelFunc) *TrayApp {
	return &TrayApp{
		work:   work,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Run starts the tray application and blocks until it exits and the work
// function has returned
func (t *TrayApp) Run() {
	LogInfo("Starting system tray application")
	systray.Run(t.onReady, func() {
		LogInfo("System tray onExit callback triggered")
		t.mu.Lock()
		t.ready = false
		t.mu.Unlock()
		t.cancel()
	})
	LogInfo("System tray Run() returned, waiting for the run to finish")
	t.Wait()
}

// Wait blocks until the work function has returned. It returns at once if
// work was never started.
func (t *TrayApp) Wait() {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if started {
		<-t.done
	}
}

// start runs work in the background, then calls after
func (t *TrayApp) start(after func()) {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	go func() {
		defer close(t.done)
		t.work()
		after()
	}()
}

// onReady is called when the tray is ready
func (t *TrayApp) onReady() {
	systray.SetTitle("Ferry Bot")
	systray.SetTooltip("Missionaries and cannibals ferry bot")

	t.statusItem = systray.AddMenuItem("Status: Starting...", "Controller state")
	t.statusItem.Disable()
	t.shoresItem = systray.AddMenuItem("Shores: -", "Tokens per group")
	t.shoresItem.Disable()
	t.moveItem = systray.AddMenuItem("Last move: -", "Last planned move")
	t.moveItem.Disable()

	systray.AddSeparator()
	t.quitItem = systray.AddMenuItem("Quit", "Stop the bot")

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()

	go t.handleEvents()

	// Start the run in background after tray is ready
	t.start(func() {
		LogInfo("Run finished, quitting system tray")
		systray.Quit()
	})
}

// handleEvents handles tray menu events
func (t *TrayApp) handleEvents() {
	<-t.quitItem.ClickedCh
	LogInfo("Quit requested by user")
	t.cancel()
	systray.Quit()
}

// Emit updates the menu from a controller event
func (t *TrayApp) Emit(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	t.statusItem.SetTitle(trayStatus(ev))
	if ev.Kind == EventObserved || ev.Kind == EventArrived {
		t.shoresItem.SetTitle(fmt.Sprintf("Shores: %s", ev.Counts))
	}
	if ev.Kind == EventPlanned && ev.Move != nil {
		t.moveItem.SetTitle(fmt.Sprintf("Last move: step %d %s to the %s", ev.Step, ev.Move, ev.BoatSide.Opposite()))
	}
}

// trayStatus formats the status line for an event
func trayStatus(ev Event) string {
	switch ev.Kind {
	case EventSolved:
		return fmt.Sprintf("Status: Solved in %d crossings", ev.Step-1)
	case EventStopped:
		return fmt.Sprintf("Status: Stopped at step %d", ev.Step)
	case EventArrivalTimeout:
		return fmt.Sprintf("Status: Step %d | arrival not confirmed", ev.Step)
	default:
		return fmt.Sprintf("Status: Step %d | %s", ev.Step, ev.State)
	}
}
