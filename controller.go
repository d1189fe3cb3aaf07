// Package main - controller.go
//
// This file implements the closed-loop ferry controller as a state machine.
// It observes the canvas, plans one move with the solver, clicks the tokens
// aboard, sends the boat across and waits for the crossing to be confirmed.
//
// State Machine States:
//   - Observe: sample and classify a frame (waits one interval first)
//   - CheckTerminal: stop when everyone is on the left shore
//   - CheckStranded: click passengers left aboard back to their shore
//   - Plan: fold the sighting into a symbolic state and take the first move
//   - Board: click the passengers of the move on the departing shore
//   - Cross: click the boat at its freshest position
//   - AwaitArrival: poll until the boat side flips or attempts run out
//   - Disembark: click everyone aboard onto the arrival shore
//   - Solved, Stopped: terminal
//
// State Transitions:
//   Observe -> Observe (boat not detected)
//   Observe -> CheckTerminal
//   CheckTerminal -> Solved | CheckStranded
//   CheckStranded -> Observe (after cleanup) | Plan
//   Plan -> Board | Observe (unsolvable within retry budget, short shore)
//   Plan -> Stopped (unsolvable budget exhausted)
//   Board -> Cross -> AwaitArrival
//   AwaitArrival -> Disembark (side changed) | Observe (timeout)
//   Disembark -> Observe
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ControllerState represents the current state of the controller
type ControllerState int

const (
	StateObserve ControllerState = iota
	StateCheckTerminal
	StateCheckStranded
	StatePlan
	StateBoard
	StateCross
	StateAwaitArrival
	StateDisembark
	StateSolved
	StateStopped
)

// String returns the string representation of the state
func (s ControllerState) String() string {
	switch s {
	case StateObserve:
		return "Observe"
	case StateCheckTerminal:
		return "CheckTerminal"
	case StateCheckStranded:
		return "CheckStranded"
	case StatePlan:
		return "Plan"
	case StateBoard:
		return "Board"
	case StateCross:
		return "Cross"
	case StateAwaitArrival:
		return "AwaitArrival"
	case StateDisembark:
		return "Disembark"
	case StateSolved:
		return "Solved"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StopError is returned by Run when the controller enters Stopped.
type StopError struct {
	Step   int
	Reason string // State in which the failure happened
	Err    error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("stopped at step %d in %s: %v", e.Step, e.Reason, e.Err)
}

func (e *StopError) Unwrap() error {
	return e.Err
}

// Observer produces classified sightings of the calibrated canvas
type Observer interface {
	Observe(ctx context.Context) (GroupedSighting, error)
	Region() CanvasRegion
}

// Controller drives the puzzle to the solved state
type Controller struct {
	observer Observer
	pointer  Pointer
	sink     EventSink

	timing            TimingConfig
	unsolvableRetries int
	runID             string

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	// State machine
	state ControllerState
	step  int
	tick  int

	// Scratch of the current step, rebuilt by every Observe
	sighting   GroupedSighting
	move       Move
	departure  Side
	unsolvable int // Consecutive unsolvable plans
}

// NewController creates a controller. sink may be nil.
func NewController(cfg *Config, observer Observer, pointer Pointer, sink EventSink) *Controller {
	return &Controller{
		observer:          observer,
		pointer:           pointer,
		sink:              sink,
		timing:            cfg.Timing,
		unsolvableRetries: cfg.UnsolvableRetries,
		runID:             uuid.NewString(),
		sleep:             pause,
		now:               time.Now,
		state:             StateObserve,
		step:              1,
	}
}

// RunID returns the identifier attached to every event of this run
func (c *Controller) RunID() string {
	return c.runID
}

// State returns the current state
func (c *Controller) State() ControllerState {
	return c.state
}

// Step returns the current crossing number
func (c *Controller) Step() int {
	return c.step
}

// Run executes the state machine until the puzzle is solved (nil), the
// controller stops (*StopError) or ctx is cancelled (ctx.Err()).
func (c *Controller) Run(ctx context.Context) error {
	c.emit(Event{Kind: EventStarted, Message: fmt.Sprintf("Controller started on canvas %s", c.observer.Region())})

	for {
		if err := ctx.Err(); err != nil {
			return c.interrupted(err)
		}

		var err error
		switch c.state {
		case StateObserve:
			err = c.onObserve(ctx)
		case StateCheckTerminal:
			c.onCheckTerminal()
		case StateCheckStranded:
			err = c.onCheckStranded(ctx)
		case StatePlan:
			err = c.onPlan()
		case StateBoard:
			err = c.onBoard(ctx)
		case StateCross:
			err = c.onCross(ctx)
		case StateAwaitArrival:
			err = c.onAwaitArrival(ctx)
		case StateDisembark:
			err = c.onDisembark(ctx)
		case StateSolved:
			return nil
		default:
			return c.stop(fmt.Errorf("unexpected state %s", c.state))
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.interrupted(ctxErr)
			}
			return c.stop(err)
		}
	}
}

func (c *Controller) onObserve(ctx context.Context) error {
	if err := c.sleep(ctx, c.timing.ObserveInterval); err != nil {
		return err
	}

	gs, err := c.observe(ctx, false)
	if err != nil {
		return err
	}

	if gs.BoatSide == SideUnknown {
		c.emit(sightingEvent(EventBoatUnknown, gs, "Boat not detected, waiting"))
		return nil
	}

	c.sighting = gs
	c.state = StateCheckTerminal
	return nil
}

func (c *Controller) onCheckTerminal() {
	if c.sighting.Solved() {
		c.state = StateSolved
		c.emit(sightingEvent(EventSolved, c.sighting, "Puzzle solved"))
		return
	}
	c.state = StateCheckStranded
}

func (c *Controller) onCheckStranded(ctx context.Context) error {
	aboard := c.sighting.Aboard
	if aboard.Empty() {
		c.state = StatePlan
		return nil
	}

	c.emit(sightingEvent(EventStranded, c.sighting,
		fmt.Sprintf("Unloading %d stranded passengers", aboard.Len())))
	if err := c.clickAll(ctx, aboard); err != nil {
		return err
	}
	if err := c.sleep(ctx, c.timing.StrandedSettle); err != nil {
		return err
	}
	c.state = StateObserve
	return nil
}

func (c *Controller) onPlan() error {
	symbolic := c.sighting.Symbolic()

	mv, ok, err := NextMove(symbolic)
	if err != nil {
		if !errors.Is(err, ErrUnsolvable) {
			return err
		}
		c.unsolvable++
		ev := sightingEvent(EventUnsolvable, c.sighting,
			fmt.Sprintf("No plan from %s (%d/%d)", symbolic, c.unsolvable, c.unsolvableRetries))
		ev.Err = err
		c.emit(ev)
		if c.unsolvable > c.unsolvableRetries {
			return err
		}
		c.state = StateObserve
		return nil
	}
	c.unsolvable = 0

	if !ok {
		// Symbolic goal without a solved sighting; look again.
		c.state = StateObserve
		return nil
	}

	side := c.sighting.BoatSide
	shore := c.sighting.Shore(side)
	if len(shore.Of(Missionary)) < mv.Of(Missionary) || len(shore.Of(Cannibal)) < mv.Of(Cannibal) {
		ev := sightingEvent(EventShortShore, c.sighting,
			fmt.Sprintf("Move %s needs more tokens than seen on the %s shore", mv, side))
		ev.Move = &mv
		c.emit(ev)
		c.state = StateObserve
		return nil
	}

	c.move = mv
	c.departure = side
	ev := sightingEvent(EventPlanned, c.sighting,
		fmt.Sprintf("Step %d: board %d missionaries and %d cannibals, cross to the %s",
			c.step, mv.Missionaries, mv.Cannibals, side.Opposite()))
	ev.Move = &mv
	c.emit(ev)
	c.state = StateBoard
	return nil
}

func (c *Controller) onBoard(ctx context.Context) error {
	shore := c.sighting.Shore(c.departure)
	for _, class := range clickOrder {
		for _, p := range shore.Of(class)[:c.move.Of(class)] {
			if err := c.click(ctx, p); err != nil {
				return err
			}
		}
	}

	ev := sightingEvent(EventBoarded, c.sighting, "Passengers boarding")
	mv := c.move
	ev.Move = &mv
	c.emit(ev)

	if err := c.sleep(ctx, c.timing.BoardSettle); err != nil {
		return err
	}
	c.state = StateCross
	return nil
}

func (c *Controller) onCross(ctx context.Context) error {
	boat := c.sighting.Boat
	gs, err := c.observe(ctx, true)
	switch {
	case err != nil && ctx.Err() != nil:
		return err
	case err != nil:
		LogWarn("Pre-crossing sample failed, using last boat position: %v", err)
	case gs.Boat != nil:
		boat = gs.Boat
	}
	if boat == nil {
		return fmt.Errorf("boat position unknown before crossing")
	}

	if err := c.click(ctx, *boat); err != nil {
		return err
	}
	c.emit(sightingEvent(EventCrossing, c.sighting, "Crossing the river"))
	c.state = StateAwaitArrival
	return nil
}

func (c *Controller) onAwaitArrival(ctx context.Context) error {
	for attempt := 1; attempt <= c.timing.ArrivalAttempts; attempt++ {
		if err := c.sleep(ctx, c.timing.ArrivalPoll); err != nil {
			return err
		}

		gs, err := c.observe(ctx, true)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			LogDebug("Arrival poll %d failed: %v", attempt, err)
			continue
		}

		if gs.BoatSide != SideUnknown && gs.BoatSide != c.departure {
			c.sighting = gs
			c.emit(sightingEvent(EventArrived, gs,
				fmt.Sprintf("Boat arrived on the %s after %d polls", gs.BoatSide, attempt)))
			c.state = StateDisembark
			return nil
		}
	}

	c.emit(sightingEvent(EventArrivalTimeout, c.sighting,
		fmt.Sprintf("No crossing confirmed after %d polls", c.timing.ArrivalAttempts)))
	c.step++
	c.state = StateObserve
	return nil
}

func (c *Controller) onDisembark(ctx context.Context) error {
	if err := c.clickAll(ctx, c.sighting.Aboard); err != nil {
		return err
	}
	c.step++
	c.state = StateObserve
	return nil
}

// observe takes one sighting and reports it on the event stream
func (c *Controller) observe(ctx context.Context, silent bool) (GroupedSighting, error) {
	c.tick++
	gs, err := c.observer.Observe(ctx)
	if err != nil {
		return GroupedSighting{}, fmt.Errorf("observe: %w", err)
	}
	ev := sightingEvent(EventObserved, gs, "Observed")
	ev.Silent = silent
	c.emit(ev)
	return gs, nil
}

// clickOrder is the order tokens are clicked in: missionaries first
var clickOrder = []EntityClass{Missionary, Cannibal}

// clickAll clicks every token of g
func (c *Controller) clickAll(ctx context.Context, g ShoreGroup) error {
	for _, class := range clickOrder {
		for _, p := range g.Of(class) {
			if err := c.click(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Controller) click(ctx context.Context, p Point) error {
	return ClickCanvasPoint(ctx, c.pointer, c.observer.Region(), p)
}

func (c *Controller) stop(err error) error {
	se := &StopError{Step: c.step, Reason: c.state.String(), Err: err}
	c.state = StateStopped
	c.emit(Event{Kind: EventStopped, Err: se, Message: "Controller stopped"})
	return se
}

func (c *Controller) interrupted(err error) error {
	c.emit(Event{Kind: EventStopped, Err: err, Message: "Controller interrupted"})
	return err
}

func (c *Controller) emit(ev Event) {
	if c.sink == nil {
		return
	}
	ev.RunID = c.runID
	ev.Tick = c.tick
	ev.Step = c.step
	ev.State = c.state
	ev.Time = c.now()
	c.sink.Emit(ev)
}

func sightingEvent(kind EventKind, gs GroupedSighting, msg string) Event {
	return Event{Kind: kind, Counts: gs.Counts(), BoatSide: gs.BoatSide, Message: msg}
}
