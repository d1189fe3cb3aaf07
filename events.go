// Package main - events.go
//
// This file implements the structured event stream emitted by the
// controller. The controller never formats output itself; every transition
// becomes an Event that presentation sinks (log narrator, metrics, tray)
// consume.
package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// EventKind identifies what happened
type EventKind string

const (
	EventStarted        EventKind = "started"
	EventObserved       EventKind = "observed"
	EventBoatUnknown    EventKind = "boat_unknown"
	EventStranded       EventKind = "stranded"
	EventPlanned        EventKind = "planned"
	EventUnsolvable     EventKind = "unsolvable"
	EventShortShore     EventKind = "short_shore"
	EventBoarded        EventKind = "boarded"
	EventCrossing       EventKind = "crossing"
	EventArrived        EventKind = "arrived"
	EventArrivalTimeout EventKind = "arrival_timeout"
	EventSolved         EventKind = "solved"
	EventStopped        EventKind = "stopped"
)

// SightingCounts is the per-group token count of a sighting
type SightingCounts struct {
	LeftMissionaries   int `json:"left_m"`
	LeftCannibals      int `json:"left_c"`
	AboardMissionaries int `json:"aboard_m"`
	AboardCannibals    int `json:"aboard_c"`
	RightMissionaries  int `json:"right_m"`
	RightCannibals     int `json:"right_c"`
}

// Counts summarises a sighting
func (gs GroupedSighting) Counts() SightingCounts {
	return SightingCounts{
		LeftMissionaries:   len(gs.Left.Missionaries),
		LeftCannibals:      len(gs.Left.Cannibals),
		AboardMissionaries: len(gs.Aboard.Missionaries),
		AboardCannibals:    len(gs.Aboard.Cannibals),
		RightMissionaries:  len(gs.Right.Missionaries),
		RightCannibals:     len(gs.Right.Cannibals),
	}
}

// String implements fmt.Stringer
func (sc SightingCounts) String() string {
	return fmt.Sprintf("L %dM/%dC | boat %dM/%dC | R %dM/%dC",
		sc.LeftMissionaries, sc.LeftCannibals,
		sc.AboardMissionaries, sc.AboardCannibals,
		sc.RightMissionaries, sc.RightCannibals)
}

// Event is one controller transition
type Event struct {
	RunID    string
	Tick     int // Observations taken so far
	Step     int // Crossing number, starting at 1
	Kind     EventKind
	State    ControllerState
	Counts   SightingCounts
	BoatSide Side
	Move     *Move
	Silent   bool // High-frequency polling, narrated at debug level
	Message  string
	Err      error
	Time     time.Time
}

// EventSink consumes controller events. Emit must not block for long.
type EventSink interface {
	Emit(ev Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ev Event)

// Emit calls f(ev)
func (f EventSinkFunc) Emit(ev Event) {
	f(ev)
}

// MultiSink fans events out to several sinks in order
type MultiSink []EventSink

// Emit forwards ev to every non-nil sink
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// narrator writes events to the log with structured fields
type narrator struct {
	log *zerolog.Logger
}

// NewNarrator returns a sink that narrates progress through the global logger
func NewNarrator() EventSink {
	return &narrator{log: structuredLogger()}
}

// Emit logs one event at a level chosen by its kind
func (n *narrator) Emit(ev Event) {
	var e *zerolog.Event
	switch {
	case ev.Kind == EventStopped:
		e = n.log.Error().Err(ev.Err)
	case ev.Kind == EventUnsolvable || ev.Kind == EventArrivalTimeout || ev.Kind == EventShortShore:
		e = n.log.Warn()
	case ev.Silent || ev.Kind == EventObserved || ev.Kind == EventBoatUnknown:
		e = n.log.Debug()
	default:
		e = n.log.Info()
	}

	e = e.Str("run", ev.RunID).
		Int("tick", ev.Tick).
		Int("step", ev.Step).
		Str("kind", string(ev.Kind)).
		Str("state", ev.State.String()).
		Str("boat", ev.BoatSide.String()).
		Str("counts", ev.Counts.String())
	if ev.Move != nil {
		e = e.Str("move", ev.Move.String())
	}
	e.Msg(ev.Message)
}
