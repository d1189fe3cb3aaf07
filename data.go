// Package main - data.go
//
// This file defines the core data structures shared by perception, planning and control.
//
// Major Data Categories:
//
// 1. Geometric Types:
//    - Point: pixel coordinates relative to the located canvas
//    - CanvasRegion: the game surface rectangle in screen coordinates
//
// 2. Puzzle State:
//    - EntityClass: Missionary or Cannibal
//    - Side: Left, Right or Unknown (boat position / shore)
//    - SymbolicState: left-shore counts plus boat side, used by the solver
//    - Move: how many missionaries/cannibals board for one crossing
//
// 3. Per-tick Perception Result:
//    - ShoreGroup: detected token positions per class
//    - GroupedSighting: left shore, aboard and right shore groups plus boat data
//
// All types are value types and are recomputed each tick; only the CanvasRegion
// survives across ticks.
package main

import (
	"fmt"
	"image"
	"math"
)

const (
	// TokensPerClass is the number of missionaries (and of cannibals) in the puzzle.
	TokensPerClass = 3
	// BoatCapacity is the maximum number of passengers for one crossing.
	BoatCapacity = 2
)

// Point represents a 2D pixel coordinate relative to the canvas region.
type Point struct {
	X int
	Y int
}

// Distance calculates Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// String implements fmt.Stringer
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// CanvasRegion is the rectangle of the game surface in screen coordinates.
// It is set once by calibration and read by every later tick.
type CanvasRegion struct {
	X int // Top-left X coordinate
	Y int // Top-left Y coordinate
	W int // Width
	H int // Height
}

// regionFromRect converts an image.Rectangle to a CanvasRegion
func regionFromRect(r image.Rectangle) CanvasRegion {
	return CanvasRegion{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the region as an image.Rectangle
func (r CanvasRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Empty reports whether the region has no area
func (r CanvasRegion) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// ToScreen converts a canvas-relative point to screen coordinates
func (r CanvasRegion) ToScreen(p Point) Point {
	return Point{X: r.X + p.X, Y: r.Y + p.Y}
}

// String implements fmt.Stringer
func (r CanvasRegion) String() string {
	return fmt.Sprintf("X:%d Y:%d (%dx%d)", r.X, r.Y, r.W, r.H)
}

// EntityClass enumerates the token kinds
type EntityClass int

const (
	Missionary EntityClass = iota
	Cannibal
)

// String returns the string representation of the class
func (c EntityClass) String() string {
	switch c {
	case Missionary:
		return "missionary"
	case Cannibal:
		return "cannibal"
	default:
		return "unknown"
	}
}

// Side is a shore, or where the boat currently is
type Side int

const (
	SideUnknown Side = iota
	SideLeft
	SideRight
)

// String returns the string representation of the side
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// Opposite returns the other shore. Unknown stays Unknown.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideUnknown
	}
}

// ParseSide parses "left"/"right" (also "l"/"r")
func ParseSide(s string) (Side, error) {
	switch s {
	case "left", "l", "L", "Left":
		return SideLeft, nil
	case "right", "r", "R", "Right":
		return SideRight, nil
	default:
		return SideUnknown, fmt.Errorf("unknown side %q", s)
	}
}

// SymbolicState is the planning view of the puzzle. Right-shore counts are
// always TokensPerClass minus the left counts.
type SymbolicState struct {
	MissionariesLeft int
	CannibalsLeft    int
	Boat             Side
}

// GoalState is everyone ferried to the left shore with the boat on the left.
var GoalState = SymbolicState{MissionariesLeft: TokensPerClass, CannibalsLeft: TokensPerClass, Boat: SideLeft}

// MissionariesRight returns the missionaries on the right shore
func (s SymbolicState) MissionariesRight() int {
	return TokensPerClass - s.MissionariesLeft
}

// CannibalsRight returns the cannibals on the right shore
func (s SymbolicState) CannibalsRight() int {
	return TokensPerClass - s.CannibalsLeft
}

// InRange reports whether both left counts lie in [0, TokensPerClass]
func (s SymbolicState) InRange() bool {
	return s.MissionariesLeft >= 0 && s.MissionariesLeft <= TokensPerClass &&
		s.CannibalsLeft >= 0 && s.CannibalsLeft <= TokensPerClass
}

// Safe reports whether the safety invariant holds on both shores: cannibals
// never outnumber missionaries where missionaries are present.
func (s SymbolicState) Safe() bool {
	if s.MissionariesLeft > 0 && s.MissionariesLeft < s.CannibalsLeft {
		return false
	}
	if s.MissionariesRight() > 0 && s.MissionariesRight() < s.CannibalsRight() {
		return false
	}
	return true
}

// String implements fmt.Stringer
func (s SymbolicState) String() string {
	return fmt.Sprintf("(%d,%d,%s)", s.MissionariesLeft, s.CannibalsLeft, s.Boat)
}

// Move is one crossing: how many of each class board the boat.
type Move struct {
	Missionaries int
	Cannibals    int
}

// Valid reports whether the move is non-empty and within boat capacity
func (m Move) Valid() bool {
	total := m.Missionaries + m.Cannibals
	return m.Missionaries >= 0 && m.Cannibals >= 0 && total >= 1 && total <= BoatCapacity
}

// Of returns how many tokens of class board
func (m Move) Of(class EntityClass) int {
	if class == Missionary {
		return m.Missionaries
	}
	return m.Cannibals
}

// String implements fmt.Stringer
func (m Move) String() string {
	return fmt.Sprintf("(%d,%d)", m.Missionaries, m.Cannibals)
}

// ShoreGroup holds the detected token positions of one group
type ShoreGroup struct {
	Missionaries []Point
	Cannibals    []Point
}

// Of returns the positions of the given class
func (g ShoreGroup) Of(class EntityClass) []Point {
	if class == Missionary {
		return g.Missionaries
	}
	return g.Cannibals
}

// Len returns the total number of tokens in the group
func (g ShoreGroup) Len() int {
	return len(g.Missionaries) + len(g.Cannibals)
}

// Empty reports whether the group holds no tokens
func (g ShoreGroup) Empty() bool {
	return g.Len() == 0
}

// add appends a point to the group for the given class
func (g *ShoreGroup) add(class EntityClass, p Point) {
	if class == Missionary {
		g.Missionaries = append(g.Missionaries, p)
	} else {
		g.Cannibals = append(g.Cannibals, p)
	}
}

// GroupedSighting is the per-tick classification of all detections.
type GroupedSighting struct {
	Left     ShoreGroup
	Aboard   ShoreGroup
	Right    ShoreGroup
	BoatSide Side
	Boat     *Point // nil if the boat was not detected this tick
}

// Shore returns the group for a shore side. Unknown returns an empty group.
func (gs GroupedSighting) Shore(side Side) ShoreGroup {
	switch side {
	case SideLeft:
		return gs.Left
	case SideRight:
		return gs.Right
	default:
		return ShoreGroup{}
	}
}

// Solved reports whether every token stands on the left shore with the boat
// on the left and nobody aboard.
func (gs GroupedSighting) Solved() bool {
	return len(gs.Left.Missionaries) == TokensPerClass &&
		len(gs.Left.Cannibals) == TokensPerClass &&
		gs.BoatSide == SideLeft &&
		gs.Aboard.Empty()
}

// Symbolic folds the aboard passengers into the shore the boat currently
// departs from and returns the planning state.
func (gs GroupedSighting) Symbolic() SymbolicState {
	m := len(gs.Left.Missionaries)
	c := len(gs.Left.Cannibals)
	if gs.BoatSide == SideLeft {
		m += len(gs.Aboard.Missionaries)
		c += len(gs.Aboard.Cannibals)
	}
	return SymbolicState{MissionariesLeft: m, CannibalsLeft: c, Boat: gs.BoatSide}
}
