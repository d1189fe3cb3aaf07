// Package main - solver.go
//
// Breadth-first planner over the missionaries/cannibals state graph.
//
// A state is (missionariesLeft, cannibalsLeft, boatSide). From a state the
// candidate moves are tried in the fixed order (1,0) (2,0) (0,1) (0,2) (1,1),
// counted against the shore holding the boat. The first path that reaches a
// state is kept, so the returned plan is shortest in move count with ties
// broken by that order.
package main

import (
	"errors"
	"fmt"
)

// ErrUnsolvable is returned when no admissible path reaches the goal.
var ErrUnsolvable = errors.New("no admissible path to goal")

// candidateMoves is the expansion order. It also decides tie-breaks.
var candidateMoves = []Move{
	{Missionaries: 1, Cannibals: 0},
	{Missionaries: 2, Cannibals: 0},
	{Missionaries: 0, Cannibals: 1},
	{Missionaries: 0, Cannibals: 2},
	{Missionaries: 1, Cannibals: 1},
}

// Apply returns the state after ferrying m across from the boat's shore.
// The boat side must be known.
func (s SymbolicState) Apply(m Move) SymbolicState {
	switch s.Boat {
	case SideLeft:
		return SymbolicState{
			MissionariesLeft: s.MissionariesLeft - m.Missionaries,
			CannibalsLeft:    s.CannibalsLeft - m.Cannibals,
			Boat:             SideRight,
		}
	case SideRight:
		return SymbolicState{
			MissionariesLeft: s.MissionariesLeft + m.Missionaries,
			CannibalsLeft:    s.CannibalsLeft + m.Cannibals,
			Boat:             SideLeft,
		}
	default:
		return s
	}
}

// Admissible reports whether a state may appear on a plan
func (s SymbolicState) Admissible() bool {
	return s.Boat != SideUnknown && s.InRange() && s.Safe()
}

// Solve returns the ordered moves leading from start to GoalState. An
// already-solved start yields an empty, non-nil plan.
func Solve(start SymbolicState) ([]Move, error) {
	if start.Boat == SideUnknown {
		return nil, fmt.Errorf("solve %s: boat side unknown: %w", start, ErrUnsolvable)
	}
	if !start.InRange() || !start.Safe() {
		return nil, fmt.Errorf("solve %s: lost configuration: %w", start, ErrUnsolvable)
	}

	type node struct {
		state SymbolicState
		path  []Move
	}

	queue := []node{{state: start, path: []Move{}}}
	visited := map[SymbolicState]bool{start: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.state == GoalState {
			return current.path, nil
		}

		for _, mv := range candidateMoves {
			next := current.state.Apply(mv)
			if !next.Admissible() || visited[next] {
				continue
			}
			visited[next] = true

			path := make([]Move, len(current.path), len(current.path)+1)
			copy(path, current.path)
			queue = append(queue, node{state: next, path: append(path, mv)})
		}
	}

	return nil, fmt.Errorf("solve %s: %w", start, ErrUnsolvable)
}

// NextMove returns the first move of a fresh plan from the observed state.
// ok is false when the state is already the goal.
func NextMove(state SymbolicState) (mv Move, ok bool, err error) {
	plan, err := Solve(state)
	if err != nil {
		return Move{}, false, err
	}
	if len(plan) == 0 {
		return Move{}, false, nil
	}
	return plan[0], true, nil
}

// Trace replays a plan from start and returns every visited state, start
// included. It stops early and reports false on the first inadmissible state.
func Trace(start SymbolicState, plan []Move) ([]SymbolicState, bool) {
	states := []SymbolicState{start}
	current := start
	for _, mv := range plan {
		if !mv.Valid() {
			return states, false
		}
		current = current.Apply(mv)
		states = append(states, current)
		if !current.Admissible() {
			return states, false
		}
	}
	return states, true
}
