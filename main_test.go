package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := execute([]string{"solve", "0", "0", "right"}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "11 moves from (0,0,right)", lines[0])
	assert.Equal(t, " 1. board (0,2) -> (0,2,left)", lines[1])
	assert.True(t, strings.HasSuffix(lines[11], "-> (3,3,left)"))
}

func TestSolveCommandAlreadySolved(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := execute([]string{"solve", "3", "3", "left"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "0 moves from (3,3,left)\n", stdout.String())
}

func TestSolveCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unsolvable", []string{"solve", "3", "3", "right"}, exitStopped},
		{"lost configuration", []string{"solve", "1", "2", "left"}, exitStopped},
		{"bad side", []string{"solve", "0", "0", "up"}, exitStartup},
		{"bad count", []string{"solve", "x", "0", "left"}, exitStartup},
		{"missing args", []string{"solve", "0"}, exitStartup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, execute(tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, exitOK},
		{"interrupted", fmt.Errorf("run: %w", context.Canceled), exitInterrupted},
		{"calibration", withExit(exitCalibration, ErrCanvasNotFound), exitCalibration},
		{"stopped", &StopError{Step: 3, Reason: "Plan", Err: ErrUnsolvable}, exitStopped},
		{"other", errors.New("boom"), exitStartup},
		{"interrupted during calibration", withExit(exitCalibration, context.Canceled), exitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, exitCode(tt.err))
		})
	}
}
