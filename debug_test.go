package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestInitLoggerTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Debug.log")
	require.NoError(t, os.WriteFile(path, []byte("stale line from a previous run\n"), 0644))

	require.NoError(t, InitLogger(path, "debug"))
	LogDebug("detector ready")
	CloseLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale line")
	assert.Contains(t, string(data), "detector ready")
	assert.Contains(t, string(data), "Logger closing")
}

func TestInitLoggerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Debug.log")

	require.NoError(t, InitLogger(path, "warn"))
	LogInfo("hidden")
	LogWarn("shown")
	CloseLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.Contains(t, string(data), "shown")
}

func TestLogBeforeInit(t *testing.T) {
	CloseLogger()

	assert.NotPanics(t, func() {
		LogInfo("nobody listening")
		LogError("still nobody")
	})
}

func TestSaveDebugFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	frame := blankFrame(200, 120)
	defer frame.Close()
	boat := Point{X: 100, Y: 90}
	gs := GroupedSighting{
		Left:     ShoreGroup{Missionaries: []Point{{X: 20, Y: 30}}},
		Aboard:   ShoreGroup{Cannibals: []Point{{X: 100, Y: 60}}},
		Right:    ShoreGroup{Cannibals: []Point{{X: 180, Y: 30}}},
		BoatSide: SideLeft,
		Boat:     &boat,
	}

	path, err := SaveDebugFrame(dir, 3, frame, gs)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "tick_0003_"))
	saved := gocv.IMRead(path, gocv.IMReadColor)
	defer saved.Close()
	require.False(t, saved.Empty())
	assert.Equal(t, 200, saved.Cols())
	assert.Equal(t, 120, saved.Rows())

	// The source frame is not annotated.
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(gray))
}
