package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testScreenMat(t *testing.T) gocv.Mat {
	t.Helper()
	mat, err := gocv.ImageToMatRGB(testScreen())
	require.NoError(t, err)
	return mat
}

func TestAnalyzeFrame(t *testing.T) {
	p := testPerception(nil)
	defer p.Close()
	full := testScreenMat(t)
	defer full.Close()

	report, err := analyzeFrame(p, full)

	require.NoError(t, err)
	assert.True(t, report.Located)
	assert.Equal(t, 20, report.Canvas.X)
	assert.Equal(t, 20, report.Canvas.Y)
	assert.Equal(t, SymbolicState{MissionariesLeft: 3, CannibalsLeft: 1, Boat: SideLeft}, report.State)
	require.NoError(t, report.PlanErr)
	assert.Len(t, report.Plan, 4)
	assert.Equal(t, Move{Cannibals: 1}, report.Plan[0])
}

func TestAnalyzeFrameWithoutCanvas(t *testing.T) {
	p := testPerception(nil)
	defer p.Close()
	full := blankFrame(320, 240)
	defer full.Close()

	report, err := analyzeFrame(p, full)

	require.NoError(t, err)
	assert.False(t, report.Located)
	assert.Equal(t, CanvasRegion{W: 320, H: 240}, report.Canvas)
	assert.Equal(t, SideUnknown, report.Sighting.BoatSide)
	assert.ErrorIs(t, report.PlanErr, ErrUnsolvable)
}

func TestAnalyzeScreenshot(t *testing.T) {
	dir := t.TempDir()

	writeMat := func(name string, m gocv.Mat) string {
		path := filepath.Join(dir, name)
		require.True(t, gocv.IMWrite(path, m))
		return path
	}

	screen := testScreenMat(t)
	defer screen.Close()
	mTpl := glyphTemplate(Missionary, white)
	defer mTpl.Close()
	cTpl := glyphTemplate(Cannibal, black)
	defer cTpl.Close()

	cfg := DefaultConfig()
	cfg.Templates.Missionary = writeMat("missionary.png", mTpl.Mat)
	cfg.Templates.Cannibal = writeMat("cannibal.png", cTpl.Mat)
	in := writeMat("screen.png", screen)
	out := filepath.Join(dir, "result.png")

	report, err := AnalyzeScreenshot(cfg, in, out)

	require.NoError(t, err)
	assert.Equal(t, 3, report.State.MissionariesLeft)
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestAnalyzeScreenshotMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	screen := testScreenMat(t)
	defer screen.Close()
	in := filepath.Join(dir, "screen.png")
	require.True(t, gocv.IMWrite(in, screen))

	cfg := DefaultConfig()
	cfg.Templates.Missionary = filepath.Join(dir, "missing.png")

	_, err := AnalyzeScreenshot(cfg, in, "")
	assert.ErrorIs(t, err, ErrTemplateMissing)
}
