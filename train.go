// Package main - train.go
//
// Offline analysis mode for detection debugging.
// Loads a saved screenshot, locates the canvas, runs the detectors and the
// classifier, plans from the resulting state and writes an annotated copy.
//
// Usage:
//   1. Save a full-screen screenshot with the puzzle visible
//   2. Run: ferrybot analyze screen.png result.png
//   3. Check result.png for visualization
//   4. Check Debug.log for detailed detection info
package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// AnalysisReport is the outcome of analysing one screenshot
type AnalysisReport struct {
	Canvas   CanvasRegion
	Located  bool // false when the whole image was used as the canvas
	Sighting GroupedSighting
	State    SymbolicState
	Plan     []Move
	PlanErr  error
}

// AnalyzeScreenshot analyses the image at in and, if out is not empty,
// writes the annotated result there.
func AnalyzeScreenshot(cfg *Config, in, out string) (*AnalysisReport, error) {
	LogInfo("=== Analysis Started ===")

	full := gocv.IMRead(in, gocv.IMReadColor)
	if full.Empty() {
		full.Close()
		return nil, fmt.Errorf("cannot read screenshot %s", in)
	}
	defer full.Close()
	LogInfo("Image loaded: %dx%d", full.Cols(), full.Rows())

	p, err := NewPerception(cfg, nil)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	report, err := analyzeFrame(p, full)
	if err != nil {
		return nil, err
	}

	if out != "" {
		if !gocv.IMWrite(out, full) {
			return report, fmt.Errorf("failed to write %s", out)
		}
		LogInfo("Annotated result saved to %s", out)
	}
	LogInfo("=== Analysis Completed ===")
	return report, nil
}

// analyzeFrame runs the pipeline on a full BGR screenshot and draws the
// result onto it.
func analyzeFrame(p *Perception, full gocv.Mat) (*AnalysisReport, error) {
	report := &AnalysisReport{}

	rect, err := p.locator.Locate(full)
	switch {
	case err == nil:
		report.Located = true
	case errors.Is(err, ErrCanvasNotFound):
		LogWarn("Canvas not found, analysing the whole image")
		rect = image.Rect(0, 0, full.Cols(), full.Rows())
	default:
		return nil, err
	}
	report.Canvas = regionFromRect(rect)
	LogInfo("Canvas: %s (located: %v)", report.Canvas, report.Located)

	canvas := full.Region(rect)
	defer canvas.Close()

	report.Sighting = p.Analyze(canvas)
	report.State = report.Sighting.Symbolic()
	LogInfo("Groups: %s | boat %s", report.Sighting.Counts(), report.Sighting.BoatSide)

	report.Plan, report.PlanErr = Solve(report.State)
	if report.PlanErr != nil {
		LogWarn("No plan from %s: %v", report.State, report.PlanErr)
	} else {
		LogInfo("Plan from %s: %d moves", report.State, len(report.Plan))
	}

	// canvas shares its pixels with full, so the overlay lands in full
	DrawSighting(&canvas, report.Sighting)
	gocv.Rectangle(&full, rect, color.RGBA{255, 255, 0, 255}, 2)

	return report, nil
}
