// Package main - sampler.go
//
// This file implements frame sampling and the perception pipeline.
//
// Perception Flow:
//   1. Calibrate(): capture the whole screen once and locate the canvas
//   2. Sample(): capture only the canvas region, producing a Frame
//   3. Analyze(): detect missionaries, cannibals and the boat in a Frame
//      and classify them into shore/aboard groups
//   4. Observe(): Sample + Analyze, closing the frame afterwards
//
// Frames are explicit values. Nothing from one tick leaks into the next
// except the calibrated CanvasRegion.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"gocv.io/x/gocv"
)

// ErrCaptureFailed is returned when the capture backend cannot produce a frame.
var ErrCaptureFailed = errors.New("screen capture failed")

// Capturer is the raw capture primitive. Rectangles are in screen (or
// viewport) coordinates.
type Capturer interface {
	ScreenBounds() image.Rectangle
	Capture(r image.Rectangle) (*image.RGBA, error)
}

// screenCapturer captures the desktop through kbinani/screenshot.
type screenCapturer struct{}

// NewScreenCapturer returns the desktop capture backend
func NewScreenCapturer() Capturer {
	return screenCapturer{}
}

// ScreenBounds returns the union of all active display bounds
func (screenCapturer) ScreenBounds() image.Rectangle {
	var all image.Rectangle
	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all
}

// Capture grabs r from the desktop
func (screenCapturer) Capture(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	return img, nil
}

// Frame is one cropped colour capture of the canvas.
type Frame struct {
	Mat    gocv.Mat     // BGR, canvas-relative coordinates
	Region CanvasRegion // Where the frame was taken from
}

// Close releases the frame
func (f *Frame) Close() {
	if f != nil {
		f.Mat.Close()
	}
}

// captureMat captures r and converts it to a BGR Mat
func captureMat(c Capturer, r image.Rectangle) (gocv.Mat, error) {
	img, err := c.Capture(r)
	if err != nil {
		return gocv.NewMat(), err
	}
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("%w: empty image", ErrCaptureFailed)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: convert: %v", ErrCaptureFailed, err)
	}
	return mat, nil
}

// Perception turns captures into classified sightings.
type Perception struct {
	capturer   Capturer
	locator    *CanvasLocator
	entities   *EntityDetector
	boats      *BoatDetector
	classifier *StateClassifier
	missionary *Template
	cannibal   *Template
	debug      DebugConfig

	region  CanvasRegion
	samples int
}

// NewPerception loads both templates and builds the detectors. capturer may
// be nil for offline analysis.
func NewPerception(cfg *Config, capturer Capturer) (*Perception, error) {
	missionary, err := LoadTemplate(Missionary, cfg.Templates.Missionary)
	if err != nil {
		return nil, err
	}
	cannibal, err := LoadTemplate(Cannibal, cfg.Templates.Cannibal)
	if err != nil {
		missionary.Close()
		return nil, err
	}
	return newPerception(cfg, capturer, missionary, cannibal), nil
}

func newPerception(cfg *Config, capturer Capturer, missionary, cannibal *Template) *Perception {
	return &Perception{
		capturer:   capturer,
		locator:    NewCanvasLocator(cfg.Detect.Canvas),
		entities:   NewEntityDetector(cfg.Detect.Match),
		boats:      NewBoatDetector(cfg.Detect.Boat),
		classifier: NewStateClassifier(cfg.Detect.Aboard),
		missionary: missionary,
		cannibal:   cannibal,
		debug:      cfg.Debug,
	}
}

// Close releases the templates
func (p *Perception) Close() {
	p.missionary.Close()
	p.cannibal.Close()
}

// Region returns the calibrated canvas region
func (p *Perception) Region() CanvasRegion {
	return p.region
}

// Calibrate captures the whole screen and locates the canvas. The region is
// kept for every later Sample.
func (p *Perception) Calibrate(ctx context.Context) (CanvasRegion, error) {
	if err := ctx.Err(); err != nil {
		return CanvasRegion{}, err
	}
	if p.capturer == nil {
		return CanvasRegion{}, fmt.Errorf("%w: no capture backend", ErrCaptureFailed)
	}

	bounds := p.capturer.ScreenBounds()
	if bounds.Empty() {
		return CanvasRegion{}, fmt.Errorf("%w: no active display", ErrCaptureFailed)
	}

	full, err := captureMat(p.capturer, bounds)
	if err != nil {
		return CanvasRegion{}, err
	}
	defer full.Close()

	rect, err := p.locator.Locate(full)
	if err != nil {
		return CanvasRegion{}, err
	}

	p.region = regionFromRect(rect.Add(bounds.Min))
	LogInfo("Canvas located at %s", p.region)
	return p.region, nil
}

// Sample captures the canvas region. The caller must Close the frame.
func (p *Perception) Sample(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.region.Empty() {
		return nil, ErrCanvasNotFound
	}
	mat, err := captureMat(p.capturer, p.region.Rect())
	if err != nil {
		return nil, err
	}
	return &Frame{Mat: mat, Region: p.region}, nil
}

// Analyze runs both entity detectors, the boat detector and the classifier
// on a BGR canvas frame.
func (p *Perception) Analyze(frame gocv.Mat) GroupedSighting {
	missionaries := p.entities.Detect(frame, p.missionary)
	cannibals := p.entities.Detect(frame, p.cannibal)
	boat := p.boats.Detect(frame)
	return p.classifier.Classify(frame.Cols(), missionaries, cannibals, boat)
}

// Observe samples one frame and classifies it
func (p *Perception) Observe(ctx context.Context) (GroupedSighting, error) {
	frame, err := p.Sample(ctx)
	if err != nil {
		return GroupedSighting{}, err
	}
	defer frame.Close()

	gs := p.Analyze(frame.Mat)
	p.samples++

	if p.debug.Enable {
		if _, err := SaveDebugFrame(p.debug.Dir, p.samples, frame.Mat, gs); err != nil {
			LogWarn("Debug frame not saved: %v", err)
		}
	}
	return gs, nil
}
