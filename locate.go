// Package main - locate.go
//
// This file finds the game canvas inside a full-screen capture using OpenCV
// HSV colour matching. The background palette of the puzzle uses two hue
// bands (purple sky, green banks); the largest blob that covers both is the
// playing surface.
package main

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrCanvasNotFound is returned when no region passes the area filter.
var ErrCanvasNotFound = errors.New("game canvas not found")

// HSVBand is an inclusive HSV range in OpenCV units (H 0-180, S/V 0-255).
type HSVBand struct {
	MinH int `mapstructure:"min_h" validate:"gte=0,ltefield=MaxH"`
	MaxH int `mapstructure:"max_h" validate:"lte=180"`
	MinS int `mapstructure:"min_s" validate:"gte=0,ltefield=MaxS"`
	MaxS int `mapstructure:"max_s" validate:"lte=255"`
	MinV int `mapstructure:"min_v" validate:"gte=0,ltefield=MaxV"`
	MaxV int `mapstructure:"max_v" validate:"lte=255"`
}

// Valid reports whether every minimum is below its maximum and within range
func (b HSVBand) Valid() bool {
	return configValidate.Struct(b) == nil
}

// inRange writes the binary mask of hsv pixels inside the band to dst
func (b HSVBand) inRange(hsv gocv.Mat, dst *gocv.Mat) error {
	lower := gocv.NewScalar(float64(b.MinH), float64(b.MinS), float64(b.MinV), 0)
	upper := gocv.NewScalar(float64(b.MaxH), float64(b.MaxS), float64(b.MaxV), 0)
	return gocv.InRangeWithScalar(hsv, lower, upper, dst)
}

// CanvasLocator finds the playing surface inside a screen capture.
type CanvasLocator struct {
	Bands      []HSVBand // Colour bands merged with logical OR
	KernelSize int       // Square structuring element for close+open
	MinArea    float64   // Contours with area <= MinArea are discarded
}

// NewCanvasLocator creates a locator from the detection config
func NewCanvasLocator(cfg CanvasConfig) *CanvasLocator {
	return &CanvasLocator{
		Bands:      cfg.Bands,
		KernelSize: cfg.Kernel,
		MinArea:    cfg.MinArea,
	}
}

// Locate returns the bounding rectangle of the canvas in frame coordinates.
// frame must be a BGR image.
func (cl *CanvasLocator) Locate(frame gocv.Mat) (image.Rectangle, error) {
	if frame.Empty() {
		return image.Rectangle{}, ErrCanvasNotFound
	}

	mask, err := cl.Mask(frame)
	defer mask.Close()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("canvas mask: %w", err)
	}

	rect, area, ok := largestContour(mask, cl.MinArea)
	if !ok {
		LogDebug("Canvas locator: no contour above %.0f px²", cl.MinArea)
		return image.Rectangle{}, ErrCanvasNotFound
	}

	LogDebug("Canvas locator: best contour area %.0f at %v", area, rect)
	return rect, nil
}

// Mask builds the cleaned binary background mask of a BGR frame. The caller
// owns the returned Mat, also when err is set.
func (cl *CanvasLocator) Mask(frame gocv.Mat) (gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV); err != nil {
		return gocv.NewMat(), fmt.Errorf("hsv conversion: %w", err)
	}

	combined := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC1)
	band := gocv.NewMat()
	defer band.Close()
	for i, b := range cl.Bands {
		if err := b.inRange(hsv, &band); err != nil {
			combined.Close()
			return gocv.NewMat(), fmt.Errorf("band %d: %w", i, err)
		}
		if err := gocv.BitwiseOr(combined, band, &combined); err != nil {
			combined.Close()
			return gocv.NewMat(), fmt.Errorf("band %d merge: %w", i, err)
		}
	}

	if cl.KernelSize <= 0 {
		return combined, nil
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cl.KernelSize, cl.KernelSize))
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	err := gocv.MorphologyEx(combined, &closed, gocv.MorphClose, kernel)
	combined.Close()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("close: %w", err)
	}

	opened := gocv.NewMat()
	if err := gocv.MorphologyEx(closed, &opened, gocv.MorphOpen, kernel); err != nil {
		opened.Close()
		return gocv.NewMat(), fmt.Errorf("open: %w", err)
	}
	return opened, nil
}

// largestContour returns the bounding rectangle of the external contour with
// the largest area strictly above minArea.
func largestContour(mask gocv.Mat, minArea float64) (image.Rectangle, float64, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var best image.Rectangle
	bestArea := 0.0
	found := false
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= minArea {
			continue
		}
		if !found || area > bestArea {
			best = gocv.BoundingRect(contour)
			bestArea = area
			found = true
		}
	}
	return best, bestArea, found
}
