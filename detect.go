// Package main - detect.go
//
// This file implements token and boat detection using OpenCV.
//
//   - EntityDetector: normalized cross-correlation template matching on
//     grayscale frames, with spatial de-duplication of the candidates.
//   - BoatDetector: HSV colour matching restricted to the lower part of the
//     frame; the largest brown blob is the boat.
package main

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrTemplateMissing is returned when a token template cannot be loaded.
var ErrTemplateMissing = errors.New("template image missing")

// Template is the appearance reference of one token class
type Template struct {
	Class EntityClass
	Path  string
	Mat   gocv.Mat // BGR
}

// LoadTemplate reads a colour template from disk
func LoadTemplate(class EntityClass, path string) (*Template, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%s template %q: %w", class, path, ErrTemplateMissing)
	}
	LogInfo("Loaded %s template %s (%dx%d)", class, path, mat.Cols(), mat.Rows())
	return &Template{Class: class, Path: path, Mat: mat}, nil
}

// Size returns the template width and height
func (t *Template) Size() (int, int) {
	return t.Mat.Cols(), t.Mat.Rows()
}

// Close releases the template mat
func (t *Template) Close() {
	if t != nil {
		t.Mat.Close()
	}
}

// EntityDetector finds every occurrence of a token template in a frame.
type EntityDetector struct {
	Threshold   float64 // Minimum TM_CCOEFF_NORMED response
	DedupRadius float64 // Centers closer than this collapse into one detection
}

// NewEntityDetector creates a detector from the detection config
func NewEntityDetector(cfg MatchConfig) *EntityDetector {
	return &EntityDetector{
		Threshold:   cfg.Threshold,
		DedupRadius: cfg.DedupRadius,
	}
}

// Detect returns the de-duplicated token centers found in frame. Order is the
// raster-scan order of the response surface (first accepted wins).
func (ed *EntityDetector) Detect(frame gocv.Mat, tpl *Template) []Point {
	if frame.Empty() || tpl == nil || tpl.Mat.Empty() {
		return nil
	}
	tw, th := tpl.Size()
	if tw > frame.Cols() || th > frame.Rows() {
		LogWarn("Template %s (%dx%d) larger than frame (%dx%d)", tpl.Class, tw, th, frame.Cols(), frame.Rows())
		return nil
	}

	grayFrame, err := toGray(frame)
	defer grayFrame.Close()
	if err != nil {
		LogWarn("Detect %s: frame: %v", tpl.Class, err)
		return nil
	}
	grayTpl, err := toGray(tpl.Mat)
	defer grayTpl.Close()
	if err != nil {
		LogWarn("Detect %s: template: %v", tpl.Class, err)
		return nil
	}

	response := gocv.NewMat()
	defer response.Close()
	noMask := gocv.NewMat()
	defer noMask.Close()
	if err := gocv.MatchTemplate(grayFrame, grayTpl, &response, gocv.TmCcoeffNormed, noMask); err != nil {
		LogWarn("Detect %s: template matching failed: %v", tpl.Class, err)
		return nil
	}

	candidates := matchCandidates(response, ed.Threshold)
	centers := make([]Point, len(candidates))
	for i, c := range candidates {
		centers[i] = Point{X: c.X + tw/2, Y: c.Y + th/2}
	}

	points := dedupe(centers, ed.DedupRadius)
	LogDebug("Detect %s: %d candidates -> %d tokens", tpl.Class, len(candidates), len(points))
	return points
}

// toGray returns a single-channel copy of m. The caller owns the result,
// also when err is set.
func toGray(m gocv.Mat) (gocv.Mat, error) {
	if m.Channels() == 1 {
		return m.Clone(), nil
	}
	gray := gocv.NewMat()
	if err := gocv.CvtColor(m, &gray, gocv.ColorBGRToGray); err != nil {
		return gray, fmt.Errorf("gray conversion: %w", err)
	}
	return gray, nil
}

// matchCandidates collects the top-left locations whose response is at least
// threshold, row by row.
func matchCandidates(response gocv.Mat, threshold float64) []image.Point {
	rows, cols := response.Rows(), response.Cols()
	limit := float32(threshold)
	var out []image.Point

	data, err := response.DataPtrFloat32()
	if err != nil || len(data) < rows*cols {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if response.GetFloatAt(y, x) >= limit {
					out = append(out, image.Pt(x, y))
				}
			}
		}
		return out
	}

	for y := 0; y < rows; y++ {
		row := data[y*cols : (y+1)*cols]
		for x, v := range row {
			if v >= limit {
				out = append(out, image.Pt(x, y))
			}
		}
	}
	return out
}

// dedupe keeps a center only if no previously kept center lies closer than
// radius.
func dedupe(centers []Point, radius float64) []Point {
	var kept []Point
	for _, c := range centers {
		duplicate := false
		for _, k := range kept {
			if c.Distance(k) < radius {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

// BoatDetector finds the boat by colour in the lower part of the frame.
type BoatDetector struct {
	Band    HSVBand
	TopMask float64 // Fraction of the frame height, from the top, ignored
	MinArea float64 // Contours with area <= MinArea are discarded
}

// NewBoatDetector creates a detector from the detection config
func NewBoatDetector(cfg BoatConfig) *BoatDetector {
	return &BoatDetector{
		Band:    cfg.Band,
		TopMask: cfg.TopMask,
		MinArea: cfg.MinArea,
	}
}

// Detect returns the center of the boat's bounding rectangle, or nil when no
// blob passes the area filter.
func (bd *BoatDetector) Detect(frame gocv.Mat) *Point {
	if frame.Empty() {
		return nil
	}

	mask, err := bd.Mask(frame)
	defer mask.Close()
	if err != nil {
		LogWarn("Boat detector: %v", err)
		return nil
	}

	rect, area, ok := largestContour(mask, bd.MinArea)
	if !ok {
		return nil
	}

	center := Point{X: rect.Min.X + rect.Dx()/2, Y: rect.Min.Y + rect.Dy()/2}
	LogDebug("Boat detected at %s (area %.0f)", center, area)
	return &center
}

// Mask returns the brown mask with the upper part zeroed. The caller owns
// the returned Mat, also when err is set.
func (bd *BoatDetector) Mask(frame gocv.Mat) (gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV); err != nil {
		return gocv.NewMat(), fmt.Errorf("hsv conversion: %w", err)
	}

	mask := gocv.NewMat()
	if err := bd.Band.inRange(hsv, &mask); err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("boat band: %w", err)
	}

	top := int(float64(mask.Rows()) * bd.TopMask)
	if top > mask.Rows() {
		top = mask.Rows()
	}
	if top > 0 {
		upper := mask.Region(image.Rect(0, 0, mask.Cols(), top))
		upper.SetTo(gocv.NewScalar(0, 0, 0, 0))
		upper.Close()
	}
	return mask, nil
}
