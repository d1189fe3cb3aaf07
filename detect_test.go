package main

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
	brown = color.RGBA{139, 69, 19, 255} // HSV ~(12, 220, 139)
	green = color.RGBA{0, 128, 0, 255}   // HSV (60, 255, 128)
)

// blankFrame returns a black BGR frame
func blankFrame(cols, rows int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// drawTokenPattern draws a 10x10 white square centred in a 20x20 cell whose
// top-left corner is origin.
func drawTokenPattern(m *gocv.Mat, origin image.Point) {
	sq := image.Rect(origin.X+5, origin.Y+5, origin.X+14, origin.Y+14)
	gocv.Rectangle(m, sq, white, -1)
}

func testTemplate(t *testing.T) *Template {
	t.Helper()
	mat := blankFrame(20, 20)
	drawTokenPattern(&mat, image.Pt(0, 0))
	return &Template{Class: Missionary, Path: "synthetic", Mat: mat}
}

func TestDedupeRadius(t *testing.T) {
	tests := []struct {
		name     string
		second   Point
		expected int
	}{
		{"distance 29 collapses", Point{X: 129, Y: 100}, 1},
		{"distance 31 stays apart", Point{X: 131, Y: 100}, 2},
		{"diagonal under radius", Point{X: 120, Y: 120}, 1}, // ~28.3
		{"diagonal over radius", Point{X: 122, Y: 122}, 2},  // ~31.1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupe([]Point{{X: 100, Y: 100}, tt.second}, 30)
			assert.Len(t, got, tt.expected)
			assert.Equal(t, Point{X: 100, Y: 100}, got[0])
		})
	}
}

func TestDedupeFirstAcceptedWins(t *testing.T) {
	got := dedupe([]Point{{10, 10}, {20, 10}, {45, 10}, {50, 10}}, 30)
	// (45,10) is 35 from (10,10) so it is kept; (50,10) is within 30 of it.
	assert.Equal(t, []Point{{10, 10}, {45, 10}}, got)
}

func TestMatchCandidatesRasterOrder(t *testing.T) {
	resp := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 3, 4, gocv.MatTypeCV32F)
	defer resp.Close()
	resp.SetFloatAt(2, 0, 0.9)
	resp.SetFloatAt(0, 3, 0.45)
	resp.SetFloatAt(1, 1, 0.44)

	got := matchCandidates(resp, 0.45)

	assert.Equal(t, []image.Point{{X: 3, Y: 0}, {X: 0, Y: 2}}, got)
}

func TestEntityDetectorFindsTokens(t *testing.T) {
	tpl := testTemplate(t)
	defer tpl.Close()

	frame := blankFrame(400, 300)
	defer frame.Close()
	drawTokenPattern(&frame, image.Pt(50, 60))
	drawTokenPattern(&frame, image.Pt(250, 200))

	ed := &EntityDetector{Threshold: 0.45, DedupRadius: 30}
	points := ed.Detect(frame, tpl)

	require.Len(t, points, 2)
	assert.InDelta(t, 60, points[0].X, 5)
	assert.InDelta(t, 70, points[0].Y, 5)
	assert.InDelta(t, 260, points[1].X, 5)
	assert.InDelta(t, 210, points[1].Y, 5)
}

func TestEntityDetectorEmptyFrame(t *testing.T) {
	tpl := testTemplate(t)
	defer tpl.Close()

	frame := blankFrame(200, 200)
	defer frame.Close()

	ed := &EntityDetector{Threshold: 0.45, DedupRadius: 30}
	assert.Empty(t, ed.Detect(frame, tpl))
}

func TestEntityDetectorTemplateLargerThanFrame(t *testing.T) {
	tpl := testTemplate(t)
	defer tpl.Close()

	frame := blankFrame(10, 10)
	defer frame.Close()

	ed := &EntityDetector{Threshold: 0.45, DedupRadius: 30}
	assert.Nil(t, ed.Detect(frame, tpl))
}

func TestLoadTemplateMissing(t *testing.T) {
	_, err := LoadTemplate(Cannibal, "does/not/exist.png")
	assert.ErrorIs(t, err, ErrTemplateMissing)
}

func testBoatDetector() *BoatDetector {
	return NewBoatDetector(DefaultConfig().Detect.Boat)
}

func TestBoatDetectorLowerHalf(t *testing.T) {
	frame := blankFrame(400, 300)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(150, 220, 270, 260), brown, -1)

	boat := testBoatDetector().Detect(frame)

	require.NotNil(t, boat)
	assert.InDelta(t, 210, boat.X, 1)
	assert.InDelta(t, 240, boat.Y, 1)
}

func TestBoatDetectorConversionError(t *testing.T) {
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 300, 400, gocv.MatTypeCV8UC1)
	defer gray.Close()

	mask, err := testBoatDetector().Mask(gray)
	defer mask.Close()
	assert.ErrorContains(t, err, "hsv conversion")
	assert.Nil(t, testBoatDetector().Detect(gray))
}

func TestBoatDetectorIgnoresUpperHalf(t *testing.T) {
	frame := blankFrame(400, 300)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(150, 20, 270, 100), brown, -1)

	assert.Nil(t, testBoatDetector().Detect(frame))
}

func TestBoatDetectorAreaFilter(t *testing.T) {
	frame := blankFrame(400, 300)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(100, 200, 130, 230), brown, -1) // 900 px²

	assert.Nil(t, testBoatDetector().Detect(frame))
}

func TestBoatDetectorPicksLargest(t *testing.T) {
	frame := blankFrame(600, 300)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(20, 200, 80, 240), brown, -1)   // 2400 px²
	gocv.Rectangle(&frame, image.Rect(300, 200, 500, 260), brown, -1) // 12000 px²

	boat := testBoatDetector().Detect(frame)

	require.NotNil(t, boat)
	assert.InDelta(t, 400, boat.X, 1)
	assert.InDelta(t, 230, boat.Y, 1)
}
