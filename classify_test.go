package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClassifier() *StateClassifier {
	return NewStateClassifier(AboardMargins{X: 100, Above: 100, Below: 50})
}

func TestClassifyMidlineGoesRight(t *testing.T) {
	sc := testClassifier()

	gs := sc.Classify(800, []Point{{X: 400, Y: 100}, {X: 399, Y: 100}}, nil, nil)

	assert.Equal(t, []Point{{X: 399, Y: 100}}, gs.Left.Missionaries)
	assert.Equal(t, []Point{{X: 400, Y: 100}}, gs.Right.Missionaries)
	assert.Equal(t, SideUnknown, gs.BoatSide)
	assert.Nil(t, gs.Boat)
}

func TestClassifyBoatSide(t *testing.T) {
	sc := testClassifier()

	left := sc.Classify(800, nil, nil, &Point{X: 399, Y: 500})
	assert.Equal(t, SideLeft, left.BoatSide)

	right := sc.Classify(800, nil, nil, &Point{X: 400, Y: 500})
	assert.Equal(t, SideRight, right.BoatSide)
}

func TestClassifyAboardMargins(t *testing.T) {
	sc := testClassifier()
	boat := &Point{X: 300, Y: 500}

	tests := []struct {
		name   string
		token  Point
		aboard bool
	}{
		{"on anchor", Point{300, 500}, true},
		{"left edge", Point{200, 500}, true},
		{"right edge", Point{400, 500}, true},
		{"past right edge", Point{401, 500}, false},
		{"top edge", Point{300, 400}, true},
		{"above top edge", Point{300, 399}, false},
		{"bottom edge", Point{300, 550}, true},
		{"below bottom edge", Point{300, 551}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := sc.Classify(800, nil, []Point{tt.token}, boat)
			if tt.aboard {
				assert.Equal(t, []Point{tt.token}, gs.Aboard.Cannibals)
			} else {
				assert.Empty(t, gs.Aboard.Cannibals)
				assert.Equal(t, 1, gs.Left.Len()+gs.Right.Len())
			}
		})
	}
}

func TestClassifyKeepsDetectionOrder(t *testing.T) {
	sc := testClassifier()
	miss := []Point{{X: 50, Y: 10}, {X: 20, Y: 300}, {X: 90, Y: 40}}

	gs := sc.Classify(800, miss, nil, nil)

	assert.Equal(t, miss, gs.Left.Missionaries)
}

func TestClassifyIdempotent(t *testing.T) {
	sc := testClassifier()
	miss := []Point{{X: 50, Y: 100}, {X: 310, Y: 450}, {X: 700, Y: 100}}
	cann := []Point{{X: 60, Y: 160}, {X: 690, Y: 160}, {X: 650, Y: 170}}
	boat := &Point{X: 300, Y: 500}

	first := sc.Classify(800, miss, cann, boat)
	second := sc.Classify(800, miss, cann, boat)

	assert.Equal(t, first, second)
	assert.Equal(t, SideLeft, first.BoatSide)
	assert.Len(t, first.Aboard.Missionaries, 1)
	assert.Len(t, first.Left.Cannibals, 1)
	assert.Len(t, first.Right.Cannibals, 2)
}

func TestSightingSymbolicFoldsAboard(t *testing.T) {
	gs := GroupedSighting{
		Left:     ShoreGroup{Missionaries: []Point{{1, 1}}, Cannibals: []Point{{2, 2}}},
		Aboard:   ShoreGroup{Cannibals: []Point{{3, 3}}},
		BoatSide: SideLeft,
	}
	assert.Equal(t, SymbolicState{1, 2, SideLeft}, gs.Symbolic())

	gs.BoatSide = SideRight
	assert.Equal(t, SymbolicState{1, 1, SideRight}, gs.Symbolic())
}

func TestSightingSolved(t *testing.T) {
	three := []Point{{1, 1}, {2, 2}, {3, 3}}
	gs := GroupedSighting{
		Left:     ShoreGroup{Missionaries: three, Cannibals: three},
		BoatSide: SideLeft,
	}
	assert.True(t, gs.Solved())

	gs.BoatSide = SideRight
	assert.False(t, gs.Solved())
}

func TestGroupAndMoveByClass(t *testing.T) {
	g := ShoreGroup{
		Missionaries: []Point{{X: 1, Y: 1}},
		Cannibals:    []Point{{X: 2, Y: 2}, {X: 3, Y: 3}},
	}
	mv := Move{Missionaries: 1, Cannibals: 2}

	assert.Equal(t, []Point{{X: 1, Y: 1}}, g.Of(Missionary))
	assert.Len(t, g.Of(Cannibal), 2)
	assert.Equal(t, 1, mv.Of(Missionary))
	assert.Equal(t, 2, mv.Of(Cannibal))
}
