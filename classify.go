// Package main - classify.go
//
// Groups raw token detections into left shore / aboard / right shore using
// the boat position and the frame's vertical midline.
package main

// AboardMargins bounds the box around the boat anchor in which a token counts
// as aboard. Tokens sit slightly above the boat anchor, so the box is taller
// above than below.
type AboardMargins struct {
	X     int `mapstructure:"x" validate:"gte=0"`     // Horizontal half-width around boat.X
	Above int `mapstructure:"above" validate:"gte=0"` // Pixels above boat.Y
	Below int `mapstructure:"below" validate:"gte=0"` // Pixels below boat.Y
}

// StateClassifier partitions detections for one frame.
type StateClassifier struct {
	Margins AboardMargins
}

// NewStateClassifier creates a classifier with the given aboard margins
func NewStateClassifier(margins AboardMargins) *StateClassifier {
	return &StateClassifier{Margins: margins}
}

// Classify groups the detections of a frame of the given width. boat is nil
// when the boat was not detected; every token is then on a shore and the
// boat side is Unknown.
func (sc *StateClassifier) Classify(frameWidth int, missionaries, cannibals []Point, boat *Point) GroupedSighting {
	midline := frameWidth / 2

	gs := GroupedSighting{BoatSide: SideUnknown}
	if boat != nil {
		b := *boat
		gs.Boat = &b
		if b.X < midline {
			gs.BoatSide = SideLeft
		} else {
			gs.BoatSide = SideRight
		}
	}

	place := func(class EntityClass, points []Point) {
		for _, p := range points {
			switch {
			case sc.aboard(p, boat):
				gs.Aboard.add(class, p)
			case p.X < midline:
				gs.Left.add(class, p)
			default:
				gs.Right.add(class, p)
			}
		}
	}
	place(Missionary, missionaries)
	place(Cannibal, cannibals)

	return gs
}

// aboard reports whether p lies in the aboard box around the boat
func (sc *StateClassifier) aboard(p Point, boat *Point) bool {
	if boat == nil {
		return false
	}
	return p.X >= boat.X-sc.Margins.X && p.X <= boat.X+sc.Margins.X &&
		p.Y >= boat.Y-sc.Margins.Above && p.Y <= boat.Y+sc.Margins.Below
}
