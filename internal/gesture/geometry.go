package gesture

import "github.com/Kavirubc/cofound/pkg/models"

// Point is a position or displacement in logical pixels. Y grows downward.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Transform is the visual placement of the top card
type Transform struct {
	TranslateX  float64
	TranslateY  float64
	RotationDeg float64
}

// Rotation maps a horizontal displacement onto a card tilt. The tilt is
// linear across [-halfWidth, halfWidth] and clamped to ±maxDeg outside.
func Rotation(dx, halfWidth, maxDeg float64) float64 {
	if halfWidth <= 0 {
		return 0
	}
	deg := dx / halfWidth * maxDeg
	switch {
	case deg > maxDeg:
		return maxDeg
	case deg < -maxDeg:
		return -maxDeg
	}
	return deg
}

// TransformFor returns the card placement for displacement d
func (o Options) TransformFor(d Point) Transform {
	return Transform{
		TranslateX:  d.X,
		TranslateY:  d.Y,
		RotationDeg: Rotation(d.X, o.ScreenWidth/2, o.MaxRotation),
	}
}

// ExitTarget is where a committed card flies to. Horizontal decisions keep
// their vertical offset; super-accepts leave through the top edge.
func (o Options) ExitTarget(kind models.DecisionKind, d Point) Point {
	switch kind {
	case models.Reject:
		return Point{X: -2 * o.ScreenWidth, Y: d.Y}
	case models.SuperAccept:
		return Point{X: 0, Y: -o.ScreenHeight}
	default:
		return Point{X: 2 * o.ScreenWidth, Y: d.Y}
	}
}

// Classify decides what a release at displacement d means. ok is false when
// the drag stays inside the threshold and the card should spring back.
func (o Options) Classify(d Point) (kind models.DecisionKind, ok bool) {
	switch {
	case d.X >= o.SwipeThreshold:
		return models.Accept, true
	case d.X <= -o.SwipeThreshold:
		return models.Reject, true
	case o.VerticalSuper && d.Y <= -o.SwipeThreshold:
		return models.SuperAccept, true
	}
	return 0, false
}
