package geom

import (
	"fmt"
	"math"
)

// ScaleLimits are the extra inputs of a resize envelope.
type ScaleLimits struct {
	MinWidth  float64
	MinHeight float64
	Anchor    Anchor
	Ratio     float64
}

// CalcEnvelope returns the legal delta range for a gesture starting with the
// viewport at its current position. limits is ignored for moves.
func CalcEnvelope(container, viewport Rect, gesture Gesture, limits ScaleLimits) (Envelope, error) {
	switch gesture {
	case GestureMove:
		return MoveEnvelope(container, viewport), nil
	case GestureScale:
		return ScaleEnvelope(container, viewport, limits)
	}
	return Envelope{}, fmt.Errorf("%w: %s", ErrInvalidGesture, gesture)
}

// MoveEnvelope keeps a translated viewport inside the container.
func MoveEnvelope(container, viewport Rect) Envelope {
	return Envelope{
		X: Range{
			Min: round(container.X - viewport.X),
			Max: round(container.Right() - viewport.Right()),
		},
		Y: Range{
			Min: round(container.Y - viewport.Y),
			Max: round(container.Bottom() - viewport.Bottom()),
		},
	}
}

// ScaleEnvelope bounds the drag delta of a resize handle. The shrinking side
// of each range stops at the minimum size; the growing side stops at the
// container edge. With a ratio the growing side is further limited so the
// derived dimension never leaves the container either.
func ScaleEnvelope(container, viewport Rect, limits ScaleLimits) (Envelope, error) {
	a := limits.Anchor
	if err := a.validate(); err != nil {
		return Envelope{}, err
	}

	// Room between each viewport edge and the matching container edge.
	roomLeft := viewport.X - container.X
	roomRight := container.Right() - viewport.Right()
	roomTop := viewport.Y - container.Y
	roomBottom := container.Bottom() - viewport.Bottom()

	var x, y Range
	var deltaX, deltaY float64

	switch a.H {
	case Left:
		deltaX = roomLeft
		x = Range{Min: -deltaX, Max: viewport.Width - limits.MinWidth}
	case Right:
		deltaX = roomRight
		x = Range{Min: limits.MinWidth - viewport.Width, Max: deltaX}
	}
	switch a.V {
	case Top:
		deltaY = roomTop
		y = Range{Min: -deltaY, Max: viewport.Height - limits.MinHeight}
	case Bottom:
		deltaY = roomBottom
		y = Range{Min: limits.MinHeight - viewport.Height, Max: deltaY}
	}

	if ratio := limits.Ratio; ratio > 0 {
		switch {
		case a.Corner():
			rx, ry := cornerReach(ratio, deltaX, deltaY)
			if a.H == Left {
				x.Min = -rx
			} else {
				x.Max = rx
			}
			if a.V == Top {
				y.Min = -ry
			} else {
				y.Max = ry
			}
		case a.V == VCenter:
			// The height grows on both sides, so the nearer edge decides.
			near := math.Min(roomTop, roomBottom)
			reach := deltaX
			if (deltaX/2)/near > ratio {
				reach = near * 2 * ratio
			}
			if a.H == Left {
				x.Min = -reach
			} else {
				x.Max = reach
			}
		case a.H == HCenter:
			near := math.Min(roomLeft, roomRight)
			reach := deltaY
			if (near*2)/deltaY <= ratio {
				reach = near * 2 / ratio
			}
			if a.V == Top {
				y.Min = -reach
			} else {
				y.Max = reach
			}
		}
	}

	return Envelope{
		X: Range{Min: round(x.Min), Max: round(x.Max)},
		Y: Range{Min: round(y.Min), Max: round(y.Max)},
	}, nil
}

// cornerReach returns how far a ratio-locked corner can grow along each axis
// given the free room (dx, dy). Whichever axis runs out first binds; the
// other follows from the ratio.
func cornerReach(ratio, dx, dy float64) (x, y float64) {
	if ratio >= math.Abs(dx/dy) {
		return dx, dx / ratio
	}
	return dy * ratio, dy
}
