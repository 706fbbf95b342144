// Package geom holds the layout and constraint math behind the crop widget.
// Everything here is pure: inputs are values, outputs are new values.
package geom

import (
	"fmt"
	"math"
)

// Rect is a top-left positioned rectangle. Depending on the caller it is
// expressed in container pixels or in natural image pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Scale multiplies every component by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Contains reports whether o lies inside r, allowing eps of slack on each edge.
func (r Rect) Contains(o Rect, eps float64) bool {
	return o.X >= r.X-eps && o.Y >= r.Y-eps &&
		o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

func (r Rect) String() string {
	return fmt.Sprintf("rect(x=%.2f,y=%.2f,w=%.2f,h=%.2f)", r.X, r.Y, r.Width, r.Height)
}

// Size is a width/height pair, used for natural image dimensions.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Aspect returns width/height.
func (s Size) Aspect() float64 { return s.Width / s.Height }

// Range is a closed interval of legal deltas.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp limits v to [Min, Max]. The upper bound is applied first, so a
// degenerate range (Min > Max) resolves to Min.
func (r Range) Clamp(v float64) float64 {
	return math.Max(math.Min(v, r.Max), r.Min)
}

// Envelope is the legal delta range for both axes of a gesture.
type Envelope struct {
	X Range `json:"x"`
	Y Range `json:"y"`
}

// Clamp limits a raw pointer delta to the envelope.
func (e Envelope) Clamp(dx, dy float64) (float64, float64) {
	return e.X.Clamp(dx), e.Y.Clamp(dy)
}

// round matches the rounding of the browser widget: halves go toward +Inf.
func round(v float64) float64 {
	return math.Floor(v + 0.5)
}
