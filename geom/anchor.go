package geom

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAnchor  = errors.New("invalid anchor")
	ErrInvalidGesture = errors.New("invalid gesture type")
)

// Horizontal selects which vertical edge of the viewport an anchor drags.
type Horizontal uint8

const (
	HCenter Horizontal = iota
	Left
	Right
)

// Vertical selects which horizontal edge of the viewport an anchor drags.
type Vertical uint8

const (
	VCenter Vertical = iota
	Top
	Bottom
)

// Anchor is a resize handle. Only the eight combinations exported below are
// valid; the zero value (center/center) is not a handle.
type Anchor struct {
	H Horizontal
	V Vertical
}

var (
	LeftTop      = Anchor{H: Left, V: Top}
	LeftCenter   = Anchor{H: Left, V: VCenter}
	LeftBottom   = Anchor{H: Left, V: Bottom}
	RightTop     = Anchor{H: Right, V: Top}
	RightCenter  = Anchor{H: Right, V: VCenter}
	RightBottom  = Anchor{H: Right, V: Bottom}
	TopCenter    = Anchor{H: HCenter, V: Top}
	BottomCenter = Anchor{H: HCenter, V: Bottom}
)

// Anchors lists every valid handle.
var Anchors = []Anchor{
	LeftTop, LeftCenter, LeftBottom,
	RightTop, RightCenter, RightBottom,
	TopCenter, BottomCenter,
}

// Valid reports whether a is one of the eight handles.
func (a Anchor) Valid() bool {
	return a.H <= Right && a.V <= Bottom && !(a.H == HCenter && a.V == VCenter)
}

// Corner reports whether a moves two edges at once.
func (a Anchor) Corner() bool {
	return a.H != HCenter && a.V != VCenter
}

func (a Anchor) validate() error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d/%d", ErrInvalidAnchor, a.H, a.V)
	}
	return nil
}

func (a Anchor) String() string {
	if !a.Valid() {
		return fmt.Sprintf("anchor(%d,%d)", a.H, a.V)
	}
	var b strings.Builder
	switch a.H {
	case Left:
		b.WriteString("left")
	case Right:
		b.WriteString("right")
	}
	switch a.V {
	case Top:
		b.WriteString("top")
	case Bottom:
		b.WriteString("bottom")
	}
	if a.H == HCenter || a.V == VCenter {
		b.WriteString("center")
	}
	return b.String()
}

// ParseAnchor maps a handle tag such as "lefttop" or "bottomcenter" to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	for _, a := range Anchors {
		if a.String() == s {
			return a, nil
		}
	}
	return Anchor{}, fmt.Errorf("%w: %q", ErrInvalidAnchor, s)
}

func (a Anchor) MarshalText() ([]byte, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return []byte(a.String()), nil
}

func (a *Anchor) UnmarshalText(text []byte) error {
	v, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Gesture is the kind of pointer interaction an envelope is computed for.
type Gesture uint8

const (
	GestureMove Gesture = iota + 1
	GestureScale
)

func (g Gesture) String() string {
	switch g {
	case GestureMove:
		return "move"
	case GestureScale:
		return "scale"
	}
	return fmt.Sprintf("gesture(%d)", uint8(g))
}

// ParseGesture accepts "move" or "scale".
func ParseGesture(s string) (Gesture, error) {
	switch s {
	case "move":
		return GestureMove, nil
	case "scale":
		return GestureScale, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGesture, s)
}
