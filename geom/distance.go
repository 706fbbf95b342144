package geom

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidLength = errors.New("invalid length")

// DefaultLength is what an unset Length resolves to.
const DefaultLength = 100

// DefaultMinimum is used for unset minimum viewport sizes.
var DefaultMinimum = Length{Value: 37, Percent: true}

var percentPattern = regexp.MustCompile(`^(([1-9]\d*)|0)(\.\d+)?%$`)

// Length is either a percentage of some base or an absolute size measured in
// natural image pixels. The zero Length is unset.
type Length struct {
	Value   float64
	Percent bool
}

// Percent builds a percentage Length.
func Percent(v float64) Length { return Length{Value: v, Percent: true} }

// Pixels builds a Length in natural image pixels.
func Pixels(v float64) Length { return Length{Value: v} }

// IsZero reports whether l is unset.
func (l Length) IsZero() bool {
	return l.Value == 0 && !l.Percent
}

// Resolve converts l to display pixels. Percentages are taken of base;
// absolute values are natural pixels scaled by base/naturalSize.
func (l Length) Resolve(base, naturalSize float64) float64 {
	if l.IsZero() {
		return DefaultLength
	}
	if l.Percent {
		return l.Value * base * 0.01
	}
	return base / naturalSize * l.Value
}

func (l Length) String() string {
	v := strconv.FormatFloat(l.Value, 'f', -1, 64)
	if l.Percent {
		return v + "%"
	}
	return v
}

// ParseLength reads "37%", "120" or "" (unset).
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Length{}, nil
	}
	if strings.HasSuffix(s, "%") {
		if !percentPattern.MatchString(s) {
			return Length{}, fmt.Errorf("%w: %q", ErrInvalidLength, s)
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return Length{}, fmt.Errorf("%w: %q", ErrInvalidLength, s)
		}
		return Percent(v), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Length{}, fmt.Errorf("%w: %q", ErrInvalidLength, s)
	}
	return Pixels(v), nil
}

// UnmarshalJSON accepts a JSON string ("37%") or a bare number of natural pixels.
func (l *Length) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidLength, data)
		}
		return l.UnmarshalText([]byte(s))
	}
	if string(data) == "null" {
		return nil
	}
	return l.UnmarshalText(data)
}

func (l Length) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Length) UnmarshalText(text []byte) error {
	v, err := ParseLength(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Distance is the Euclidean distance between (x0, y0) and (x1, y1).
func Distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x0-x1, y0-y1)
}

// Magnitude is the distance of (x, y) from the origin.
func Magnitude(x, y float64) float64 {
	return Distance(x, y, 0, 0)
}

// MinimumSize resolves the smallest viewport a resize may produce. Unset
// lengths fall back to DefaultMinimum. With a ratio the pair is reduced so
// neither side forces the other past its own minimum.
func MinimumSize(minWidth, minHeight Length, container, natural Size, ratio float64) Size {
	if minWidth.IsZero() {
		minWidth = DefaultMinimum
	}
	if minHeight.IsZero() {
		minHeight = DefaultMinimum
	}
	w := minWidth.Resolve(container.Width, natural.Width)
	h := minHeight.Resolve(container.Height, natural.Height)
	if ratio > 0 {
		w, h = math.Min(w, h*ratio), math.Min(h, w/ratio)
	}
	return Size{Width: w, Height: h}
}
