package geom

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLength_Resolve(t *testing.T) {
	assert.Equal(t, 100.0, Percent(50).Resolve(200, 12345))
	assert.Equal(t, 100.0, Length{}.Resolve(200, 100))
	assert.Equal(t, 100.0, Pixels(50).Resolve(200, 100))
	assert.Equal(t, 0.0, Percent(0).Resolve(200, 100))
}

func TestParseLength(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Length
		err  bool
	}{
		{in: "", want: Length{}},
		{in: "50%", want: Percent(50)},
		{in: "0%", want: Percent(0)},
		{in: "0.5%", want: Percent(0.5)},
		{in: "37.25%", want: Percent(37.25)},
		{in: "120", want: Pixels(120)},
		{in: " 8 ", want: Pixels(8)},
		{in: "05%", err: true},
		{in: "-5%", err: true},
		{in: "1.%", err: true},
		{in: "abc", err: true},
		{in: "NaN", err: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLength(tc.in)
			if tc.err {
				require.ErrorIs(t, err, ErrInvalidLength)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLength_UnmarshalText(t *testing.T) {
	var l Length
	require.NoError(t, l.UnmarshalText([]byte("25%")))
	assert.Equal(t, Percent(25), l)
	assert.Equal(t, "25%", l.String())
	require.Error(t, l.UnmarshalText([]byte("25px")))
}

func TestLength_UnmarshalJSON(t *testing.T) {
	var v struct {
		Width  Length  `json:"width"`
		Height Length  `json:"height"`
		Unset  *Length `json:"unset"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"width": "40%", "height": 120, "unset": null}`), &v))
	assert.Equal(t, Percent(40), v.Width)
	assert.Equal(t, Pixels(120), v.Height)
	assert.Nil(t, v.Unset)

	err := json.Unmarshal([]byte(`{"width": "wide"}`), &v)
	assert.ErrorIs(t, err, ErrInvalidLength)
	err = json.Unmarshal([]byte(`{"width": true}`), &v)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(0, 0, 3, 4))
	assert.Equal(t, 5.0, Magnitude(-3, 4))
}

func TestMinimumSize(t *testing.T) {
	container := Size{Width: 300, Height: 200}
	natural := Size{Width: 600, Height: 400}

	free := MinimumSize(Length{}, Length{}, container, natural, 0)
	assert.InDelta(t, 111, free.Width, 1e-9)
	assert.InDelta(t, 74, free.Height, 1e-9)

	square := MinimumSize(Length{}, Length{}, container, natural, 1)
	assert.InDelta(t, 74, square.Width, 1e-9)
	assert.InDelta(t, 74, square.Height, 1e-9)

	px := MinimumSize(Pixels(100), Pixels(50), container, natural, 0)
	assert.Equal(t, Size{Width: 50, Height: 25}, px)
}

func TestAnchor_Parse(t *testing.T) {
	for _, a := range Anchors {
		got, err := ParseAnchor(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
		assert.True(t, a.Valid())
	}
	assert.Equal(t, "lefttop", LeftTop.String())
	assert.Equal(t, "bottomcenter", BottomCenter.String())

	_, err := ParseAnchor("middle")
	require.ErrorIs(t, err, ErrInvalidAnchor)
	assert.False(t, Anchor{}.Valid())
	assert.False(t, Anchor{H: 7, V: Top}.Valid())
}

func TestCalcLayout(t *testing.T) {
	natural := Size{Width: 600, Height: 400}

	t.Run("contain square", func(t *testing.T) {
		l := CalcLayout(1, false, 300, natural)
		assert.Equal(t, 300.0, l.ContainerWidth)
		assert.Equal(t, 200.0, l.ContainerHeight)
		assert.Equal(t, Rect{X: 50, Y: 0, Width: 200, Height: 200}, l.Viewport)
		assert.Equal(t, Rect{Width: 300, Height: 200}, l.Image)
		assert.Equal(t, 2.0, l.ScaleFactor(natural))
	})

	t.Run("contain wide", func(t *testing.T) {
		l := CalcLayout(2, false, 300, natural)
		assert.Equal(t, Rect{X: 0, Y: 25, Width: 300, Height: 150}, l.Viewport)
	})

	t.Run("contain free", func(t *testing.T) {
		l := CalcLayout(0, false, 300, natural)
		assert.Equal(t, l.Container(), l.Viewport)
	})

	t.Run("overflow square", func(t *testing.T) {
		l := CalcLayout(1, true, 300, natural)
		assert.Equal(t, 300.0, l.ContainerHeight)
		assert.Equal(t, Rect{X: 0, Y: 50, Width: 300, Height: 200}, l.Image)
		assert.InDelta(t, 45, l.Viewport.X, 1e-9)
		assert.InDelta(t, 45, l.Viewport.Y, 1e-9)
		assert.InDelta(t, 210, l.Viewport.Width, 1e-9)
		assert.InDelta(t, 210, l.Viewport.Height, 1e-9)
	})

	t.Run("overflow wide", func(t *testing.T) {
		l := CalcLayout(2, true, 300, natural)
		assert.Equal(t, 150.0, l.ContainerHeight)
		assert.Equal(t, Rect{X: 37.5, Y: 0, Width: 225, Height: 150}, l.Image)
	})

	t.Run("overflow free", func(t *testing.T) {
		l := CalcLayout(0, true, 300, natural)
		assert.Equal(t, 300.0, l.ContainerHeight)
		assert.Equal(t, 300.0, l.Image.Width)
	})
}

func TestCalcLayout_Randomized(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		ratio := 0.0
		if rnd.Intn(4) > 0 {
			ratio = 0.2 + rnd.Float64()*4
		}
		width := 50 + rnd.Float64()*1000
		natural := Size{Width: 1 + rnd.Float64()*4000, Height: 1 + rnd.Float64()*4000}

		l := CalcLayout(ratio, false, width, natural)
		require.True(t, l.Container().Contains(l.Viewport, 1e-6), "viewport %s escapes %s", l.Viewport, l.Container())
		require.InDelta(t, 0, l.Image.X, 1e-6)
		require.InDelta(t, 0, l.Image.Y, 1e-6)
		if ratio > 0 {
			require.InDelta(t, ratio, l.Viewport.Width/l.Viewport.Height, 1e-6)
		}

		o := CalcLayout(ratio, true, width, natural)
		coversX := math.Abs(o.Image.Width-o.ContainerWidth) < 1e-6
		coversY := math.Abs(o.Image.Height-o.ContainerHeight) < 1e-6
		require.True(t, coversX || coversY, "image %s does not span container %s", o.Image, o.Container())
		require.True(t, o.Container().Contains(o.Viewport, 1e-6))
	}
}

func TestMoveEnvelope(t *testing.T) {
	container := Rect{Width: 300, Height: 200}
	env, err := CalcEnvelope(container, Rect{X: 50, Y: 20, Width: 200, Height: 100}, GestureMove, ScaleLimits{})
	require.NoError(t, err)
	assert.Equal(t, Range{Min: -50, Max: 50}, env.X)
	assert.Equal(t, Range{Min: -20, Max: 80}, env.Y)
}

func TestMoveEnvelope_Randomized(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		container := Rect{
			X:      float64(rnd.Intn(100)),
			Y:      float64(rnd.Intn(100)),
			Width:  float64(10 + rnd.Intn(1000)),
			Height: float64(10 + rnd.Intn(1000)),
		}
		w := float64(1 + rnd.Intn(int(container.Width)))
		h := float64(1 + rnd.Intn(int(container.Height)))
		viewport := Rect{
			X:      container.X + float64(rnd.Intn(int(container.Width-w)+1)),
			Y:      container.Y + float64(rnd.Intn(int(container.Height-h)+1)),
			Width:  w,
			Height: h,
		}
		env := MoveEnvelope(container, viewport)
		dx, dy := env.Clamp((rnd.Float64()-0.5)*4000, (rnd.Float64()-0.5)*4000)
		moved := viewport.Translate(dx, dy)
		require.True(t, container.Contains(moved, 0), "moved %s escapes %s", moved, container)
	}
}

func TestScaleEnvelope(t *testing.T) {
	container := Rect{Width: 300, Height: 200}
	viewport := Rect{X: 50, Y: 50, Width: 100, Height: 100}

	for _, tc := range []struct {
		name   string
		anchor Anchor
		ratio  float64
		x, y   Range
	}{
		{name: "lefttop free", anchor: LeftTop, x: Range{-50, 80}, y: Range{-50, 80}},
		{name: "rightbottom free", anchor: RightBottom, x: Range{-80, 150}, y: Range{-80, 50}},
		{name: "leftbottom free", anchor: LeftBottom, x: Range{-50, 80}, y: Range{-80, 50}},
		{name: "topcenter free", anchor: TopCenter, x: Range{}, y: Range{-50, 80}},
		{name: "rightcenter free", anchor: RightCenter, x: Range{-80, 150}, y: Range{}},
		{name: "lefttop ratio", anchor: LeftTop, ratio: 1, x: Range{-50, 80}, y: Range{-50, 80}},
		{name: "rightbottom ratio", anchor: RightBottom, ratio: 1, x: Range{-80, 50}, y: Range{-80, 50}},
		{name: "righttop ratio", anchor: RightTop, ratio: 1, x: Range{-80, 50}, y: Range{-50, 80}},
		{name: "rightcenter ratio", anchor: RightCenter, ratio: 1, x: Range{-80, 100}, y: Range{}},
		{name: "leftcenter ratio", anchor: LeftCenter, ratio: 1, x: Range{-50, 80}, y: Range{}},
		{name: "bottomcenter ratio", anchor: BottomCenter, ratio: 1, x: Range{}, y: Range{-80, 50}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ScaleEnvelope(container, viewport, ScaleLimits{
				MinWidth: 20, MinHeight: 20, Anchor: tc.anchor, Ratio: tc.ratio,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.x, env.X)
			assert.Equal(t, tc.y, env.Y)
		})
	}
}

func TestScaleEnvelope_CenterRatioNearestEdge(t *testing.T) {
	container := Rect{Width: 300, Height: 200}
	viewport := Rect{X: 100, Y: 80, Width: 80, Height: 40}
	env, err := ScaleEnvelope(container, viewport, ScaleLimits{
		MinWidth: 20, MinHeight: 10, Anchor: TopCenter, Ratio: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, Range{Min: -80, Max: 30}, env.Y)

	// Near the left edge the width runs out before the height does.
	viewport.X = 10
	env, err = ScaleEnvelope(container, viewport, ScaleLimits{
		MinWidth: 20, MinHeight: 10, Anchor: TopCenter, Ratio: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, Range{Min: -10, Max: 30}, env.Y)
}

func TestScaleEnvelope_BelowMinimum(t *testing.T) {
	container := Rect{Width: 300, Height: 200}
	viewport := Rect{X: 10, Y: 20, Width: 50, Height: 50}

	env, err := ScaleEnvelope(container, viewport, ScaleLimits{MinWidth: 100, MinHeight: 100, Anchor: LeftTop})
	require.NoError(t, err)
	assert.Equal(t, Envelope{X: Range{Min: -10, Max: -50}, Y: Range{Min: -20, Max: -50}}, env)

	// An empty range pins the handle at the container edge whatever the pointer does.
	for _, d := range [][2]float64{{0, 0}, {40, 40}, {-100, -100}} {
		dx, dy := env.Clamp(d[0], d[1])
		assert.Equal(t, -10.0, dx)
		assert.Equal(t, -20.0, dy)

		r, err := ScaleRect(viewport, dx, dy, LeftTop, 0)
		require.NoError(t, err)
		assert.Equal(t, Rect{X: 0, Y: 0, Width: 60, Height: 70}, r)
		assert.True(t, container.Contains(r, 0))
	}
}

func TestScaleEnvelope_InvalidInput(t *testing.T) {
	_, err := ScaleEnvelope(Rect{Width: 10, Height: 10}, Rect{Width: 5, Height: 5}, ScaleLimits{})
	require.ErrorIs(t, err, ErrInvalidAnchor)

	_, err = CalcEnvelope(Rect{}, Rect{}, Gesture(9), ScaleLimits{})
	require.ErrorIs(t, err, ErrInvalidGesture)

	_, err = ParseGesture("zoom")
	require.True(t, errors.Is(err, ErrInvalidGesture))
}

// Growing a ratio-locked viewport to the envelope limit keeps the ratio and
// stays inside the container, give or take the integer rounding of the bound.
func TestScaleEnvelope_RatioRandomized(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	container := Rect{Width: 400, Height: 300}
	for i := 0; i < 1000; i++ {
		ratio := 0.5 + rnd.Float64()*2.5
		w := 20 + rnd.Float64()*150
		h := w / ratio
		if h > container.Height {
			continue
		}
		viewport := Rect{
			X:      rnd.Float64() * (container.Width - w),
			Y:      rnd.Float64() * (container.Height - h),
			Width:  w,
			Height: h,
		}
		anchor := Anchors[rnd.Intn(len(Anchors))]
		env, err := ScaleEnvelope(container, viewport, ScaleLimits{
			MinWidth: 10, MinHeight: 10 / ratio, Anchor: anchor, Ratio: ratio,
		})
		require.NoError(t, err)

		dx, dy := env.X.Max, env.Y.Max
		if anchor.H == Left {
			dx = env.X.Min
		}
		if anchor.V == Top {
			dy = env.Y.Min
		}
		got, err := ScaleRect(viewport, dx, dy, anchor, ratio)
		require.NoError(t, err)
		require.InDelta(t, ratio, got.Width/got.Height, 1e-9)
		tolerance := 1 + 1/ratio + ratio
		require.True(t, container.Contains(got, tolerance), "%s grew %s to %s", anchor, viewport, got)
	}
}

func TestScaleRect(t *testing.T) {
	start := Rect{X: 50, Y: 50, Width: 100, Height: 100}

	for _, tc := range []struct {
		name   string
		anchor Anchor
		dx, dy float64
		ratio  float64
		want   Rect
	}{
		{name: "lefttop free", anchor: LeftTop, dx: -10, dy: -20, want: Rect{40, 30, 110, 120}},
		{name: "lefttop ratio", anchor: LeftTop, dx: -10, dy: 99, ratio: 1, want: Rect{40, 40, 110, 110}},
		{name: "leftbottom ratio", anchor: LeftBottom, dx: -10, ratio: 2, want: Rect{40, 50, 110, 55}},
		{name: "leftcenter free", anchor: LeftCenter, dx: 5, dy: 99, want: Rect{55, 50, 95, 100}},
		{name: "righttop free", anchor: RightTop, dx: 10, dy: 10, want: Rect{50, 60, 110, 90}},
		{name: "righttop ratio", anchor: RightTop, dx: 10, ratio: 1, want: Rect{50, 40, 110, 110}},
		{name: "rightbottom free", anchor: RightBottom, dx: 10, dy: 5, want: Rect{50, 50, 110, 105}},
		{name: "rightcenter ratio", anchor: RightCenter, dx: 20, ratio: 1, want: Rect{50, 40, 120, 120}},
		{name: "topcenter ratio", anchor: TopCenter, dy: -20, ratio: 1, want: Rect{40, 30, 120, 120}},
		{name: "bottomcenter free", anchor: BottomCenter, dx: 40, dy: 10, want: Rect{50, 50, 100, 110}},
		{name: "bottomcenter ratio", anchor: BottomCenter, dy: 10, ratio: 1, want: Rect{45, 50, 110, 110}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScaleRect(start, tc.dx, tc.dy, tc.anchor, tc.ratio)
			require.NoError(t, err)
			assert.InDelta(t, tc.want.X, got.X, 1e-9)
			assert.InDelta(t, tc.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tc.want.Width, got.Width, 1e-9)
			assert.InDelta(t, tc.want.Height, got.Height, 1e-9)
		})
	}
}

func TestScaleRect_InvalidAnchor(t *testing.T) {
	_, err := ScaleRect(Rect{Width: 10, Height: 10}, 1, 1, Anchor{H: HCenter, V: VCenter}, 0)
	require.ErrorIs(t, err, ErrInvalidAnchor)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t,
		Rect{X: 0, Y: 10, Width: 51, Height: 21},
		Normalize(Rect{X: 1.5, Y: 10.7, Width: 50.2, Height: 20.1}, 100, 100))
	assert.Equal(t,
		Rect{X: 3, Y: 4, Width: 97, Height: 94},
		Normalize(Rect{X: 3.2, Y: 4.9, Width: 95.9, Height: 94}, 100, 100))
}

func TestNormalize_Idempotent(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		cw := float64(10 + rnd.Intn(1000))
		ch := float64(10 + rnd.Intn(1000))
		w := 1 + rnd.Float64()*(cw-1)
		h := 1 + rnd.Float64()*(ch-1)
		r := Rect{X: rnd.Float64() * (cw - w), Y: rnd.Float64() * (ch - h), Width: w, Height: h}

		once := Normalize(r, cw, ch)
		require.Equal(t, once, Normalize(once, cw, ch), "input %s", r)
	}
}

func TestNaturalCrop(t *testing.T) {
	natural := Size{Width: 600, Height: 400}
	l := CalcLayout(1, false, 300, natural)

	crop := NaturalCrop(l.Viewport, l, natural)
	assert.Equal(t, Rect{X: 100, Y: 0, Width: 400, Height: 400}, crop)
	assert.Equal(t, l.Viewport, ViewportFromNatural(crop, l, natural))

	o := CalcLayout(1, true, 300, natural)
	crop = NaturalCrop(o.Viewport, o, natural)
	// Viewport 45..255 vertically minus the 50px letterbox, times 2.
	assert.Equal(t, Rect{X: 90, Y: -10, Width: 420, Height: 420}, crop)
}
