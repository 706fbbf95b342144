// Package widget drives the crop geometry from pointer input. A Widget owns
// the current viewport and the state of the gesture in progress, and reports
// every settled change as a crop in natural image pixels.
package widget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"imageclip/geom"
)

// ErrCodeImageLoadFail is reported to Options.OnError when the image cannot be loaded.
const ErrCodeImageLoadFail = "IMG_LOAD_FAIL"

// pinchFactor projects the change in finger distance onto a 45 degree diagonal.
const pinchFactor = 0.707

var (
	ErrNoImage      = errors.New("no image loaded")
	ErrInvalidImage = errors.New("invalid image size")
)

// Loader resolves an image source to its natural size.
type Loader interface {
	Load(ctx context.Context, src string) (geom.Size, error)
}

type Options struct {
	// Ratio is the locked width/height of the crop. Zero leaves it free.
	Ratio float64
	// Overflow lets the crop extend past the image, which is letterboxed
	// inside a container of the crop's ratio.
	Overflow  bool
	MinWidth  geom.Length
	MinHeight geom.Length
	// Delay separates a tap from the start of a drag. Zero starts gestures
	// immediately.
	Delay time.Duration

	OnChange func(Crop)
	OnError  func(code string)

	Arbiter *Arbiter
	Clock   Clock
	Logger  *zerolog.Logger
}

// Point is a pointer position in screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Crop is the selected region in natural image pixels.
type Crop struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	NaturalWidth  float64 `json:"natural_width"`
	NaturalHeight float64 `json:"natural_height"`
}

// Rect drops the natural size.
func (c Crop) Rect() geom.Rect {
	return geom.Rect{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

type Phase uint8

const (
	PhaseIdle Phase = iota
	// PhasePending waits for the gesture delay to elapse.
	PhasePending
	PhaseDragging
	PhaseResizing
	PhasePinching
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseDragging:
		return "dragging"
	case PhaseResizing:
		return "resizing"
	case PhasePinching:
		return "pinching"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot for rendering.
type State struct {
	ID      uuid.UUID   `json:"id"`
	Phase   Phase       `json:"phase"`
	Loaded  bool        `json:"loaded"`
	Failed  bool        `json:"failed"`
	Natural geom.Size   `json:"natural"`
	Layout  geom.Layout `json:"layout"`
	// Viewport includes the offset of a drag in progress.
	Viewport geom.Rect     `json:"viewport"`
	Envelope geom.Envelope `json:"envelope"`
	Crop     Crop          `json:"crop"`
}

type Widget struct {
	id   uuid.UUID
	opts Options

	mu       sync.Mutex
	loaded   bool
	failed   bool
	natural  geom.Size
	layout   geom.Layout
	viewport geom.Rect

	phase    Phase
	gen      uint64
	pending  Timer
	start    Point
	origin   geom.Rect
	offset   Point
	anchor   geom.Anchor
	envelope geom.Envelope
	fingers  float64
	pinchMax Point
}

func New(opts Options) *Widget {
	if opts.Arbiter == nil {
		opts.Arbiter = NewArbiter()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		l := log.Logger
		opts.Logger = &l
	}
	w := &Widget{
		id:   uuid.New(),
		opts: opts,
	}
	l := opts.Logger.With().Str("widget", w.id.String()).Logger()
	w.opts.Logger = &l
	return w
}

func (w *Widget) ID() uuid.UUID { return w.id }

// Load asks the loader for the natural size of src and lays the image out in
// a container of the given width. Failures are reported to OnError as
// ErrCodeImageLoadFail and also returned.
func (w *Widget) Load(ctx context.Context, loader Loader, src string, containerWidth float64) error {
	natural, err := loader.Load(ctx, src)
	if err != nil {
		w.mu.Lock()
		w.failed = true
		w.loaded = false
		w.mu.Unlock()
		log.Ctx(ctx).Warn().Err(err).Str("src", src).Msg("image load failed")
		if fn := w.opts.OnError; fn != nil {
			fn(ErrCodeImageLoadFail)
		}
		return fmt.Errorf("failed to load image %s: %w", src, err)
	}
	return w.SetImage(natural, containerWidth)
}

// SetImage lays out an image of the given natural size and resets the
// viewport to its initial position.
func (w *Widget) SetImage(natural geom.Size, containerWidth float64) error {
	if natural.Width <= 0 || natural.Height <= 0 || containerWidth <= 0 {
		return fmt.Errorf("%w: %gx%g in %g", ErrInvalidImage, natural.Width, natural.Height, containerWidth)
	}
	w.update(func() bool {
		w.cancelPending()
		w.natural = natural
		w.layout = geom.CalcLayout(w.opts.Ratio, w.opts.Overflow, containerWidth, natural)
		w.viewport = w.layout.Viewport
		w.loaded = true
		w.failed = false
		w.phase = PhaseIdle
		w.offset = Point{}
		return true
	})
	return nil
}

// SetNaturalCrop places the viewport at a crop given in natural pixels.
// Like an external property update, it does not fire OnChange.
func (w *Widget) SetNaturalCrop(c geom.Rect) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return ErrNoImage
	}
	w.viewport = geom.ViewportFromNatural(c, w.layout, w.natural)
	return nil
}

// DragStart begins moving the viewport once the delay elapses.
func (w *Widget) DragStart(p Point) error {
	return w.begin(func() {
		w.phase = PhaseDragging
		w.start = p
		w.offset = Point{}
		w.envelope = geom.MoveEnvelope(w.bounds(), w.viewport)
		w.opts.Logger.Debug().Interface("envelope", w.envelope).Msg("drag started")
	})
}

// ResizeStart begins dragging a resize handle once the delay elapses.
func (w *Widget) ResizeStart(anchor geom.Anchor, p Point) error {
	if !anchor.Valid() {
		return fmt.Errorf("%w: %s", geom.ErrInvalidAnchor, anchor)
	}
	return w.begin(func() {
		minSize := w.minimum()
		env, err := geom.ScaleEnvelope(w.bounds(), w.viewport, geom.ScaleLimits{
			MinWidth:  minSize.Width,
			MinHeight: minSize.Height,
			Anchor:    anchor,
			Ratio:     w.opts.Ratio,
		})
		if err != nil {
			w.opts.Logger.Error().Err(err).Msg("cannot compute resize envelope")
			w.phase = PhaseIdle
			return
		}
		w.phase = PhaseResizing
		w.anchor = anchor
		w.start = p
		w.origin = w.viewport
		w.envelope = env
		w.opts.Logger.Debug().Stringer("anchor", anchor).Interface("envelope", env).Msg("resize started")
	})
}

// PinchStart begins a two finger resize. It takes effect immediately.
func (w *Widget) PinchStart(p0, p1 Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return ErrNoImage
	}
	w.opts.Arbiter.Acquire(w.id)
	w.cancelPending()

	minSize := w.minimum()
	v := w.viewport
	w.phase = PhasePinching
	w.fingers = geom.Distance(p0.X, p0.Y, p1.X, p1.Y)
	w.origin = v
	w.envelope = geom.Envelope{}
	// The top-left corner may not pass the point where the viewport would
	// have collapsed to its minimum around its center.
	w.pinchMax = Point{
		X: v.X + v.Width/2 - minSize.Width/2,
		Y: v.Y + v.Height/2 - minSize.Height/2,
	}
	return nil
}

// Move feeds a pointer position. Events are ignored unless this widget owns
// the pointer. Moving before the delay elapses abandons the gesture.
func (w *Widget) Move(p Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.opts.Arbiter.Owns(w.id) {
		return
	}
	switch w.phase {
	case PhasePending:
		w.cancelPending()
		w.phase = PhaseIdle
	case PhaseDragging:
		dx, dy := w.envelope.Clamp(p.X-w.start.X, p.Y-w.start.Y)
		w.offset = Point{X: dx, Y: dy}
	case PhaseResizing:
		dx, dy := w.envelope.Clamp(p.X-w.start.X, p.Y-w.start.Y)
		r, err := geom.ScaleRect(w.origin, dx, dy, w.anchor, w.opts.Ratio)
		if err != nil {
			w.opts.Logger.Error().Err(err).Msg("resize failed")
			return
		}
		w.viewport = r
	}
}

// PinchMove feeds the two finger positions of a pinch.
func (w *Widget) PinchMove(p0, p1 Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.opts.Arbiter.Owns(w.id) || w.phase != PhasePinching || w.fingers <= 0 {
		return
	}
	d := geom.Distance(p0.X, p0.Y, p1.X, p1.Y)
	f := pinchFactor * (d - w.fingers) / 2
	w.fingers = d

	ratio := w.opts.Ratio
	if ratio <= 0 {
		ratio = w.origin.Width / w.origin.Height
	}
	minSize := w.minimum()
	v := w.viewport
	x := math.Min(w.pinchMax.X, math.Max(0, v.X-f))
	y := math.Min(w.pinchMax.Y, math.Max(0, v.Y-f))
	width := math.Max(math.Min(w.layout.ContainerWidth-x, v.Width+2*f), minSize.Width)
	height := math.Max(math.Min(w.layout.ContainerHeight-y, width/ratio), minSize.Height)
	w.viewport = geom.Rect{
		X:      x,
		Y:      y,
		Width:  math.Min(width, height*ratio),
		Height: math.Min(height, width/ratio),
	}
}

// End finishes the gesture in progress, commits it and fires OnChange.
func (w *Widget) End() {
	w.update(func() bool {
		if !w.opts.Arbiter.Owns(w.id) {
			return false
		}
		defer w.opts.Arbiter.Release(w.id)
		switch w.phase {
		case PhaseIdle:
			return false
		case PhasePending:
			w.cancelPending()
		case PhaseDragging:
			w.viewport = w.viewport.Translate(w.offset.X, w.offset.Y)
		}
		w.opts.Logger.Debug().Stringer("phase", w.phase).Stringer("viewport", w.viewport).Msg("gesture ended")
		w.phase = PhaseIdle
		w.offset = Point{}
		w.envelope = geom.Envelope{}
		return true
	})
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := State{
		ID:       w.id,
		Phase:    w.phase,
		Loaded:   w.loaded,
		Failed:   w.failed,
		Natural:  w.natural,
		Layout:   w.layout,
		Viewport: w.viewport,
		Envelope: w.envelope,
	}
	if w.phase == PhaseDragging {
		s.Viewport = w.viewport.Translate(w.offset.X, w.offset.Y)
	}
	if w.loaded {
		s.Crop = w.crop()
	}
	return s
}

// Crop returns the committed viewport in natural pixels.
func (w *Widget) Crop() (Crop, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return Crop{}, ErrNoImage
	}
	return w.crop(), nil
}

// ExportRequest describes the image the renderer should produce.
type ExportRequest struct {
	// Rect is in natural pixels relative to the image. In overflow mode it
	// may reach past the image; that area is painted with Fill.
	Rect    geom.Rect
	Format  string
	Quality float64
	// Fill is a CSS-like color. Empty picks the format default.
	Fill string
}

// ExportRequest builds the renderer input for the current crop. Quality
// outside (0, 1] falls back to 1. The fill only applies in overflow mode.
func (w *Widget) ExportRequest(format string, quality float64, fill string) (ExportRequest, error) {
	c, err := w.Crop()
	if err != nil {
		return ExportRequest{}, err
	}
	if format == "" {
		format = "jpeg"
	}
	if quality <= 0 || quality > 1 {
		quality = 1
	}
	if !w.opts.Overflow {
		fill = ""
	}
	return ExportRequest{Rect: c.Rect(), Format: format, Quality: quality, Fill: fill}, nil
}

// begin runs start after the delay, or now when there is none.
func (w *Widget) begin(start func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return ErrNoImage
	}
	w.opts.Arbiter.Acquire(w.id)
	w.cancelPending()

	if w.opts.Delay <= 0 {
		start()
		return nil
	}
	w.phase = PhasePending
	gen := w.gen
	w.pending = w.opts.Clock.AfterFunc(w.opts.Delay, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.gen != gen || w.phase != PhasePending {
			return
		}
		w.pending = nil
		start()
	})
	return nil
}

func (w *Widget) cancelPending() {
	w.gen++
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// bounds is the area the viewport must stay in.
func (w *Widget) bounds() geom.Rect {
	if w.opts.Overflow {
		return w.layout.Container()
	}
	return geom.Rect{
		X:      w.layout.Image.X,
		Y:      w.layout.Image.Y,
		Width:  w.layout.ContainerWidth,
		Height: w.layout.Image.Height,
	}
}

func (w *Widget) minimum() geom.Size {
	return geom.MinimumSize(
		w.opts.MinWidth, w.opts.MinHeight,
		geom.Size{Width: w.layout.ContainerWidth, Height: w.layout.ContainerHeight},
		w.natural, w.opts.Ratio,
	)
}

func (w *Widget) crop() Crop {
	r := geom.NaturalCrop(w.viewport, w.layout, w.natural)
	return Crop{
		X:             r.X,
		Y:             r.Y,
		Width:         r.Width,
		Height:        r.Height,
		NaturalWidth:  w.natural.Width,
		NaturalHeight: w.natural.Height,
	}
}

// update runs f under the lock and fires OnChange afterwards if f reports a change.
func (w *Widget) update(f func() bool) {
	w.mu.Lock()
	changed := f()
	var c Crop
	if changed && w.loaded {
		c = w.crop()
	}
	w.mu.Unlock()
	if changed && w.loaded && w.opts.OnChange != nil {
		w.opts.OnChange(c)
	}
}
