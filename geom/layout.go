package geom

import "math"

// Overflow-crop viewport placement, as fractions of the container.
const (
	overflowMargin   = 0.15
	overflowViewport = 0.7
)

// Layout is the initial placement of image and viewport inside the container.
// Both rectangles are container relative.
type Layout struct {
	Viewport        Rect    `json:"viewport"`
	Image           Rect    `json:"image"`
	ContainerWidth  float64 `json:"container_width"`
	ContainerHeight float64 `json:"container_height"`
}

// Container returns the container as a rectangle at the origin.
func (l Layout) Container() Rect {
	return Rect{Width: l.ContainerWidth, Height: l.ContainerHeight}
}

// ScaleFactor converts displayed pixels to natural pixels.
func (l Layout) ScaleFactor(natural Size) float64 {
	return natural.Width / l.Image.Width
}

// CalcLayout places an image of the given natural size in a container of
// containerWidth. A zero ratio means the crop is free-form.
//
// In overflow mode the container takes the crop ratio (capped to a square),
// the image covers it and the viewport sits at 70% with 15% margins so the
// image can be panned behind it. Otherwise the image exactly fills the
// container and the viewport is the largest centered rect at the ratio.
func CalcLayout(ratio float64, overflow bool, containerWidth float64, natural Size) Layout {
	var (
		viewport, image Rect
		containerHeight float64
	)
	aspect := natural.Aspect()

	if overflow {
		containerHeight = math.Min(math.Ceil(containerWidth/ratio), containerWidth)
		if ratio > aspect {
			image.Height = containerHeight
			image.Width = natural.Width * image.Height / natural.Height
		} else {
			image.Width = containerWidth
			image.Height = image.Width * natural.Height / natural.Width
		}
		viewport = Rect{
			X:      containerWidth * overflowMargin,
			Y:      containerHeight * overflowMargin,
			Width:  containerWidth * overflowViewport,
			Height: containerHeight * overflowViewport,
		}
	} else {
		containerHeight = containerWidth * natural.Height / natural.Width
		image.Width = containerWidth
		image.Height = containerHeight

		if ratio > aspect {
			viewport.Width = containerWidth
			viewport.Height = viewport.Width / ratio
			viewport.Y = (containerHeight - viewport.Height) / 2
		} else {
			viewport.Height = containerHeight
			viewport.Width = containerWidth
			if ratio > 0 {
				viewport.Width = viewport.Height * ratio
			}
			viewport.X = (containerWidth - viewport.Width) / 2
		}
	}

	image.X = (containerWidth - image.Width) / 2
	image.Y = (containerHeight - image.Height) / 2

	return Layout{
		Viewport:        viewport,
		Image:           image,
		ContainerWidth:  containerWidth,
		ContainerHeight: containerHeight,
	}
}
