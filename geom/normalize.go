package geom

import "math"

// snapDistance is how close (in display pixels) a coordinate must be to a
// container edge to be snapped onto it.
const snapDistance = 2

// Normalize removes sub-pixel residue from a container-relative viewport:
// positions near zero snap to 0, sizes that nearly reach the far container
// edge are extended to it, everything else is rounded outward.
func Normalize(r Rect, containerWidth, containerHeight float64) Rect {
	x := snapStart(r.X)
	y := snapStart(r.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  snapSize(x, r.Width, containerWidth),
		Height: snapSize(y, r.Height, containerHeight),
	}
}

func snapStart(v float64) float64 {
	if v < snapDistance {
		return 0
	}
	return math.Max(0, math.Floor(v))
}

func snapSize(pos, size, limit float64) float64 {
	if math.Abs(limit-pos-size) < snapDistance {
		return math.Floor(limit - pos)
	}
	return math.Ceil(size)
}

// NaturalCrop converts a container-relative viewport to the crop rectangle in
// natural image pixels, relative to the image's top-left corner. In overflow
// mode the result can extend past the image.
func NaturalCrop(viewport Rect, layout Layout, natural Size) Rect {
	n := Normalize(viewport, layout.ContainerWidth, layout.ContainerHeight)
	return n.Translate(-layout.Image.X, -layout.Image.Y).Scale(layout.ScaleFactor(natural))
}

// ViewportFromNatural is the inverse of NaturalCrop, without the snapping.
func ViewportFromNatural(crop Rect, layout Layout, natural Size) Rect {
	return crop.Scale(1 / layout.ScaleFactor(natural)).Translate(layout.Image.X, layout.Image.Y)
}
