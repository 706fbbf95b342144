package geom

// ScaleRect applies a clamped handle delta to the viewport the gesture
// started from. Only the edges selected by the anchor move. With a ratio the
// height always follows the width, and center handles keep the orthogonal
// dimension centered on the original viewport.
func ScaleRect(start Rect, dx, dy float64, anchor Anchor, ratio float64) (Rect, error) {
	if err := anchor.validate(); err != nil {
		return Rect{}, err
	}
	r := start
	locked := ratio > 0

	switch anchor.H {
	case Left:
		r.X = start.X + dx
		r.Width = start.Right() - r.X
	case Right:
		r.Width = start.Width + dx
	}

	switch anchor.V {
	case Top:
		if locked && anchor.Corner() {
			r.Height = r.Width / ratio
			r.Y = start.Bottom() - r.Height
		} else {
			r.Y = start.Y + dy
			r.Height = start.Bottom() - r.Y
		}
	case Bottom:
		r.Height = start.Height + dy
	case VCenter:
		if locked {
			r.Height = r.Width / ratio
			r.Y = start.Y + (start.Height-r.Height)/2
		}
	}

	if anchor.H == HCenter && locked {
		r.Width = r.Height * ratio
		r.X = start.X + (start.Width-r.Width)/2
	}

	if locked {
		r.Height = r.Width / ratio
	}
	return r, nil
}
