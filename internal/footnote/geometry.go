package footnote

// Geometry is expressed in nominal pixels. Hosts that render on a
// different grid (the terminal front end works in character cells)
// convert before calling in.
const (
	// MobileBreakpoint selects the bottom sheet below this viewport width.
	MobileBreakpoint = 768
	// ViewportMargin keeps the tooltip off the viewport edges.
	ViewportMargin = 8
	// DragDismissThreshold is the drag distance that commits a sheet dismiss.
	DragDismissThreshold = 80

	maxTooltipWidth = 320
)

type Size struct {
	W, H float64
}

type Point struct {
	X, Y float64
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// TooltipLayout is the resolved placement of a tooltip.
type TooltipLayout struct {
	X, Y  float64
	Size  Size
	Below bool
}

func (l TooltipLayout) Bounds() Rect {
	return Rect{X: l.X, Y: l.Y, W: l.Size.W, H: l.Size.H}
}

// PlaceTooltip positions a tooltip near its anchor. Preferred placement
// is above; when there is not enough room between the anchor and the
// viewport top it flips below. Horizontally it centers on the anchor,
// clamped inside the viewport margins.
func PlaceTooltip(anchor Rect, tip Size, viewport Size) TooltipLayout {
	below := anchor.Y-tip.H-ViewportMargin < ViewportMargin
	y := anchor.Y - tip.H - ViewportMargin
	if below {
		y = anchor.Y + anchor.H + ViewportMargin
	}
	x := anchor.X + anchor.W/2 - tip.W/2
	if max := viewport.W - tip.W - ViewportMargin; x > max {
		x = max
	}
	if x < ViewportMargin {
		x = ViewportMargin
	}
	return TooltipLayout{X: x, Y: y, Size: tip, Below: below}
}

// MeasureTooltip estimates the box a note body needs, capped at the
// tooltip's maximum width. The estimate only has to be stable; the
// host snaps it to its own grid when rendering.
func MeasureTooltip(body string, viewport Size) Size {
	w := viewport.W - 2*ViewportMargin
	if w > maxTooltipWidth {
		w = maxTooltipWidth
	}
	charsPerLine := int(w / 8)
	if charsPerLine < 1 {
		charsPerLine = 1
	}
	lines := (len(body) + charsPerLine - 1) / charsPerLine
	if lines < 1 {
		lines = 1
	}
	return Size{W: w, H: float64(lines*20 + 16)}
}
