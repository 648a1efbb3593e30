package overlay

// Point is a position in device independent units
type Point struct {
	X, Y float32
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

type Size struct {
	Width, Height float32
}

// Rect is a frame geometry relative to its parent
type Rect struct {
	X, Y          float32
	Width, Height float32
}

func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Zone is the region of the frame a pointer press landed in
type Zone int

const (
	Interior Zone = iota
	Top
	Bottom
	Left
	Right
	TopLeft
	TopRight
	BottomLeft
	BottomRight
)

var zoneNames = [...]string{
	Interior:    "interior",
	Top:         "top",
	Bottom:      "bottom",
	Left:        "left",
	Right:       "right",
	TopLeft:     "top_left",
	TopRight:    "top_right",
	BottomLeft:  "bottom_left",
	BottomRight: "bottom_right",
}

func (z Zone) String() string {
	if z < 0 || int(z) >= len(zoneNames) {
		return "unknown"
	}
	return zoneNames[z]
}

func (z Zone) HasTop() bool    { return z == Top || z == TopLeft || z == TopRight }
func (z Zone) HasBottom() bool { return z == Bottom || z == BottomLeft || z == BottomRight }
func (z Zone) HasLeft() bool   { return z == Left || z == TopLeft || z == BottomLeft }
func (z Zone) HasRight() bool  { return z == Right || z == TopRight || z == BottomRight }

// Classify maps a frame-local position to a zone. A position within margin
// of two adjacent edges is a corner.
func Classify(p Point, size Size, margin float32) Zone {
	left := p.X < margin
	right := p.X > size.Width-margin
	top := p.Y < margin
	bottom := p.Y > size.Height-margin

	switch {
	case top && left:
		return TopLeft
	case top && right:
		return TopRight
	case bottom && left:
		return BottomLeft
	case bottom && right:
		return BottomRight
	case top:
		return Top
	case bottom:
		return Bottom
	case left:
		return Left
	case right:
		return Right
	}
	return Interior
}

// Cursor is the pointer glyph advertised for a zone
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorResizeHorizontal
	CursorResizeVertical
	// top-left / bottom-right diagonal
	CursorResizeDiagonalMain
	// top-right / bottom-left diagonal
	CursorResizeDiagonalAnti
)

func (z Zone) Cursor() Cursor {
	switch z {
	case TopLeft, BottomRight:
		return CursorResizeDiagonalMain
	case TopRight, BottomLeft:
		return CursorResizeDiagonalAnti
	case Top, Bottom:
		return CursorResizeVertical
	case Left, Right:
		return CursorResizeHorizontal
	}
	return CursorDefault
}
