// Package overlay implements the floating, draggable and resizable frame
// that hosts one video surface above the main composition.
//
// The frame is two stacked layers with identical bounds: the content layer
// holding the surface, and a transparent hit layer on top that receives every
// pointer event. A native video surface grabs input when it ends up above the
// hit layer, so the frame re-raises the hit layer after every geometry or
// content change.
package overlay

import (
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/media"
)

// Layer identifies one of the two stacked layers
type Layer int

const (
	ContentLayer Layer = iota
	HitLayer
)

// Backend is the toolkit side of a frame
type Backend interface {
	// ApplyGeometry moves and resizes both layers to r.
	ApplyGeometry(r Rect)
	// ShowContent puts s in the content layer; nil empties it.
	ShowContent(s *media.Surface)
	RaiseHitLayer()
	SetCursor(c Cursor)
	// ParentSize is the size of the container the frame floats in. A zero
	// size means unknown and disables bounds clamping.
	ParentSize() Size
	SetVisible(visible bool)
	// Raise brings the whole frame above its siblings.
	Raise()
}

type Config struct {
	Margin    float32
	MinWidth  float32
	MinHeight float32
	// EdgeKeep is how much of the frame must stay inside the parent.
	EdgeKeep float32
	Default  Rect
}

func DefaultConfig() Config {
	return Config{
		Margin:    10,
		MinWidth:  100,
		MinHeight: 100,
		EdgeKeep:  20,
		Default:   Rect{X: 20, Y: 20, Width: 320, Height: 180},
	}
}

type dragMode int

const (
	dragNone dragMode = iota
	dragMove
	dragResize
)

// Frame holds the overlay geometry and the pointer interaction state
type Frame struct {
	logger  zerolog.Logger
	cfg     Config
	backend Backend

	geom    Rect
	content *media.Surface
	visible bool
	order   [2]Layer

	mode dragMode
	zone Zone
	last Point
}

func NewFrame(logger zerolog.Logger, cfg Config, backend Backend) *Frame {
	f := &Frame{
		logger:  logger.With().Str("component", "overlay").Logger(),
		cfg:     cfg,
		backend: backend,
		order:   [2]Layer{ContentLayer, HitLayer},
	}
	f.SetGeometry(cfg.Default)
	return f
}

func (f *Frame) Geometry() Rect          { return f.geom }
func (f *Frame) Content() *media.Surface { return f.content }
func (f *Frame) Visible() bool           { return f.visible }
func (f *Frame) Dragging() bool          { return f.mode != dragNone }
func (f *Frame) Config() Config          { return f.cfg }

// Layers returns the stacking order, bottom first
func (f *Frame) Layers() [2]Layer { return f.order }

// ensureLayering puts the hit layer back on top of the content layer
func (f *Frame) ensureLayering() {
	f.order = [2]Layer{ContentLayer, HitLayer}
	f.backend.RaiseHitLayer()
}

// SetGeometry applies r after enforcing the minimum size and parent bounds
func (f *Frame) SetGeometry(r Rect) {
	r.Width = max(r.Width, f.cfg.MinWidth)
	r.Height = max(r.Height, f.cfg.MinHeight)
	r.X, r.Y = f.clampPosition(r.X, r.Y)
	f.apply(r)
}

// ResetGeometry restores the configured default rectangle
func (f *Frame) ResetGeometry() {
	f.SetGeometry(f.cfg.Default)
}

func (f *Frame) apply(r Rect) {
	f.geom = r
	f.backend.ApplyGeometry(r)
	f.ensureLayering()
}

func (f *Frame) clampPosition(x, y float32) (float32, float32) {
	parent := f.backend.ParentSize()
	if parent.Width > 0 {
		x = max(0, min(x, parent.Width-f.cfg.EdgeKeep))
	}
	if parent.Height > 0 {
		y = max(0, min(y, parent.Height-f.cfg.EdgeKeep))
	}
	return x, y
}

// SetContent swaps the surface in the content layer and returns the one it
// replaced. Neither surface is closed.
func (f *Frame) SetContent(s *media.Surface) *media.Surface {
	prev := f.content
	f.content = s
	f.backend.ShowContent(s)
	f.ensureLayering()
	return prev
}

// Attach makes s the frame content
func (f *Frame) Attach(s *media.Surface) {
	if s == nil {
		return
	}
	f.SetContent(s)
}

// Detach empties the content layer if it holds s
func (f *Frame) Detach(s *media.Surface) {
	if s == nil || f.content != s {
		return
	}
	f.SetContent(nil)
}

func (f *Frame) Contains(s *media.Surface) bool {
	return s != nil && f.content == s
}

func (f *Frame) Show() {
	f.visible = true
	f.backend.SetVisible(true)
	f.ensureLayering()
}

func (f *Frame) Hide() {
	f.visible = false
	f.mode = dragNone
	f.backend.SetVisible(false)
}

func (f *Frame) Raise() {
	f.backend.Raise()
	f.ensureLayering()
}

// Press starts a move or resize depending on where local falls. global is
// the same point in screen coordinates.
func (f *Frame) Press(local, global Point) {
	f.zone = Classify(local, f.geom.Size(), f.cfg.Margin)
	f.last = global
	if f.zone == Interior {
		f.mode = dragMove
	} else {
		f.mode = dragResize
	}
	f.logger.Debug().Str("zone", f.zone.String()).Msg("drag started")
}

// Drag continues the active gesture. Deltas are taken between successive
// global positions, never against the press point.
func (f *Frame) Drag(global Point) {
	if f.mode == dragNone {
		return
	}
	d := global.Sub(f.last)
	f.last = global

	switch f.mode {
	case dragMove:
		f.move(d)
	case dragResize:
		f.resize(d)
	}
}

func (f *Frame) Release() {
	if f.mode == dragNone {
		return
	}
	f.mode = dragNone
	f.backend.SetCursor(CursorDefault)
	f.logger.Debug().
		Float32("x", f.geom.X).
		Float32("y", f.geom.Y).
		Float32("w", f.geom.Width).
		Float32("h", f.geom.Height).
		Msg("drag finished")
}

// Hover updates the cursor for the zone under local. Ignored mid-drag.
func (f *Frame) Hover(local Point) {
	if f.mode != dragNone {
		return
	}
	f.backend.SetCursor(Classify(local, f.geom.Size(), f.cfg.Margin).Cursor())
}

// DoubleClick forwards to the content's fullscreen request
func (f *Frame) DoubleClick() {
	if f.content == nil {
		return
	}
	f.content.RequestFullscreen()
}

func (f *Frame) move(d Point) {
	r := f.geom
	r.X, r.Y = f.clampPosition(r.X+d.X, r.Y+d.Y)
	f.apply(r)
}

func (f *Frame) resize(d Point) {
	old := f.geom
	left, top := old.X, old.Y
	right, bottom := old.X+old.Width, old.Y+old.Height
	z := f.zone

	if z.HasTop() {
		top += d.Y
	}
	if z.HasBottom() {
		bottom += d.Y
	}
	if z.HasLeft() {
		left += d.X
	}
	if z.HasRight() {
		right += d.X
	}

	// An edge may not cross the minimum size, leave the parent further than
	// it already was, or drag the frame past the keep-inside margin. Offending
	// edits are reverted per axis.
	parent := f.backend.ParentSize()
	keep := f.cfg.EdgeKeep
	outX := parent.Width > 0 &&
		((z.HasLeft() && left < 0 && left < old.X) ||
			(z.HasLeft() && left > parent.Width-keep && left > old.X) ||
			(z.HasRight() && right > parent.Width && right > old.X+old.Width) ||
			(z.HasRight() && right < keep && right < old.X+old.Width))
	outY := parent.Height > 0 &&
		((z.HasTop() && top < 0 && top < old.Y) ||
			(z.HasTop() && top > parent.Height-keep && top > old.Y) ||
			(z.HasBottom() && bottom > parent.Height && bottom > old.Y+old.Height) ||
			(z.HasBottom() && bottom < keep && bottom < old.Y+old.Height))

	if right-left < f.cfg.MinWidth || outX {
		if z.HasLeft() {
			left = old.X
		} else {
			right = old.X + old.Width
		}
	}
	if bottom-top < f.cfg.MinHeight || outY {
		if z.HasTop() {
			top = old.Y
		} else {
			bottom = old.Y + old.Height
		}
	}

	f.apply(Rect{
		X:      left,
		Y:      top,
		Width:  max(right-left, f.cfg.MinWidth),
		Height: max(bottom-top, f.cfg.MinHeight),
	})
}
