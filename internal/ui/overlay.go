package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/reactionsync/internal/config"
	"github.com/kikiluvv/reactionsync/internal/media"
	"github.com/kikiluvv/reactionsync/internal/overlay"
)

func overlayConfig(cfg config.OverlayConfig) overlay.Config {
	return overlay.Config{
		Margin:    cfg.Margin,
		MinWidth:  cfg.MinWidth,
		MinHeight: cfg.MinHeight,
		EdgeKeep:  cfg.EdgeKeep,
		Default: overlay.Rect{
			X:      cfg.DefaultX,
			Y:      cfg.DefaultY,
			Width:  cfg.DefaultW,
			Height: cfg.DefaultH,
		},
	}
}

// overlayBackend renders a frame as a view plus a hit layer inside a
// layout-free container that covers the main video area.
type overlayBackend struct {
	stage *fyne.Container
	layer *fyne.Container
	view  *SurfaceView
	hit   *hitLayer
}

func newOverlayBackend(stage *fyne.Container, view *SurfaceView) *overlayBackend {
	b := &overlayBackend{
		stage: stage,
		view:  view,
		hit:   newHitLayer(),
	}
	b.layer = container.NewWithoutLayout(view, b.hit)
	stage.Add(b.layer)
	return b
}

func (b *overlayBackend) ApplyGeometry(r overlay.Rect) {
	pos := fyne.NewPos(r.X, r.Y)
	size := fyne.NewSize(r.Width, r.Height)
	b.view.Move(pos)
	b.view.Resize(size)
	b.hit.Move(pos)
	b.hit.Resize(size)
}

func (b *overlayBackend) ShowContent(s *media.Surface) {
	if cur := b.view.Content(); cur != nil {
		b.view.Detach(cur)
	}
	b.view.Attach(s)
}

func (b *overlayBackend) RaiseHitLayer() {
	b.layer.Objects = []fyne.CanvasObject{b.view, b.hit}
	b.layer.Refresh()
}

func (b *overlayBackend) SetCursor(c overlay.Cursor) {
	b.hit.cursor = desktopCursor(c)
}

func (b *overlayBackend) ParentSize() overlay.Size {
	s := b.layer.Size()
	return overlay.Size{Width: s.Width, Height: s.Height}
}

func (b *overlayBackend) SetVisible(visible bool) {
	if visible {
		b.view.Show()
		b.hit.Show()
		return
	}
	b.view.Hide()
	b.hit.Hide()
}

func (b *overlayBackend) Raise() {
	objs := b.stage.Objects
	for i, o := range objs {
		if o == b.layer && i != len(objs)-1 {
			objs = append(append(objs[:i:i], objs[i+1:]...), b.layer)
			break
		}
	}
	b.stage.Objects = objs
	b.stage.Refresh()
}

// fyne has no diagonal resize cursors
func desktopCursor(c overlay.Cursor) desktop.Cursor {
	switch c {
	case overlay.CursorResizeHorizontal:
		return desktop.HResizeCursor
	case overlay.CursorResizeVertical:
		return desktop.VResizeCursor
	case overlay.CursorResizeDiagonalMain, overlay.CursorResizeDiagonalAnti:
		return desktop.CrosshairCursor
	}
	return desktop.DefaultCursor
}

// hitLayer is the transparent widget on top of the overlay that receives
// every pointer event and feeds it to the frame.
type hitLayer struct {
	widget.BaseWidget

	frame  *overlay.Frame
	cursor desktop.Cursor

	onDoubleTap func()
}

var (
	_ desktop.Mouseable   = (*hitLayer)(nil)
	_ desktop.Hoverable   = (*hitLayer)(nil)
	_ desktop.Cursorable  = (*hitLayer)(nil)
	_ fyne.Draggable      = (*hitLayer)(nil)
	_ fyne.DoubleTappable = (*hitLayer)(nil)
	_ overlay.Backend     = (*overlayBackend)(nil)
)

func newHitLayer() *hitLayer {
	h := &hitLayer{cursor: desktop.DefaultCursor}
	h.ExtendBaseWidget(h)
	return h
}

func (h *hitLayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func point(p fyne.Position) overlay.Point {
	return overlay.Point{X: p.X, Y: p.Y}
}

func (h *hitLayer) MouseDown(e *desktop.MouseEvent) {
	if h.frame == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	h.frame.Press(point(e.Position), point(e.AbsolutePosition))
}

func (h *hitLayer) MouseUp(*desktop.MouseEvent) {
	if h.frame != nil {
		h.frame.Release()
	}
}

func (h *hitLayer) Dragged(e *fyne.DragEvent) {
	if h.frame != nil {
		h.frame.Drag(point(e.AbsolutePosition))
	}
}

func (h *hitLayer) DragEnd() {
	if h.frame != nil {
		h.frame.Release()
	}
}

func (h *hitLayer) MouseIn(e *desktop.MouseEvent) { h.MouseMoved(e) }
func (h *hitLayer) MouseOut()                     {}

func (h *hitLayer) MouseMoved(e *desktop.MouseEvent) {
	if h.frame != nil {
		h.frame.Hover(point(e.Position))
	}
}

func (h *hitLayer) Cursor() desktop.Cursor { return h.cursor }

func (h *hitLayer) DoubleTapped(*fyne.PointEvent) {
	if h.frame == nil {
		return
	}
	h.frame.DoubleClick()
	if h.onDoubleTap != nil {
		h.onDoubleTap()
	}
}
