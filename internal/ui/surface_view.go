package ui

import (
	"context"
	"image"
	"image/color"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/reactionsync/internal/media"
)

// SurfaceView is the in-window stand-in for a video surface: a poster frame
// and a status line. mpv draws the moving picture in its own window.
type SurfaceView struct {
	widget.BaseWidget

	ctx     context.Context
	posters *Posters
	content *media.Surface
	shown   string

	bg     *canvas.Rectangle
	poster *canvas.Image
	label  *widget.Label

	// OnDoubleTap runs after the content has been asked to go fullscreen
	OnDoubleTap func()
}

func NewSurfaceView(ctx context.Context, posters *Posters) *SurfaceView {
	v := &SurfaceView{
		ctx:     ctx,
		posters: posters,
		bg:      canvas.NewRectangle(color.Black),
		poster:  canvas.NewImageFromImage(nil),
		label:   widget.NewLabel(""),
	}
	v.poster.FillMode = canvas.ImageFillContain
	v.label.Alignment = fyne.TextAlignCenter
	v.label.Truncation = fyne.TextTruncateEllipsis
	v.ExtendBaseWidget(v)
	v.Update()
	return v
}

func (v *SurfaceView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(
		v.bg,
		v.poster,
		container.NewBorder(nil, v.label, nil, nil),
	))
}

func (v *SurfaceView) MinSize() fyne.Size {
	return fyne.NewSize(160, 90)
}

func (v *SurfaceView) Content() *media.Surface { return v.content }

func (v *SurfaceView) Attach(s *media.Surface) {
	if s == nil {
		return
	}
	v.content = s
	v.Update()
}

func (v *SurfaceView) Detach(s *media.Surface) {
	if s == nil || v.content != s {
		return
	}
	v.content = nil
	v.Update()
}

func (v *SurfaceView) Contains(s *media.Surface) bool {
	return s != nil && v.content == s
}

// Update redraws the status line and fetches a poster when the file changed
func (v *SurfaceView) Update() {
	s := v.content
	if s == nil {
		v.label.SetText("")
		v.setPoster("", nil)
		return
	}

	switch s.State() {
	case media.Loaded:
		v.label.SetText(s.Name() + ": " + filepath.Base(s.Path()))
	case media.Failed:
		v.label.SetText(s.Name() + ": failed to load")
	default:
		if s.Inert() {
			v.label.SetText(s.Name() + ": no player")
		} else {
			v.label.SetText(s.Name() + ": no video")
		}
	}

	path := s.Path()
	if path == v.shown {
		return
	}
	v.setPoster("", nil)
	v.posters.Fetch(v.ctx, path, func(img image.Image) {
		if v.content != nil && v.content.Path() == path {
			v.setPoster(path, img)
		}
	})
}

func (v *SurfaceView) setPoster(path string, img image.Image) {
	v.shown = path
	v.poster.Image = img
	v.poster.Refresh()
}

func (v *SurfaceView) DoubleTapped(*fyne.PointEvent) {
	if v.content == nil {
		return
	}
	v.content.RequestFullscreen()
	if v.OnDoubleTap != nil {
		v.OnDoubleTap()
	}
}

// windowSlot is the secondary window seen as a topology container
type windowSlot struct {
	*SurfaceView
	win fyne.Window
}

func (w windowSlot) Show() { w.win.Show() }
func (w windowSlot) Hide() { w.win.Hide() }
