// Package ui is the fyne front end: the main window with the transport
// controls, the secondary source window and the floating overlay.
package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/config"
	"github.com/kikiluvv/reactionsync/internal/engine"
	"github.com/kikiluvv/reactionsync/internal/overlay"
	"github.com/kikiluvv/reactionsync/internal/session"
	"github.com/kikiluvv/reactionsync/internal/topology"
	"github.com/kikiluvv/reactionsync/pkg/util"
)

// keySeekStep is how far the arrow keys jump
const keySeekStep = 5.0

type Options struct {
	Factory engine.Factory
	// Prober and Grabber are optional
	Prober  session.DurationProber
	Grabber FrameGrabber
}

type App struct {
	logger zerolog.Logger
	cfg    *config.Config
	ctx    context.Context

	fyneApp   fyne.App
	main      fyne.Window
	secondary fyne.Window
	sess      *session.Session
	frame     *overlay.Frame

	mainView    *SurfaceView
	secView     *SurfaceView
	overlayView *SurfaceView

	caption      *widget.Label
	controls     *fyne.Container
	seek         *widget.Slider
	clock        *widget.Label
	playBtn      *widget.Button
	offsetEntry  *widget.Entry
	overlayCheck *widget.Check
	reactionVol  *widget.Slider
	sourceVol    *widget.Slider

	// updating is set while a snapshot is written back into the widgets so
	// their change callbacks do not echo it to the session
	updating bool
	dragging bool
	closed   bool
}

// New builds both windows and the session behind them. Nothing is shown
// until Run.
func New(ctx context.Context, logger zerolog.Logger, cfg *config.Config, fa fyne.App, opts Options) (*App, error) {
	a := &App{
		logger:  logger.With().Str("component", "ui").Logger(),
		cfg:     cfg,
		ctx:     ctx,
		fyneApp: fa,
	}

	a.main = fa.NewWindow(cfg.Window.Title)
	a.main.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	a.secondary = fa.NewWindow(cfg.Window.SecondaryTitle)
	a.secondary.Resize(fyne.NewSize(cfg.Window.SecondaryWidth, cfg.Window.SecondaryHeight))

	sched := Scheduler{}
	posters := NewPosters(logger, opts.Grabber, sched)
	a.mainView = NewSurfaceView(ctx, posters)
	a.secView = NewSurfaceView(ctx, posters)
	a.overlayView = NewSurfaceView(ctx, posters)

	stage := container.NewStack(a.mainView)
	backend := newOverlayBackend(stage, a.overlayView)
	a.frame = overlay.NewFrame(logger, overlayConfig(cfg.Overlay), backend)
	a.frame.Hide()
	backend.hit.frame = a.frame
	backend.hit.onDoubleTap = a.publish

	slots := topology.Slots{
		Main:      a.mainView,
		Secondary: windowSlot{SurfaceView: a.secView, win: a.secondary},
		Overlay:   a.frame,
	}
	chrome := topology.Chrome{Main: a}

	sess, err := session.Build(ctx, logger, cfg, sched, opts.Factory, slots, chrome, opts.Prober)
	if err != nil {
		return nil, err
	}
	a.sess = sess
	a.mainView.OnDoubleTap = a.publish
	a.secView.OnDoubleTap = a.publish

	a.buildControls()
	a.main.SetContent(container.NewBorder(a.caption, a.controls, nil, nil, stage))
	a.secondary.SetContent(a.secView)

	a.main.SetMaster()
	a.main.SetOnClosed(a.shutdown)
	a.secondary.SetCloseIntercept(a.secondary.Hide)
	a.main.Canvas().SetOnTypedKey(a.typedKey)
	a.secondary.Canvas().SetOnTypedKey(a.typedKey)

	sess.Subscribe(a.render)
	a.render(sess.Snapshot())
	return a, nil
}

func (a *App) Session() *session.Session { return a.sess }

// Run shows the windows, loads the given files once the event loop is up
// and blocks until the main window closes.
func (a *App) Run(reaction, source string, offset float64) {
	a.fyneApp.Lifecycle().SetOnStarted(func() {
		a.sess.Start()
		if offset != 0 {
			a.sess.SetOffset(offset)
		}
		a.load(session.Reaction, reaction)
		a.load(session.Source, source)
	})

	go func() {
		<-a.ctx.Done()
		fyne.Do(a.main.Close)
	}()

	a.secondary.Show()
	a.main.ShowAndRun()
}

func (a *App) shutdown() {
	if a.closed {
		return
	}
	a.closed = true
	a.sess.Close()
	a.secondary.Close()
	a.logger.Info().Msg("main window closed")
}

// SetControlsVisible and SetCaptionVisible make the main window the
// topology's main chrome. Fullscreen itself happens on the player window.
func (a *App) SetControlsVisible(visible bool) {
	if visible {
		a.controls.Show()
	} else {
		a.controls.Hide()
	}
}

func (a *App) SetCaptionVisible(visible bool) {
	if visible {
		a.caption.Show()
	} else {
		a.caption.Hide()
	}
}

func (a *App) buildControls() {
	a.caption = widget.NewLabel("")
	a.caption.Truncation = fyne.TextTruncateEllipsis

	a.seek = widget.NewSlider(0, 1)
	a.seek.Step = a.cfg.Sync.SeekStep
	a.seek.OnChanged = a.seekChanged
	a.seek.OnChangeEnded = a.seekEnded
	a.clock = widget.NewLabel(clockText(0, 0))

	a.playBtn = widget.NewButtonWithIcon("Play", theme.MediaPlayIcon(), func() { a.sess.PlayPause() })
	swapBtn := widget.NewButtonWithIcon("Swap", theme.ViewRefreshIcon(), a.swap)
	loadReaction := widget.NewButtonWithIcon("Reaction", theme.FolderOpenIcon(), func() { a.chooseFile(session.Reaction) })
	loadSource := widget.NewButtonWithIcon("Source", theme.FolderOpenIcon(), func() { a.chooseFile(session.Source) })
	a.overlayCheck = widget.NewCheck("Overlay", a.overlayToggled)

	a.offsetEntry = widget.NewEntry()
	a.offsetEntry.SetPlaceHolder("seconds or M:SS")
	a.offsetEntry.OnSubmitted = a.offsetSubmitted
	step := a.cfg.Sync.OffsetStep
	minus := widget.NewButtonWithIcon("", theme.ContentRemoveIcon(), func() { a.nudgeOffset(-step) })
	plus := widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() { a.nudgeOffset(step) })

	a.reactionVol = a.volumeSlider(session.Reaction)
	a.sourceVol = a.volumeSlider(session.Source)

	a.controls = container.NewVBox(
		container.NewBorder(nil, nil, nil, a.clock, a.seek),
		container.NewHBox(loadReaction, loadSource, swapBtn, a.playBtn, a.overlayCheck),
		container.NewBorder(nil, nil, widget.NewLabel("Offset"), container.NewHBox(minus, plus), a.offsetEntry),
		container.NewGridWithColumns(2,
			container.NewBorder(nil, nil, widget.NewLabel("Reaction"), nil, a.reactionVol),
			container.NewBorder(nil, nil, widget.NewLabel("Source"), nil, a.sourceVol),
		),
	)
}

func (a *App) volumeSlider(role session.Role) *widget.Slider {
	s := widget.NewSlider(0, 100)
	s.Step = 1
	s.OnChanged = func(v float64) {
		if a.updating {
			return
		}
		if err := a.sess.SetVolume(role, int(v)); err != nil {
			a.showError(err)
		}
	}
	return s
}

func (a *App) chooseFile(role session.Role) {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		a.load(role, path)
	}, a.main)
	fd.SetFilter(storage.NewExtensionFileFilter(util.VideoExtensions))
	fd.Show()
}

func (a *App) load(role session.Role, path string) {
	if err := a.sess.Load(role, path); err != nil {
		a.showError(err)
	}
}

// seekChanged starts a drag on the first user change and follows it
func (a *App) seekChanged(v float64) {
	if a.updating {
		return
	}
	if !a.dragging {
		a.dragging = true
		a.sess.BeginSeek()
	}
	a.sess.SeekTo(v)
}

func (a *App) seekEnded(float64) {
	if a.updating || !a.dragging {
		return
	}
	a.dragging = false
	a.sess.EndSeek()
}

func (a *App) offsetSubmitted(text string) {
	d, err := util.ParseTimestamp(text)
	if err != nil {
		a.showError(err)
		return
	}
	a.sess.SetOffset(d.Seconds())
}

func (a *App) nudgeOffset(delta float64) {
	a.sess.SetOffset(a.sess.Controller().Offset() + delta)
}

func (a *App) swap() {
	if err := a.sess.Swap(); err != nil {
		a.showError(err)
	}
}

func (a *App) overlayToggled(on bool) {
	if a.updating {
		return
	}
	if err := a.sess.SetOverlayMode(on); err != nil {
		a.showError(err)
		a.render(a.sess.Snapshot())
	}
}

func (a *App) publish() { a.sess.Publish() }

func (a *App) typedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeySpace:
		a.sess.PlayPause()
	case fyne.KeyEscape:
		a.sess.ExitTheater()
	case fyne.KeyLeft:
		a.sess.SeekTo(a.sess.Controller().Position() - keySeekStep)
	case fyne.KeyRight:
		a.sess.SeekTo(a.sess.Controller().Position() + keySeekStep)
	case fyne.KeyS:
		a.swap()
	case fyne.KeyO:
		a.overlayToggled(!a.sess.Topology().OverlayMode())
	}
}

func (a *App) showError(err error) {
	a.logger.Warn().Err(err).Msg("action failed")
	dialog.ShowError(err, a.main)
}

// render writes a snapshot into the widgets. It runs on the control thread.
func (a *App) render(snap session.Snapshot) {
	a.updating = true
	defer func() { a.updating = false }()

	if snap.Duration > 0 && a.seek.Max != snap.Duration {
		a.seek.Max = snap.Duration
		a.seek.Refresh()
	}
	if !snap.Seeking && !a.dragging {
		a.seek.SetValue(min(snap.Position, a.seek.Max))
	}
	a.clock.SetText(clockText(snap.Position, snap.Duration))

	if snap.Playing {
		a.playBtn.SetText("Pause")
		a.playBtn.SetIcon(theme.MediaPauseIcon())
	} else {
		a.playBtn.SetText("Play")
		a.playBtn.SetIcon(theme.MediaPlayIcon())
	}

	if a.main.Canvas().Focused() != a.offsetEntry {
		a.offsetEntry.SetText(offsetText(snap.Offset))
	}
	a.overlayCheck.SetChecked(snap.OverlayMode)
	a.reactionVol.SetValue(float64(snap.Reaction.Volume))
	a.sourceVol.SetValue(float64(snap.Source.Volume))
	a.caption.SetText(captionText(snap))

	a.mainView.Update()
	a.secView.Update()
	a.overlayView.Update()
}
