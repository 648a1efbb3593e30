// Package session is the command surface of the viewer. It ties the two
// media surfaces, the sync controller and the topology manager together and
// must only be driven from the control thread (see Scheduler).
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/config"
	"github.com/kikiluvv/reactionsync/internal/media"
	"github.com/kikiluvv/reactionsync/internal/syncer"
	"github.com/kikiluvv/reactionsync/internal/topology"
)

var ErrLoadFailed = errors.New("load failed")

const probeTimeout = 10 * time.Second

// DurationProber reads a file's duration without the player
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

type Config struct {
	Sync      syncer.Config
	SeekStep  float64
	MaxOffset float64
}

// ConfigFrom extracts the session settings from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Sync: syncer.Config{
			TickInterval:   cfg.Sync.TickInterval,
			DriftThreshold: cfg.Sync.DriftThreshold,
			RefreshDelay:   cfg.Sync.RefreshDelay,
		},
		SeekStep:  cfg.Sync.SeekStep,
		MaxOffset: cfg.Sync.MaxOffset,
	}
}

// Snapshot is a read-only copy of the session state
type Snapshot struct {
	State       string     `json:"state"`
	Playing     bool       `json:"playing"`
	Seeking     bool       `json:"seeking"`
	Offset      float64    `json:"offset"`
	Position    float64    `json:"position"`
	Duration    float64    `json:"duration"`
	OverlayMode bool       `json:"overlay_mode"`
	Theater     bool       `json:"theater"`
	Main        string     `json:"main"`
	Reaction    media.Info `json:"reaction"`
	Source      media.Info `json:"source"`
}

// Listener is called on the control thread after every state change
type Listener func(Snapshot)

type Session struct {
	logger zerolog.Logger
	cfg    Config
	sched  Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	reaction *media.Surface
	source   *media.Surface
	ctrl     *syncer.Controller
	topo     *topology.Manager
	prober   DurationProber

	listeners []Listener
}

// New wires a session. prober may be nil.
func New(ctx context.Context, logger zerolog.Logger, cfg Config, sched Scheduler,
	reaction, source *media.Surface, topo *topology.Manager, prober DurationProber) *Session {

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		logger:   logger.With().Str("component", "session").Logger(),
		cfg:      cfg,
		sched:    sched,
		ctx:      ctx,
		cancel:   cancel,
		reaction: reaction,
		source:   source,
		topo:     topo,
		prober:   prober,
	}

	s.ctrl = syncer.New(logger, cfg.Sync, reaction, source, sched)
	s.ctrl.SetHooks(syncer.Hooks{
		RangeChanged: func(float64) { s.notify() },
	})
	return s
}

// Start runs the correction tick until Close
func (s *Session) Start() {
	StartTicker(s.ctx, s.sched, s.ctrl.Config().TickInterval, s.Tick)
	s.logger.Debug().Dur("interval", s.ctrl.Config().TickInterval).Msg("correction tick started")
}

// Close stops the tick and shuts both players down
func (s *Session) Close() {
	s.cancel()
	s.reaction.Close()
	s.source.Close()
	s.logger.Info().Msg("session closed")
}

func (s *Session) Scheduler() Scheduler           { return s.sched }
func (s *Session) Controller() *syncer.Controller { return s.ctrl }
func (s *Session) Topology() *topology.Manager    { return s.topo }

// Do runs fn on the control thread and waits for it. Safe from any goroutine.
func (s *Session) Do(ctx context.Context, fn func(*Session) error) error {
	return Call(ctx, s.sched, func() error { return fn(s) })
}

func (s *Session) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Publish pushes the current snapshot to subscribers. Views call it after
// changing state the session does not see, such as a double-click handled by
// a surface's host.
func (s *Session) Publish() {
	s.notify()
}

func (s *Session) notify() {
	if len(s.listeners) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, l := range s.listeners {
		l(snap)
	}
}

func (s *Session) Surface(role Role) (*media.Surface, error) {
	switch role {
	case Reaction:
		return s.reaction, nil
	case Source:
		return s.source, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
}

// Load opens path on the surface playing role. An empty path is a cancelled
// file selection and does nothing.
func (s *Session) Load(role Role, path string) error {
	surf, err := s.Surface(role)
	if err != nil {
		return err
	}
	if path == "" {
		s.logger.Debug().Str("role", role.String()).Msg("no file selected")
		return nil
	}
	if surf.Inert() {
		// already reported when the player failed to start
		s.logger.Debug().Str("role", role.String()).Msg("load on inert surface ignored")
		return nil
	}

	surf.Load(path)
	if surf.State() != media.Loaded {
		s.notify()
		return fmt.Errorf("%w: %s", ErrLoadFailed, path)
	}

	if role == Reaction {
		s.ctrl.MasterLoaded()
		s.probeDuration(path)
	}

	s.logger.Info().Str("role", role.String()).Str("path", path).Msg("file loaded")
	s.notify()
	return nil
}

// probeDuration asks ffprobe for the duration in the background in case the
// player has not reported one by the deferred refresh.
func (s *Session) probeDuration(path string) {
	if s.prober == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, probeTimeout)
		defer cancel()

		d, err := s.prober.ProbeDuration(ctx, path)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("duration probe failed")
			return
		}
		s.sched.Post(func() {
			if s.reaction.Path() != path {
				return
			}
			s.ctrl.SetDurationHint(d)
		})
	}()
}

// PlayPause toggles synchronized playback and returns the new state
func (s *Session) PlayPause() bool {
	playing := s.ctrl.TogglePlay()
	s.notify()
	return playing
}

func (s *Session) SetPlaying(playing bool) {
	s.ctrl.SetPlaying(playing)
	s.notify()
}

// SetOffset sets the follower offset in seconds, limited to ±MaxOffset
func (s *Session) SetOffset(v float64) {
	if s.cfg.MaxOffset > 0 {
		v = max(-s.cfg.MaxOffset, min(s.cfg.MaxOffset, v))
	}
	s.ctrl.SetOffset(v)
	s.notify()
}

func (s *Session) BeginSeek() {
	s.ctrl.BeginSeek()
	s.notify()
}

// SeekTo moves both surfaces to v on the reaction timeline
func (s *Session) SeekTo(v float64) {
	s.ctrl.SeekTo(s.quantize(v))
	s.notify()
}

func (s *Session) EndSeek() {
	s.ctrl.EndSeek()
	s.notify()
}

// quantize snaps v to the seek step and the known range
func (s *Session) quantize(v float64) float64 {
	if s.cfg.SeekStep > 0 {
		v = math.Round(v/s.cfg.SeekStep) * s.cfg.SeekStep
	}
	if d := s.ctrl.Duration(); d > 0 && v > d {
		v = d
	}
	return max(v, 0)
}

func (s *Session) Swap() error {
	if err := s.topo.Swap(); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Session) SetOverlayMode(enabled bool) error {
	if err := s.topo.SetOverlayMode(enabled); err != nil {
		return err
	}
	s.notify()
	return nil
}

// RequestFullscreen acts as if the surface for role was double-clicked
func (s *Session) RequestFullscreen(role Role) error {
	surf, err := s.Surface(role)
	if err != nil {
		return err
	}
	surf.RequestFullscreen()
	s.notify()
	return nil
}

// ExitTheater leaves theater mode if it is on
func (s *Session) ExitTheater() {
	if !s.topo.Theater() {
		return
	}
	s.topo.SetTheater(false)
	s.notify()
}

func (s *Session) SetVolume(role Role, v int) error {
	surf, err := s.Surface(role)
	if err != nil {
		return err
	}
	surf.SetVolume(v)
	s.notify()
	return nil
}

// Tick runs one drift check and publishes progress while playing
func (s *Session) Tick() {
	s.ctrl.Tick()
	if s.ctrl.Playing() && !s.ctrl.Seeking() {
		s.notify()
	}
}

func (s *Session) Snapshot() Snapshot {
	main := Reaction
	if s.topo.Primary() == s.source {
		main = Source
	}
	return Snapshot{
		State:       s.ctrl.State().String(),
		Playing:     s.ctrl.Playing(),
		Seeking:     s.ctrl.Seeking(),
		Offset:      s.ctrl.Offset(),
		Position:    s.ctrl.Position(),
		Duration:    s.ctrl.Duration(),
		OverlayMode: s.topo.OverlayMode(),
		Theater:     s.topo.Theater(),
		Main:        main.String(),
		Reaction:    s.reaction.Info(),
		Source:      s.source.Info(),
	}
}
