// Package media wraps engine players as the two long-lived video surfaces.
package media

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/engine"
)

// LoadState of a surface
type LoadState int

const (
	Empty LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "empty"
	}
}

// Host is whatever container currently displays a surface. It decides what
// a fullscreen request from that surface means.
type Host interface {
	HandleFullscreenRequest(s *Surface)
}

// Surface is one video surface. Engine errors stop here: every method
// either succeeds or logs and carries on.
type Surface struct {
	id     uuid.UUID
	name   string
	logger zerolog.Logger
	player engine.Player

	state      LoadState
	path       string
	playing    bool
	volume     int
	fullscreen bool
	onTop      bool
	host       Host
}

// Info is a read-only view of a surface
type Info struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Path       string  `json:"path,omitempty"`
	Playing    bool    `json:"playing"`
	Volume     int     `json:"volume"`
	Fullscreen bool    `json:"fullscreen"`
	Inert      bool    `json:"inert"`
	Time       float64 `json:"time"`
}

// New constructs a surface. If the factory fails the surface is inert for
// the rest of its life.
func New(ctx context.Context, logger zerolog.Logger, name string, factory engine.Factory, opts engine.Options) *Surface {
	s := &Surface{
		id:     uuid.New(),
		name:   name,
		logger: logger.With().Str("component", "surface").Str("surface", name).Logger(),
		volume: 100,
	}

	opts.Name = name
	player, err := factory(ctx, opts)
	if err != nil {
		s.logger.Warn().Err(err).Msg("player construction failed, surface is inert")
		return s
	}
	s.player = player
	return s
}

func (s *Surface) ID() uuid.UUID    { return s.id }
func (s *Surface) Name() string     { return s.name }
func (s *Surface) State() LoadState { return s.state }
func (s *Surface) Path() string     { return s.path }
func (s *Surface) Playing() bool    { return s.playing }
func (s *Surface) Volume() int      { return s.volume }

// Inert reports whether the surface has no engine behind it
func (s *Surface) Inert() bool { return s.player == nil }

// Load replaces the media and leaves the surface paused.
func (s *Surface) Load(path string) {
	if s.player == nil || path == "" {
		return
	}

	if err := s.player.Load(path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("load failed")
		s.state = Failed
		s.path = ""
		s.playing = false
		return
	}

	s.state = Loaded
	s.path = path
	s.playing = false
	s.logger.Info().Str("path", path).Msg("media loaded")
}

func (s *Surface) Play() {
	if s.playing {
		return
	}
	s.playing = true
	s.setPaused(false)
}

func (s *Surface) Pause() {
	if !s.playing {
		return
	}
	s.playing = false
	s.setPaused(true)
}

func (s *Surface) setPaused(paused bool) {
	if s.player == nil || s.state != Loaded {
		return
	}
	if err := s.player.SetPaused(paused); err != nil {
		s.logger.Warn().Err(err).Bool("paused", paused).Msg("pause toggle failed")
	}
}

// Seek moves to t, clamped to [0, duration]. The upper bound only applies
// once the engine reports a duration.
func (s *Surface) Seek(t float64) {
	if s.player == nil || s.state != Loaded || math.IsNaN(t) {
		return
	}

	if d := s.Duration(); d > 0 && t > d {
		t = d
	}
	if t < 0 {
		t = 0
	}

	if err := s.player.Seek(t); err != nil {
		s.logger.Warn().Err(err).Float64("target", t).Msg("seek failed")
	}
}

// Time is the current position, 0 without active media
func (s *Surface) Time() float64 {
	if s.player == nil || s.state != Loaded {
		return 0
	}
	t, err := s.player.TimePos()
	if err != nil {
		s.logger.Debug().Err(err).Msg("time-pos unavailable")
		return 0
	}
	return t
}

// Duration is the media length, 0 when unknown
func (s *Surface) Duration() float64 {
	if s.player == nil || s.state != Loaded {
		return 0
	}
	d, err := s.player.Duration()
	if err != nil {
		s.logger.Debug().Err(err).Msg("duration unavailable")
		return 0
	}
	return d
}

func (s *Surface) SetVolume(v int) {
	v = max(0, min(100, v))
	s.volume = v
	if s.player == nil {
		return
	}
	if err := s.player.SetVolume(v); err != nil {
		s.logger.Warn().Err(err).Int("volume", v).Msg("volume change failed")
	}
}

// Fullscreen reports whether the engine window was last put in fullscreen
func (s *Surface) Fullscreen() bool { return s.fullscreen }

func (s *Surface) OnTop() bool { return s.onTop }

// SetFullscreen puts the engine's video window in or out of fullscreen. It
// works with nothing loaded since the window exists from startup.
func (s *Surface) SetFullscreen(full bool) {
	if s.fullscreen == full {
		return
	}
	s.fullscreen = full
	if s.player == nil {
		return
	}
	if err := s.player.SetFullscreen(full); err != nil {
		s.logger.Warn().Err(err).Bool("fullscreen", full).Msg("fullscreen change failed")
	}
}

// SetOnTop keeps the engine window above other windows while it floats as
// the overlay.
func (s *Surface) SetOnTop(onTop bool) {
	if s.onTop == onTop {
		return
	}
	s.onTop = onTop
	if s.player == nil {
		return
	}
	if err := s.player.SetOnTop(onTop); err != nil {
		s.logger.Warn().Err(err).Bool("ontop", onTop).Msg("ontop change failed")
	}
}

// SetHost records the container now displaying the surface; nil detaches
func (s *Surface) SetHost(h Host) { s.host = h }

func (s *Surface) Host() Host { return s.host }

// RequestFullscreen asks the current host to toggle fullscreen
func (s *Surface) RequestFullscreen() {
	if s.host == nil {
		s.logger.Debug().Msg("fullscreen request on detached surface ignored")
		return
	}
	s.host.HandleFullscreenRequest(s)
}

func (s *Surface) Info() Info {
	return Info{
		ID:         s.id.String(),
		Name:       s.name,
		State:      s.state.String(),
		Path:       s.path,
		Playing:    s.playing,
		Volume:     s.volume,
		Fullscreen: s.fullscreen,
		Inert:      s.Inert(),
		Time:       s.Time(),
	}
}

// Close shuts the engine player down
func (s *Surface) Close() {
	if s.player == nil {
		return
	}
	if err := s.player.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("player close failed")
	}
	s.player = nil
}
