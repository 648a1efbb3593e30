// Package syncer keeps the follower surface aligned to the master surface
// under a user-controlled offset.
package syncer

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Surface is the part of a media surface the controller drives
type Surface interface {
	Play()
	Pause()
	Seek(t float64)
	Time() float64
	Duration() float64
}

// Scheduler runs fn on the control thread after d
type Scheduler interface {
	After(d time.Duration, fn func())
}

// State of the controller
type State int

const (
	Idle State = iota
	Playing
	Paused
	Seeking
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Seeking:
		return "seeking"
	default:
		return "idle"
	}
}

// Config tunes the controller
type Config struct {
	TickInterval   time.Duration
	DriftThreshold float64
	RefreshDelay   time.Duration
}

// DefaultConfig returns the stock tuning
func DefaultConfig() Config {
	return Config{
		TickInterval:   250 * time.Millisecond,
		DriftThreshold: 0.5,
		RefreshDelay:   500 * time.Millisecond,
	}
}

// Hooks receive readout updates. Both are optional.
type Hooks struct {
	// Progress is called from Tick with the master position while playing.
	Progress func(position, duration float64)
	// RangeChanged is called when the seek range is recalibrated.
	RangeChanged func(duration float64)
}

// Controller owns the master/follower relationship. The master is never
// corrected; only the follower is seeked.
type Controller struct {
	logger   zerolog.Logger
	cfg      Config
	master   Surface
	follower Surface
	sched    Scheduler
	hooks    Hooks

	playing      bool
	offset       float64
	seeking      bool
	seekValue    float64
	seekMoved    bool
	masterLoaded bool
	duration     float64
	durationHint float64
}

// New creates a controller. master is the reaction surface.
func New(logger zerolog.Logger, cfg Config, master, follower Surface, sched Scheduler) *Controller {
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = DefaultConfig().DriftThreshold
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Controller{
		logger:   logger.With().Str("component", "syncer").Logger(),
		cfg:      cfg,
		master:   master,
		follower: follower,
		sched:    sched,
	}
}

// SetHooks replaces the readout hooks
func (c *Controller) SetHooks(h Hooks) { c.hooks = h }

func (c *Controller) Config() Config    { return c.cfg }
func (c *Controller) Playing() bool     { return c.playing }
func (c *Controller) Seeking() bool     { return c.seeking }
func (c *Controller) Offset() float64   { return c.offset }
func (c *Controller) Duration() float64 { return c.duration }

func (c *Controller) State() State {
	switch {
	case c.seeking:
		return Seeking
	case c.playing:
		return Playing
	case !c.masterLoaded:
		return Idle
	default:
		return Paused
	}
}

// SetOffset stores the offset. While not playing the follower is
// re-anchored immediately so the paused frame pair reflects it.
func (c *Controller) SetOffset(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	c.offset = v
	c.logger.Debug().Float64("offset", v).Msg("offset changed")

	if !c.playing && !c.seeking {
		c.reanchor()
	}
}

// TogglePlay flips between playing and paused and returns the new state
func (c *Controller) TogglePlay() bool {
	c.SetPlaying(!c.playing)
	return c.playing
}

// SetPlaying starts or stops synchronized playback. During a seek drag only
// the intent is recorded; EndSeek applies it.
func (c *Controller) SetPlaying(playing bool) {
	if playing == c.playing {
		return
	}
	c.playing = playing
	c.logger.Info().Bool("playing", playing).Msg("playback toggled")

	if c.seeking {
		return
	}

	if playing {
		c.master.Play()
		c.follower.Play()
		return
	}

	c.master.Pause()
	c.follower.Pause()
	c.reanchor()
}

func (c *Controller) reanchor() {
	target := c.master.Time() - c.offset
	c.follower.Seek(target)
}

// Tick runs one drift check. It reports whether a corrective seek was issued.
func (c *Controller) Tick() bool {
	if c.seeking || !c.playing {
		return false
	}

	t := c.master.Time()
	if c.hooks.Progress != nil {
		c.hooks.Progress(t, c.duration)
	}

	target := t - c.offset
	actual := c.follower.Time()
	drift := math.Abs(actual - target)
	if drift <= c.cfg.DriftThreshold {
		return false
	}

	c.logger.Debug().
		Float64("master", t).
		Float64("follower", actual).
		Float64("target", target).
		Float64("drift", drift).
		Msg("correcting follower drift")

	c.follower.Seek(target)
	return true
}

// BeginSeek starts a seek drag. Both surfaces pause so scrubbing never
// races the correction tick.
func (c *Controller) BeginSeek() {
	if c.seeking {
		return
	}
	c.seeking = true
	c.seekMoved = false
	c.master.Pause()
	c.follower.Pause()
}

// SeekTo moves both surfaces to v on the master timeline. Outside a drag it
// behaves like a complete press-move-release.
func (c *Controller) SeekTo(v float64) {
	if math.IsNaN(v) {
		return
	}
	if !c.seeking {
		c.BeginSeek()
		c.seekTo(v)
		c.EndSeek()
		return
	}
	c.seekTo(v)
}

func (c *Controller) seekTo(v float64) {
	c.seekValue = v
	c.seekMoved = true
	c.master.Seek(v)
	c.follower.Seek(v - c.offset)
}

// EndSeek releases the drag and resumes playback if it was active
func (c *Controller) EndSeek() {
	if !c.seeking {
		return
	}
	c.seeking = false

	if c.seekMoved {
		c.master.Seek(c.seekValue)
		c.follower.Seek(c.seekValue - c.offset)
	}

	if c.playing {
		c.master.Play()
		c.follower.Play()
	}
}

// MasterLoaded schedules the deferred duration refresh. A second load
// before it fires just re-reads the current duration.
func (c *Controller) MasterLoaded() {
	c.masterLoaded = true
	c.durationHint = 0

	if c.sched == nil {
		c.RefreshDuration()
		return
	}
	c.sched.After(c.cfg.RefreshDelay, func() {
		c.RefreshDuration()
	})
}

// SetDurationHint supplies a duration from outside the engine, used when
// the engine has not reported one.
func (c *Controller) SetDurationHint(d float64) {
	if d <= 0 {
		return
	}
	c.durationHint = d
	if c.duration <= 0 {
		c.setDuration(d)
	}
}

// RefreshDuration re-reads the master duration and recalibrates the seek
// range. It reports whether a usable duration was found.
func (c *Controller) RefreshDuration() bool {
	d := c.master.Duration()
	if d <= 0 {
		d = c.durationHint
	}
	if d <= 0 {
		c.logger.Debug().Msg("master duration not available yet")
		return false
	}
	c.setDuration(d)
	return true
}

func (c *Controller) setDuration(d float64) {
	c.duration = d
	c.logger.Debug().Float64("duration", d).Msg("seek range recalibrated")
	if c.hooks.RangeChanged != nil {
		c.hooks.RangeChanged(d)
	}
}

// Position is the master position for the progress readout
func (c *Controller) Position() float64 {
	return c.master.Time()
}
