package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/reactionsync/internal/engine"
	"github.com/kikiluvv/reactionsync/internal/engine/enginetest"
	"github.com/kikiluvv/reactionsync/internal/media"
)

type deferred struct {
	delay time.Duration
	fn    func()
}

type manualScheduler struct {
	queue []deferred
}

func (s *manualScheduler) After(d time.Duration, fn func()) {
	s.queue = append(s.queue, deferred{delay: d, fn: fn})
}

func (s *manualScheduler) runAll() {
	q := s.queue
	s.queue = nil
	for _, d := range q {
		d.fn()
	}
}

type rig struct {
	ctrl   *Controller
	sched  *manualScheduler
	master *enginetest.Player
	follow *enginetest.Player
	ms     *media.Surface
	fs     *media.Surface
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		sched:  &manualScheduler{},
		master: enginetest.New(600),
		follow: enginetest.New(900),
	}
	r.ms = media.New(context.Background(), zerolog.Nop(), "reaction", enginetest.Factory(r.master), engine.Options{})
	r.fs = media.New(context.Background(), zerolog.Nop(), "source", enginetest.Factory(r.follow), engine.Options{})
	r.ms.Load("/v/reaction.mp4")
	r.fs.Load("/v/source.mp4")
	r.ctrl = New(zerolog.Nop(), DefaultConfig(), r.ms, r.fs, r.sched)
	return r
}

func TestStartsIdle(t *testing.T) {
	r := newRig(t)
	assert.Equal(t, Idle, r.ctrl.State())
	assert.Zero(t, r.ctrl.Offset())
	assert.False(t, r.ctrl.Playing())
}

func TestTogglePlayDrivesBothSurfaces(t *testing.T) {
	r := newRig(t)

	assert.True(t, r.ctrl.TogglePlay())
	assert.Equal(t, Playing, r.ctrl.State())
	assert.False(t, r.master.Paused)
	assert.False(t, r.follow.Paused)

	assert.False(t, r.ctrl.TogglePlay())
	assert.True(t, r.master.Paused)
	assert.True(t, r.follow.Paused)
}

func TestPauseReanchorsFollower(t *testing.T) {
	r := newRig(t)
	r.ctrl.SetOffset(4)
	r.ctrl.TogglePlay()

	r.master.Advance(30)
	r.follow.Advance(29)
	r.follow.ResetSeeks()

	r.ctrl.TogglePlay()
	require.NotEmpty(t, r.follow.Seeks)
	assert.Equal(t, 26.0, r.follow.Seeks[len(r.follow.Seeks)-1])
	assert.Empty(t, r.master.Seeks)
}

func TestSetOffsetWhilePausedReanchors(t *testing.T) {
	r := newRig(t)
	r.master.Pos = 50
	r.ctrl.SetOffset(3)
	r.follow.ResetSeeks()

	r.ctrl.SetOffset(5)
	assert.Equal(t, []float64{45}, r.follow.Seeks)
	assert.Empty(t, r.master.Seeks)
	assert.True(t, r.follow.Paused)
}

func TestSetOffsetWhilePlayingWaitsForTick(t *testing.T) {
	r := newRig(t)
	r.ctrl.TogglePlay()
	r.follow.ResetSeeks()

	r.ctrl.SetOffset(10)
	assert.Empty(t, r.follow.Seeks)

	r.master.Pos = 100
	r.follow.Pos = 100
	assert.True(t, r.ctrl.Tick())
	assert.Equal(t, []float64{90}, r.follow.Seeks)
}

func TestTickCorrectsDrift(t *testing.T) {
	r := newRig(t)
	r.ctrl.SetOffset(10)
	r.ctrl.TogglePlay()
	r.follow.ResetSeeks()

	r.master.Pos = 100
	r.follow.Pos = 92

	assert.True(t, r.ctrl.Tick())
	assert.Equal(t, []float64{90}, r.follow.Seeks)
	assert.Empty(t, r.master.Seeks)
}

func TestTickThresholdIsExclusive(t *testing.T) {
	r := newRig(t)
	r.ctrl.TogglePlay()
	r.follow.ResetSeeks()

	r.master.Pos = 10
	r.follow.Pos = 10.5
	assert.False(t, r.ctrl.Tick())

	r.follow.Pos = 9.5
	assert.False(t, r.ctrl.Tick())

	r.follow.Pos = 10.51
	assert.True(t, r.ctrl.Tick())
	assert.Equal(t, []float64{10}, r.follow.Seeks)
}

func TestNegativeOffsetTargetsAhead(t *testing.T) {
	r := newRig(t)
	r.ctrl.SetOffset(-5)
	r.ctrl.TogglePlay()
	r.follow.ResetSeeks()

	r.master.Pos = 20
	r.follow.Pos = 20
	assert.True(t, r.ctrl.Tick())
	assert.Equal(t, []float64{25}, r.follow.Seeks)
}

func TestTickInertWhenPausedOrSeeking(t *testing.T) {
	r := newRig(t)
	r.master.Pos = 100
	r.follow.Pos = 0
	r.follow.ResetSeeks()
	assert.False(t, r.ctrl.Tick())

	r.ctrl.TogglePlay()
	r.ctrl.BeginSeek()
	r.follow.ResetSeeks()
	assert.False(t, r.ctrl.Tick())
	assert.Empty(t, r.follow.Seeks)
}

func TestSeekDragLifecycle(t *testing.T) {
	r := newRig(t)
	r.ctrl.SetOffset(10)
	r.ctrl.TogglePlay()
	r.master.ResetSeeks()
	r.follow.ResetSeeks()

	r.ctrl.BeginSeek()
	assert.Equal(t, Seeking, r.ctrl.State())
	assert.True(t, r.master.Paused)
	assert.True(t, r.follow.Paused)

	r.ctrl.SeekTo(30)
	r.ctrl.SeekTo(40)
	assert.Equal(t, []float64{30, 40}, r.master.Seeks)
	assert.Equal(t, []float64{20, 30}, r.follow.Seeks)

	r.ctrl.EndSeek()
	assert.Equal(t, Playing, r.ctrl.State())
	assert.False(t, r.master.Paused)
	assert.False(t, r.follow.Paused)
	assert.Equal(t, 40.0, r.master.Seeks[len(r.master.Seeks)-1])
	assert.Equal(t, 30.0, r.follow.Seeks[len(r.follow.Seeks)-1])
}

func TestSeekWhilePausedStaysPaused(t *testing.T) {
	r := newRig(t)
	r.ctrl.BeginSeek()
	r.ctrl.SeekTo(12)
	r.ctrl.EndSeek()

	assert.False(t, r.ctrl.Playing())
	assert.True(t, r.master.Paused)
	assert.True(t, r.follow.Paused)
	assert.Equal(t, 12.0, r.master.Pos)
}

func TestSeekToOutsideDragIsAJump(t *testing.T) {
	r := newRig(t)
	r.ctrl.SetOffset(2)
	r.ctrl.TogglePlay()

	r.ctrl.SeekTo(60)
	assert.False(t, r.ctrl.Seeking())
	assert.Equal(t, 60.0, r.master.Pos)
	assert.Equal(t, 58.0, r.follow.Pos)
	assert.False(t, r.master.Paused)
}

func TestPlayIntentDuringDragAppliedOnRelease(t *testing.T) {
	r := newRig(t)
	r.ctrl.BeginSeek()
	r.ctrl.TogglePlay()
	assert.True(t, r.master.Paused)

	r.ctrl.EndSeek()
	assert.False(t, r.master.Paused)
	assert.False(t, r.follow.Paused)
}

func TestEndSeekWithoutBeginIsNoop(t *testing.T) {
	r := newRig(t)
	r.master.ResetSeeks()
	r.ctrl.EndSeek()
	assert.Empty(t, r.master.Seeks)
	assert.Equal(t, Idle, r.ctrl.State())
}

func TestMasterLoadedRefreshesDurationLater(t *testing.T) {
	r := newRig(t)
	var ranges []float64
	r.ctrl.SetHooks(Hooks{RangeChanged: func(d float64) { ranges = append(ranges, d) }})

	r.ctrl.MasterLoaded()
	assert.Zero(t, r.ctrl.Duration())
	require.Len(t, r.sched.queue, 1)
	assert.Equal(t, 500*time.Millisecond, r.sched.queue[0].delay)

	r.sched.runAll()
	assert.Equal(t, 600.0, r.ctrl.Duration())
	assert.Equal(t, []float64{600}, ranges)
	assert.Equal(t, Paused, r.ctrl.State())
}

func TestDurationHintUsedWhenEngineSilent(t *testing.T) {
	r := newRig(t)
	r.master.Dur = 0

	r.ctrl.MasterLoaded()
	r.sched.runAll()
	assert.Zero(t, r.ctrl.Duration())

	r.ctrl.SetDurationHint(321.5)
	assert.Equal(t, 321.5, r.ctrl.Duration())
	assert.True(t, r.ctrl.RefreshDuration())
}

func TestProgressHook(t *testing.T) {
	r := newRig(t)
	var got []float64
	r.ctrl.SetHooks(Hooks{Progress: func(pos, _ float64) { got = append(got, pos) }})

	r.ctrl.Tick()
	assert.Empty(t, got)

	r.ctrl.TogglePlay()
	r.master.Pos = 7
	r.follow.Pos = 7
	r.ctrl.Tick()
	assert.Equal(t, []float64{7}, got)
}

func TestFollowerEmptyDoesNotPanic(t *testing.T) {
	master := enginetest.New(100)
	ms := media.New(context.Background(), zerolog.Nop(), "reaction", enginetest.Factory(master), engine.Options{})
	fs := media.New(context.Background(), zerolog.Nop(), "source", enginetest.FailingFactory(engine.ErrUnavailable), engine.Options{})
	ms.Load("/v/a.mp4")

	c := New(zerolog.Nop(), DefaultConfig(), ms, fs, nil)
	c.SetOffset(3)
	c.TogglePlay()
	master.Pos = 50

	assert.NotPanics(t, func() {
		c.Tick()
		c.SeekTo(20)
		c.MasterLoaded()
	})
	assert.Equal(t, 100.0, c.Duration())
}
