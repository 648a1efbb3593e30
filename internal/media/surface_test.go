package media

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/reactionsync/internal/engine"
	"github.com/kikiluvv/reactionsync/internal/engine/enginetest"
)

func newSurface(t *testing.T, p *enginetest.Player) *Surface {
	t.Helper()
	return New(context.Background(), zerolog.Nop(), "reaction", enginetest.Factory(p), engine.Options{})
}

type recordingHost struct {
	requests []*Surface
}

func (h *recordingHost) HandleFullscreenRequest(s *Surface) {
	h.requests = append(h.requests, s)
}

func TestLoadStartsPaused(t *testing.T) {
	p := enginetest.New(120)
	s := newSurface(t, p)

	s.Play()
	s.Load("/tmp/a.mp4")

	assert.Equal(t, Loaded, s.State())
	assert.Equal(t, "/tmp/a.mp4", s.Path())
	assert.False(t, s.Playing())
	assert.True(t, p.Paused)
}

func TestLoadFailureMarksFailed(t *testing.T) {
	p := enginetest.New(120)
	p.LoadErr = errors.New("unrecognized file format")
	s := newSurface(t, p)

	s.Load("/tmp/broken.txt")
	assert.Equal(t, Failed, s.State())
	assert.Zero(t, s.Time())

	p.LoadErr = nil
	s.Load("/tmp/ok.mp4")
	assert.Equal(t, Loaded, s.State())
}

func TestPlayPauseIdempotent(t *testing.T) {
	p := enginetest.New(120)
	s := newSurface(t, p)
	s.Load("/tmp/a.mp4")

	s.Play()
	s.Play()
	assert.Equal(t, 1, p.Plays)

	p.Calls = nil
	s.Pause()
	s.Pause()
	assert.Equal(t, []string{"pause"}, p.Calls)
}

func TestSeekWhileEmptyIsNoop(t *testing.T) {
	p := enginetest.New(120)
	s := newSurface(t, p)

	s.Seek(10)
	assert.Empty(t, p.Seeks)
	assert.Zero(t, s.Time())
	assert.Zero(t, s.Duration())
}

func TestSeekClamps(t *testing.T) {
	p := enginetest.New(60)
	s := newSurface(t, p)
	s.Load("/tmp/a.mp4")

	s.Seek(-3)
	s.Seek(90)
	s.Seek(12.5)
	assert.Equal(t, []float64{0, 60, 12.5}, p.Seeks)
}

func TestSeekUnknownDurationOnlyClampsBelow(t *testing.T) {
	p := enginetest.New(0)
	s := newSurface(t, p)
	s.Load("/tmp/a.mp4")

	s.Seek(500)
	assert.Equal(t, []float64{500}, p.Seeks)
}

func TestVolumeClamped(t *testing.T) {
	p := enginetest.New(60)
	s := newSurface(t, p)

	s.SetVolume(140)
	assert.Equal(t, 100, p.Volume)
	s.SetVolume(-5)
	assert.Equal(t, 0, p.Volume)
	assert.Equal(t, 0, s.Volume())
}

func TestEngineErrorsAreSwallowed(t *testing.T) {
	p := enginetest.New(60)
	s := newSurface(t, p)
	s.Load("/tmp/a.mp4")

	p.FailAll = errors.New("ipc closed")
	assert.NotPanics(t, func() {
		s.Play()
		s.Seek(5)
		s.SetVolume(50)
		s.Pause()
	})
	assert.Zero(t, s.Time())
	assert.Zero(t, s.Duration())
}

func TestInertSurface(t *testing.T) {
	s := New(context.Background(), zerolog.Nop(), "source",
		enginetest.FailingFactory(engine.ErrUnavailable), engine.Options{})

	require.True(t, s.Inert())
	s.Load("/tmp/a.mp4")
	s.Play()
	s.Seek(3)
	s.SetVolume(20)
	s.Close()

	assert.Equal(t, Empty, s.State())
	assert.Zero(t, s.Time())
	assert.True(t, s.Info().Inert)
}

func TestFullscreenGoesToCurrentHost(t *testing.T) {
	s := newSurface(t, enginetest.New(60))
	s.RequestFullscreen() // detached: ignored

	h := &recordingHost{}
	s.SetHost(h)
	s.RequestFullscreen()
	require.Len(t, h.requests, 1)
	assert.Same(t, s, h.requests[0])

	s.SetHost(nil)
	s.RequestFullscreen()
	assert.Len(t, h.requests, 1)
}

func TestWindowStateReachesPlayer(t *testing.T) {
	p := enginetest.New(120)
	s := newSurface(t, p)

	s.SetFullscreen(true)
	s.SetFullscreen(true)
	s.SetOnTop(true)
	assert.True(t, p.Fullscreen)
	assert.True(t, p.OnTop)
	assert.Equal(t, []string{"fullscreen", "ontop"}, p.Calls)
	assert.True(t, s.Info().Fullscreen)

	s.SetFullscreen(false)
	assert.False(t, p.Fullscreen)
	assert.False(t, s.Fullscreen())
}

func TestWindowStateOnInertSurface(t *testing.T) {
	s := New(context.Background(), zerolog.Nop(), "source", enginetest.FailingFactory(engine.ErrUnavailable), engine.Options{})

	s.SetFullscreen(true)
	s.SetOnTop(true)
	assert.True(t, s.Fullscreen())
	assert.True(t, s.OnTop())
}

func TestIdentityIsStable(t *testing.T) {
	a := newSurface(t, enginetest.New(1))
	b := newSurface(t, enginetest.New(1))

	id := a.ID()
	a.Load("/tmp/x.mp4")
	assert.Equal(t, id, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
