// Package enginetest provides an in-memory engine.Player for tests.
package enginetest

import (
	"context"
	"errors"

	"github.com/kikiluvv/reactionsync/internal/engine"
)

// Player is a scriptable engine.Player. Position only moves when the test
// says so (Advance) or when a seek is issued.
type Player struct {
	Path       string
	Paused     bool
	Pos        float64
	Dur        float64
	Volume     int
	Fullscreen bool
	OnTop      bool
	Closed     bool
	Seeks      []float64
	LoadErr    error
	FailAll    error
	Calls      []string
	Loaded     bool
	Plays      int
}

// New returns a paused, empty player with duration dur once loaded
func New(dur float64) *Player {
	return &Player{Paused: true, Dur: dur, Volume: 100}
}

func (p *Player) Load(path string) error {
	p.Calls = append(p.Calls, "load")
	if p.FailAll != nil {
		return p.FailAll
	}
	if p.LoadErr != nil {
		return p.LoadErr
	}
	p.Path = path
	p.Loaded = true
	p.Pos = 0
	p.Paused = true
	return nil
}

func (p *Player) SetPaused(paused bool) error {
	p.Calls = append(p.Calls, "pause")
	if p.FailAll != nil {
		return p.FailAll
	}
	if !paused {
		p.Plays++
	}
	p.Paused = paused
	return nil
}

func (p *Player) Seek(seconds float64) error {
	p.Calls = append(p.Calls, "seek")
	if p.FailAll != nil {
		return p.FailAll
	}
	p.Seeks = append(p.Seeks, seconds)
	p.Pos = seconds
	return nil
}

func (p *Player) TimePos() (float64, error) {
	if p.FailAll != nil {
		return 0, p.FailAll
	}
	if !p.Loaded {
		return 0, nil
	}
	return p.Pos, nil
}

func (p *Player) Duration() (float64, error) {
	if p.FailAll != nil {
		return 0, p.FailAll
	}
	if !p.Loaded {
		return 0, nil
	}
	return p.Dur, nil
}

func (p *Player) SetVolume(volume int) error {
	p.Calls = append(p.Calls, "volume")
	if p.FailAll != nil {
		return p.FailAll
	}
	p.Volume = volume
	return nil
}

func (p *Player) SetFullscreen(full bool) error {
	p.Calls = append(p.Calls, "fullscreen")
	if p.FailAll != nil {
		return p.FailAll
	}
	p.Fullscreen = full
	return nil
}

func (p *Player) SetOnTop(onTop bool) error {
	p.Calls = append(p.Calls, "ontop")
	if p.FailAll != nil {
		return p.FailAll
	}
	p.OnTop = onTop
	return nil
}

func (p *Player) Close() error {
	p.Closed = true
	return nil
}

// Advance moves the position forward while playing
func (p *Player) Advance(seconds float64) {
	if !p.Paused && p.Loaded {
		p.Pos += seconds
	}
}

// ResetSeeks forgets recorded seeks
func (p *Player) ResetSeeks() {
	p.Seeks = nil
}

// Factory hands out the given players in order, then fails
func Factory(players ...engine.Player) engine.Factory {
	return func(ctx context.Context, opts engine.Options) (engine.Player, error) {
		if len(players) == 0 {
			return nil, errors.New("enginetest: no players left")
		}
		p := players[0]
		players = players[1:]
		return p, nil
	}
}

// FailingFactory always fails with err
func FailingFactory(err error) engine.Factory {
	return func(ctx context.Context, opts engine.Options) (engine.Player, error) {
		return nil, err
	}
}
