// Package engine is the boundary to the external media engine. Everything
// above it sees only the Player interface; the mpv adapter drives a real mpv
// process over its JSON IPC socket.
package engine

import (
	"context"
	"errors"

	"github.com/kikiluvv/reactionsync/internal/config"
)

// ErrUnavailable reports that the media engine cannot be started at all.
var ErrUnavailable = errors.New("media engine unavailable")

// Player is one opaque engine instance bound to a drawable.
type Player interface {
	// Load replaces the current media with path.
	Load(path string) error
	SetPaused(paused bool) error
	// Seek moves to an absolute position in seconds.
	Seek(seconds float64) error
	// TimePos and Duration return 0 when no media is active.
	TimePos() (float64, error)
	Duration() (float64, error)
	SetVolume(volume int) error
	// SetFullscreen and SetOnTop drive the engine's own video window.
	SetFullscreen(full bool) error
	SetOnTop(onTop bool) error
	Close() error
}

// Options configures a new player instance.
type Options struct {
	Name        string
	BinaryPath  string
	SocketDir   string
	VideoOutput string
	// WindowID embeds the video output into a native window when non-zero.
	WindowID int64
}

// Factory constructs players. Surfaces call it exactly once.
type Factory func(ctx context.Context, opts Options) (Player, error)

// OptionsFromConfig builds player options for the surface called name
func OptionsFromConfig(cfg config.EngineConfig, name string) Options {
	return Options{
		Name:        name,
		BinaryPath:  cfg.BinaryPath,
		SocketDir:   cfg.SocketDir,
		VideoOutput: cfg.VideoOutput,
	}
}
