package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesPlayerConstants(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 250*time.Millisecond, cfg.Sync.TickInterval)
	assert.Equal(t, 0.5, cfg.Sync.DriftThreshold)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.RefreshDelay)
	assert.Equal(t, float32(10), cfg.Overlay.Margin)
	assert.Equal(t, float32(20), cfg.Overlay.EdgeKeep)
	assert.Equal(t, float32(320), cfg.Overlay.DefaultW)
	assert.Equal(t, float32(180), cfg.Overlay.DefaultH)
	assert.Empty(t, cfg.Remote.Listen)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Sync, cfg.Sync)
}

func TestLoadOverridesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactionsync.yaml")
	data := []byte("sync:\n  drift_threshold: 0.25\n  tick_interval: 100ms\nremote:\n  listen: 127.0.0.1:7070\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Sync.DriftThreshold)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.TickInterval)
	assert.Equal(t, "127.0.0.1:7070", cfg.Remote.Listen)
	// untouched sections keep their defaults
	assert.Equal(t, float32(100), cfg.Overlay.MinWidth)
	assert.Equal(t, "mpv", cfg.Engine.BinaryPath)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Volume.Source = 40

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Volume.Source)
}

func TestContextCarrier(t *testing.T) {
	cfg := Default()
	cfg.Window.Title = "custom"

	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, "ReactionSync", FromContext(context.Background()).Window.Title)
}
