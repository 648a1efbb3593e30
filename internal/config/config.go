package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	Sync    SyncConfig    `yaml:"sync"`
	Overlay OverlayConfig `yaml:"overlay"`
	Engine  EngineConfig  `yaml:"engine"`
	Window  WindowConfig  `yaml:"window"`
	Volume  VolumeConfig  `yaml:"volume"`
	Remote  RemoteConfig  `yaml:"remote"`
}

// SyncConfig tunes the drift-correction loop
type SyncConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	DriftThreshold float64       `yaml:"drift_threshold"`
	RefreshDelay   time.Duration `yaml:"refresh_delay"`
	SeekStep       float64       `yaml:"seek_step"`
	MaxOffset      float64       `yaml:"max_offset"`
	OffsetStep     float64       `yaml:"offset_step"`
}

// OverlayConfig sizes the floating overlay frame
type OverlayConfig struct {
	Margin    float32 `yaml:"margin"`
	MinWidth  float32 `yaml:"min_width"`
	MinHeight float32 `yaml:"min_height"`
	EdgeKeep  float32 `yaml:"edge_keep"`
	DefaultX  float32 `yaml:"default_x"`
	DefaultY  float32 `yaml:"default_y"`
	DefaultW  float32 `yaml:"default_width"`
	DefaultH  float32 `yaml:"default_height"`
}

type EngineConfig struct {
	BinaryPath     string        `yaml:"binary_path"`
	SocketDir      string        `yaml:"socket_dir"`
	VideoOutput    string        `yaml:"video_output"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	UseFFprobe     bool          `yaml:"use_ffprobe"`
	Posters        bool          `yaml:"posters"`
}

type WindowConfig struct {
	Title           string  `yaml:"title"`
	Width           float32 `yaml:"width"`
	Height          float32 `yaml:"height"`
	SecondaryTitle  string  `yaml:"secondary_title"`
	SecondaryWidth  float32 `yaml:"secondary_width"`
	SecondaryHeight float32 `yaml:"secondary_height"`
}

type VolumeConfig struct {
	Reaction int `yaml:"reaction"`
	Source   int `yaml:"source"`
}

// RemoteConfig enables the loopback control API when Listen is set
type RemoteConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			TickInterval:   250 * time.Millisecond,
			DriftThreshold: 0.5,
			RefreshDelay:   500 * time.Millisecond,
			SeekStep:       0.1,
			MaxOffset:      3600,
			OffsetStep:     0.5,
		},
		Overlay: OverlayConfig{
			Margin:    10,
			MinWidth:  100,
			MinHeight: 100,
			EdgeKeep:  20,
			DefaultX:  20,
			DefaultY:  20,
			DefaultW:  320,
			DefaultH:  180,
		},
		Engine: EngineConfig{
			BinaryPath:     "mpv",
			SocketDir:      os.TempDir(),
			VideoOutput:    "gpu",
			ConnectTimeout: 3 * time.Second,
			UseFFprobe:     true,
			Posters:        true,
		},
		Window: WindowConfig{
			Title:           "ReactionSync",
			Width:           1000,
			Height:          600,
			SecondaryTitle:  "Source",
			SecondaryWidth:  500,
			SecondaryHeight: 400,
		},
		Volume: VolumeConfig{
			Reaction: 100,
			Source:   100,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./reactionsync.yaml",
		"./reactionsync.yml",
		filepath.Join(os.Getenv("HOME"), ".reactionsync", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
