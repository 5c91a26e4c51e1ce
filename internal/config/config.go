package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pipeline"
)

// Server contains HTTP bind and static asset settings.
type Server struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// Store contains the SQLite database location.
type Store struct {
	Path string `toml:"path"`
}

// Camera contains capture device settings.
type Camera struct {
	Enabled bool `toml:"enabled"`
	Device  int  `toml:"device"`
	FPS     int  `toml:"fps"`
}

// Tracker contains hand tracker settings.
type Tracker struct {
	Enabled      bool   `toml:"enabled"`
	Detector     string `toml:"detector"`       // "mediapipe" or "mock"
	StaleAfterMs int    `toml:"stale_after_ms"` // detections older than this count as none
}

// Pipeline contains the per-tick smoothing and debouncing constants.
type Pipeline struct {
	Alpha           float64 `toml:"alpha"`
	ConfidenceFloor float64 `toml:"confidence_floor"`
	ConfirmTicks    int     `toml:"confirm_ticks"`
	TickRate        int     `toml:"tick_rate"` // ticks per second
}

// Logging contains logger settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "auto", "console" or "json"
}

// Config is the full handhud configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Store    Store    `toml:"store"`
	Camera   Camera   `toml:"camera"`
	Tracker  Tracker  `toml:"tracker"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// Load reads the configuration at path over the defaults. An empty path
// means the default location; a missing file at the default location is
// not an error. It returns the config, the resolved path and whether the
// file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}

	_, err = os.Stat(expanded)
	switch {
	case err == nil:
		return expanded, true, nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return expanded, false, nil
	case errors.Is(err, fs.ErrNotExist):
		return "", false, fmt.Errorf("config file %s does not exist", expanded)
	default:
		return "", false, fmt.Errorf("stat config: %w", err)
	}
}

// DataDir returns the directory holding the database and lock file.
func (c *Config) DataDir() string {
	return filepath.Dir(c.Store.Path)
}

// TickInterval returns the time between pipeline ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Pipeline.TickRate)
}

// StaleAfter returns the age beyond which a detection is ignored.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Tracker.StaleAfterMs) * time.Millisecond
}

// PipelineConfig converts the tuning section, using overrides as the
// gesture to mode table (the built-in table when nil).
func (c *Config) PipelineConfig(overrides mode.Overrides) pipeline.Config {
	if overrides == nil {
		overrides = mode.DefaultOverrides()
	}
	return pipeline.Config{
		Alpha:           c.Pipeline.Alpha,
		ConfidenceFloor: c.Pipeline.ConfidenceFloor,
		ConfirmTicks:    c.Pipeline.ConfirmTicks,
		Overrides:       overrides,
	}
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
