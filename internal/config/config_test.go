package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handhud/internal/config"
	"github.com/ayusman/handhud/internal/mode"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "handhud.db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Pipeline.Alpha != 0.15 {
		t.Errorf("Alpha = %v, want 0.15", cfg.Pipeline.Alpha)
	}
	if cfg.Pipeline.ConfidenceFloor != 0.6 {
		t.Errorf("ConfidenceFloor = %v, want 0.6", cfg.Pipeline.ConfidenceFloor)
	}
	if cfg.Pipeline.ConfirmTicks != 5 {
		t.Errorf("ConfirmTicks = %d, want 5", cfg.Pipeline.ConfirmTicks)
	}
	if got := cfg.TickInterval(); got != time.Second/60 {
		t.Errorf("TickInterval = %v, want %v", got, time.Second/60)
	}
	if got := cfg.StaleAfter(); got != 250*time.Millisecond {
		t.Errorf("StaleAfter = %v, want 250ms", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
addr = " 0.0.0.0:9000 "

[store]
path = "`+filepath.ToSlash(filepath.Join(dir, "hud.db"))+`"

[tracker]
detector = "MOCK"

[pipeline]
alpha = 0.3
confirm_ticks = 3

[logging]
format = "json"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Errorf("resolved = %q exists = %v, want %q true", resolved, exists, path)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Tracker.Detector != config.DetectorMock {
		t.Errorf("Detector = %q, want mock", cfg.Tracker.Detector)
	}
	if cfg.Pipeline.Alpha != 0.3 || cfg.Pipeline.ConfirmTicks != 3 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	// Untouched keys keep their defaults.
	if cfg.Pipeline.ConfidenceFloor != 0.6 || cfg.Pipeline.TickRate != 60 {
		t.Errorf("pipeline defaults lost: %+v", cfg.Pipeline)
	}
	if cfg.DataDir() != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir(), dir)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[pipeline]\nsmoothing = 0.2\n")
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "zero alpha", mutate: func(c *config.Config) { c.Pipeline.Alpha = 0 }, wantErr: "pipeline.alpha"},
		{name: "alpha above one", mutate: func(c *config.Config) { c.Pipeline.Alpha = 1.5 }, wantErr: "pipeline.alpha"},
		{name: "alpha one", mutate: func(c *config.Config) { c.Pipeline.Alpha = 1 }},
		{name: "floor one", mutate: func(c *config.Config) { c.Pipeline.ConfidenceFloor = 1 }, wantErr: "pipeline.confidence_floor"},
		{name: "negative floor", mutate: func(c *config.Config) { c.Pipeline.ConfidenceFloor = -0.1 }, wantErr: "pipeline.confidence_floor"},
		{name: "zero confirm ticks", mutate: func(c *config.Config) { c.Pipeline.ConfirmTicks = 0 }, wantErr: "pipeline.confirm_ticks"},
		{name: "zero tick rate", mutate: func(c *config.Config) { c.Pipeline.TickRate = 0 }, wantErr: "pipeline.tick_rate"},
		{name: "unknown detector", mutate: func(c *config.Config) { c.Tracker.Detector = "opencv" }, wantErr: "tracker.detector"},
		{name: "zero stale window", mutate: func(c *config.Config) { c.Tracker.StaleAfterMs = 0 }, wantErr: "tracker.stale_after_ms"},
		{name: "bad log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "empty addr", mutate: func(c *config.Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPipelineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Alpha = 0.5

	pc := cfg.PipelineConfig(nil)
	if pc.Alpha != 0.5 || pc.ConfirmTicks != 5 || pc.ConfidenceFloor != 0.6 {
		t.Errorf("PipelineConfig = %+v", pc)
	}
	if pc.Overrides["Open_Palm"] != mode.Analyzing {
		t.Errorf("nil overrides should fall back to the built-in table, got %v", pc.Overrides)
	}

	custom := mode.Overrides{"Victory": mode.Speaking}
	pc = cfg.PipelineConfig(custom)
	if len(pc.Overrides) != 1 || pc.Overrides["Victory"] != mode.Speaking {
		t.Errorf("Overrides = %v, want custom table", pc.Overrides)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "handhud.db")
	cfg.Pipeline.Alpha = 0.25

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "alpha = 0.25") {
		t.Fatalf("encoded config missing alpha:\n%s", data)
	}

	path := writeConfig(t, string(data))
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load encoded: %v", err)
	}
	if loaded.Pipeline.Alpha != 0.25 {
		t.Errorf("Alpha = %v after reload", loaded.Pipeline.Alpha)
	}
}
