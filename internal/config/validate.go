package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must be set"))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS))
	}
	switch c.Tracker.Detector {
	case DetectorMediaPipe, DetectorMock:
	default:
		errs = append(errs, fmt.Errorf("tracker.detector: unsupported value %q", c.Tracker.Detector))
	}
	if c.Tracker.StaleAfterMs <= 0 {
		errs = append(errs, fmt.Errorf("tracker.stale_after_ms must be positive, got %d", c.Tracker.StaleAfterMs))
	}
	if c.Pipeline.Alpha <= 0 || c.Pipeline.Alpha > 1 {
		errs = append(errs, fmt.Errorf("pipeline.alpha must be in (0,1], got %g", c.Pipeline.Alpha))
	}
	if c.Pipeline.ConfidenceFloor < 0 || c.Pipeline.ConfidenceFloor >= 1 {
		errs = append(errs, fmt.Errorf("pipeline.confidence_floor must be in [0,1), got %g", c.Pipeline.ConfidenceFloor))
	}
	if c.Pipeline.ConfirmTicks < 1 {
		errs = append(errs, fmt.Errorf("pipeline.confirm_ticks must be at least 1, got %d", c.Pipeline.ConfirmTicks))
	}
	if c.Pipeline.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.tick_rate must be positive, got %d", c.Pipeline.TickRate))
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
