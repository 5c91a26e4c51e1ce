package config

import (
	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/pointer"
)

const (
	defaultAddr            = "127.0.0.1:8080"
	defaultStorePath       = "~/.handhud/handhud.db"
	defaultCameraDevice    = 0
	defaultCameraFPS       = 30
	defaultDetector        = DetectorMediaPipe
	defaultStaleAfterMs    = 250
	defaultTickRate        = 60
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultConfigPath      = "~/.handhud/config.toml"
	defaultCameraEnabled   = true
	defaultTrackingEnabled = true
)

// Detector backends.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr: defaultAddr,
		},
		Store: Store{
			Path: defaultStorePath,
		},
		Camera: Camera{
			Enabled: defaultCameraEnabled,
			Device:  defaultCameraDevice,
			FPS:     defaultCameraFPS,
		},
		Tracker: Tracker{
			Enabled:      defaultTrackingEnabled,
			Detector:     defaultDetector,
			StaleAfterMs: defaultStaleAfterMs,
		},
		Pipeline: Pipeline{
			Alpha:           pointer.DefaultAlpha,
			ConfidenceFloor: gesture.DefaultConfidenceFloor,
			ConfirmTicks:    gesture.DefaultConfirmTicks,
			TickRate:        defaultTickRate,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
