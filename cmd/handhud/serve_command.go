package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/ayusman/handhud/internal/app"
	"github.com/ayusman/handhud/internal/capture"
	"github.com/ayusman/handhud/internal/config"
	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/server"
	"github.com/ayusman/handhud/internal/store"
	"github.com/ayusman/handhud/internal/tray"
)

type serveOptions struct {
	addr     string
	camera   int
	noCamera bool
	tray     bool
	static   string
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking daemon and HUD server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyServeFlags(cmd, cfg, opts)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, opts.tray, logger)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().IntVar(&opts.camera, "camera", 0, "Camera device index (overrides camera.device)")
	cmd.Flags().BoolVar(&opts.noCamera, "no-camera", false, "Run on the pointer fallback only")
	cmd.Flags().BoolVar(&opts.tray, "tray", false, "Show a system tray icon")
	cmd.Flags().StringVar(&opts.static, "static", "", "Directory with the HUD web assets")

	return cmd
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config, opts serveOptions) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = strings.TrimSpace(opts.addr)
	}
	if flags.Changed("camera") {
		cfg.Camera.Device = opts.camera
		cfg.Camera.Enabled = true
	}
	if opts.noCamera {
		cfg.Camera.Enabled = false
	}
	if flags.Changed("static") {
		cfg.Server.StaticDir = strings.TrimSpace(opts.static)
	}
}

func runServe(parent context.Context, cfg *config.Config, withTray bool, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(instanceLockPath(cfg))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return errors.New("another handhud instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	classifier := detector.NewTemplateClassifier()
	a := app.New(app.Config{
		Pipeline:     cfg.PipelineConfig(nil),
		TickInterval: cfg.TickInterval(),
		NewTracker:   trackerFactory(cfg, classifier, logger),
		Store:        st,
		Classifier:   classifier,
		Tracking:     cfg.Tracker.Enabled && cfg.Camera.Enabled,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	defer a.Stop()

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir())
	}
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
		Logger:    logger,
	})

	if !withTray {
		return srv.Run(ctx, cfg.Server.Addr)
	}

	errCh := make(chan error, 1)
	t := tray.New(a.Tracking())
	t.OnToggle(a.SetTracking)
	t.OnOpenHUD(func() {
		if err := openBrowser(hudURL(cfg.Server.Addr)); err != nil {
			logger.Warn("open HUD failed", "error", err)
		}
	})
	t.OnQuit(stop)

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go t.Watch(updates)

	go func() {
		errCh <- srv.Run(ctx, cfg.Server.Addr)
		t.Quit()
	}()

	// systray wants the calling goroutine; Run returns after Quit.
	t.Run()
	stop()
	return <-errCh
}

// trackerFactory builds a camera-backed tracker each time tracking is
// switched on. A nil factory keeps the app on the pointer fallback.
func trackerFactory(cfg *config.Config, classifier *detector.TemplateClassifier, logger *slog.Logger) func() (app.Tracker, error) {
	if !cfg.Camera.Enabled {
		return nil
	}
	return func() (app.Tracker, error) {
		det, err := newDetector(cfg.Tracker.Detector, logger)
		if err != nil {
			return nil, err
		}
		return capture.NewTracker(capture.TrackerConfig{
			Camera:     capture.NewCamera(cfg.Camera.Device, cfg.Camera.FPS),
			Detector:   det,
			Classifier: classifier,
			StaleAfter: cfg.StaleAfter(),
			Logger:     logger,
		}), nil
	}
}

func newDetector(kind string, logger *slog.Logger) (detector.Detector, error) {
	switch kind {
	case config.DetectorMock:
		return detector.NewMockDetector(), nil
	case config.DetectorMediaPipe, "":
		det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
		if err != nil {
			logger.Warn("mediapipe unavailable, using mock detector", "error", err)
			return detector.NewMockDetector(), nil
		}
		return det, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", kind)
	}
}

// findWebDir searches for the HUD assets in the working directory, its
// parents, and the data directory.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	if dataDir == "" {
		return ""
	}
	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}

func hudURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
