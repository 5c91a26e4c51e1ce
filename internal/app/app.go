// Package app wires the hand tracker, the per-tick pipeline and the HUD
// subscribers together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/logging"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pipeline"
	"github.com/ayusman/handhud/internal/pointer"
	"github.com/ayusman/handhud/internal/store"
)

// DefaultTickInterval runs the pipeline at 60 Hz.
const DefaultTickInterval = time.Second / 60

// Tracker is a live frame source with a lifecycle, normally a
// *capture.Tracker.
type Tracker interface {
	pipeline.FrameSource
	Start(ctx context.Context) error
	Close() error
}

// Previewer is implemented by trackers that can serve camera frames.
type Previewer interface {
	Preview() ([]byte, bool)
}

// Config holds configuration options for the application.
type Config struct {
	Pipeline     pipeline.Config
	TickInterval time.Duration

	// NewTracker builds a fresh tracker each time tracking is enabled.
	// Nil runs the pipeline on the pointer fallback alone.
	NewTracker func() (Tracker, error)

	// Store, when set, supplies the override table and gesture templates.
	Store      *store.Store
	Classifier *detector.TemplateClassifier

	Tracking bool // start with tracking enabled
	Logger   *slog.Logger
}

// App owns the pipeline session. One runner goroutine advances the
// pipeline state; everything else reads snapshots.
type App struct {
	config   Config
	pipeline *pipeline.Pipeline
	device   *pointer.Device
	logger   *slog.Logger

	mu       sync.RWMutex
	appMode  mode.Mode
	tracking bool
	latest   pipeline.Output
	hand     []detector.Point3D
	subs     map[int]chan pipeline.Output
	nextSub  int

	runMu   sync.Mutex
	started bool
	ctx     context.Context
	tracker Tracker
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Classifier == nil {
		config.Classifier = detector.NewTemplateClassifier()
	}

	a := &App{
		config:   config,
		pipeline: pipeline.New(config.Pipeline),
		device:   pointer.NewDevice(),
		logger:   logging.Component(config.Logger, "app"),
		appMode:  mode.Idle,
		tracking: config.Tracking,
		subs:     make(map[int]chan pipeline.Output),
	}
	a.latest = pipeline.Passthrough(0, pointer.Point{}, mode.Idle)
	return a
}

// Start loads stored configuration and, when tracking is enabled, starts
// the tracker and the runner. ctx bounds the lifetime of both.
func (a *App) Start(ctx context.Context) error {
	if err := a.Reload(); err != nil {
		return err
	}

	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.started {
		return nil
	}
	a.started = true
	a.ctx = ctx

	if a.Tracking() {
		a.startRunnerLocked()
	}
	return nil
}

// Stop halts the runner, waits for it to exit and then closes the tracker.
// No pipeline state changes after Stop returns.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.stopRunnerLocked()
	a.started = false

	a.mu.Lock()
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.mu.Unlock()

	a.logger.Info("app stopped")
}

// SetTracking enables or disables hand tracking. Disabling stops the
// runner and releases the camera; pointer updates are then published
// unsmoothed.
func (a *App) SetTracking(enabled bool) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.mu.Lock()
	changed := a.tracking != enabled
	a.tracking = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	a.logger.Info("tracking changed", "enabled", enabled)

	if !a.started {
		return
	}
	if enabled {
		a.startRunnerLocked()
		return
	}
	a.stopRunnerLocked()
	a.publishPassthrough()
}

// Tracking reports whether hand tracking is enabled.
func (a *App) Tracking() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tracking
}

// SetMode sets the application mode reported by the chat glue.
func (a *App) SetMode(m mode.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid mode %q", m)
	}

	a.mu.Lock()
	a.appMode = m
	tracking := a.tracking
	a.mu.Unlock()

	if !tracking {
		a.publishPassthrough()
	}
	return nil
}

// Mode returns the application mode.
func (a *App) Mode() mode.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.appMode
}

// MovePointer records a pointing-device position in pixels within a
// viewport of the given size.
func (a *App) MovePointer(px, py, width, height float64) {
	a.device.Move(px, py, width, height)

	if !a.Tracking() {
		a.publishPassthrough()
	}
}

// Latest returns the most recent pipeline output.
func (a *App) Latest() pipeline.Output {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Hand returns the landmarks of the hand tracked on the latest tick.
func (a *App) Hand() ([]detector.Point3D, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.hand) == 0 {
		return nil, false
	}
	return append([]detector.Point3D(nil), a.hand...), true
}

// Subscribe returns a channel receiving every published output. Slow
// subscribers only see the newest value. The returned function
// unsubscribes.
func (a *App) Subscribe() (<-chan pipeline.Output, func()) {
	ch := make(chan pipeline.Output, 1)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	a.mu.Unlock()

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(ch)
		}
	}
}

// Overrides returns the active gesture override table.
func (a *App) Overrides() mode.Overrides {
	return a.pipeline.Overrides()
}

// Preview returns the latest camera frame when the running tracker can
// provide one.
func (a *App) Preview() ([]byte, bool) {
	a.runMu.Lock()
	tracker := a.tracker
	a.runMu.Unlock()

	p, ok := tracker.(Previewer)
	if !ok {
		return nil, false
	}
	return p.Preview()
}

// Reload refreshes the override table and the gesture templates from the
// store. Without a store it is a no-op.
func (a *App) Reload() error {
	if a.config.Store == nil {
		return nil
	}
	if err := a.ReloadOverrides(); err != nil {
		return err
	}
	return a.ReloadTemplates()
}

// ReloadOverrides replaces the pipeline's override table with the stored one.
func (a *App) ReloadOverrides() error {
	if a.config.Store == nil {
		return nil
	}
	table, err := a.config.Store.Overrides().Table()
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	a.pipeline.SetOverrides(table)
	a.logger.Debug("overrides loaded", "count", len(table))
	return nil
}

// ReloadTemplates replaces the classifier's templates with the stored ones.
func (a *App) ReloadTemplates() error {
	if a.config.Store == nil {
		return nil
	}
	templates, err := a.config.Store.Templates().List()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	converted := make([]*detector.Template, 0, len(templates))
	for _, t := range templates {
		converted = append(converted, t.Classifier())
	}
	a.config.Classifier.SetTemplates(converted)
	a.logger.Debug("templates loaded", "count", len(converted))
	return nil
}

// Classifier returns the template classifier shared with the tracker.
func (a *App) Classifier() *detector.TemplateClassifier {
	return a.config.Classifier
}

func (a *App) startRunnerLocked() {
	if a.cancel != nil {
		return
	}

	var source pipeline.FrameSource = noFrames{}
	if a.config.NewTracker != nil {
		tracker, err := a.config.NewTracker()
		if err == nil {
			err = tracker.Start(a.ctx)
			if err != nil {
				tracker.Close()
			}
		}
		if err != nil {
			a.logger.Warn("tracker unavailable, using pointer fallback", "error", err)
		} else {
			a.tracker = tracker
			source = tracker
		}
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	// Resume from the last published pointer so re-enabling does not jump.
	st := pipeline.NewState()
	last := a.Latest()
	st.Tick = last.Tick
	st.Smoothed = last.Pointer
	st.Target = last.Pointer
	_, st.FallbackSeen, _ = a.device.Moved()

	go a.run(ctx, a.done, source, st)
}

func (a *App) stopRunnerLocked() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
		a.cancel = nil
		a.done = nil
	}

	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.logger.Warn("error closing tracker", "error", err)
		}
		a.tracker = nil
	}
}

// run is the only goroutine that advances pipeline state.
func (a *App) run(ctx context.Context, done chan struct{}, source pipeline.FrameSource, st pipeline.State) {
	defer close(done)

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	a.logger.Info("pipeline running", "interval", a.config.TickInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st = a.tick(st, source)
		}
	}
}

// tick advances the pipeline by one step and publishes the result.
func (a *App) tick(st pipeline.State, source pipeline.FrameSource) pipeline.State {
	frame := source.Poll()
	next, out := a.pipeline.Step(st, frame, a.device, a.Mode())

	if next.Gesture.Confirmed != st.Gesture.Confirmed {
		a.logger.Debug("gesture confirmed", "gesture", next.Gesture.Confirmed, "mode", out.Mode)
	}

	a.mu.Lock()
	if out.Tracked {
		a.hand = frame.Landmarks
	} else {
		a.hand = nil
	}
	a.mu.Unlock()

	a.publish(out)
	return next
}

func (a *App) publishPassthrough() {
	a.mu.RLock()
	tick := a.latest.Tick + 1
	pos := a.latest.Pointer
	app := a.appMode
	a.mu.RUnlock()

	if p, ok := a.device.Target(); ok {
		pos = p
	}
	a.publish(pipeline.Passthrough(tick, pos, app))
}

func (a *App) publish(out pipeline.Output) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.latest = out
	for _, ch := range a.subs {
		select {
		case ch <- out:
		default:
			// Drop the stale value and deliver the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- out:
			default:
			}
		}
	}
}

type noFrames struct{}

func (noFrames) Poll() pipeline.Frame { return pipeline.Frame{} }
