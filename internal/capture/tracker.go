package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/logging"
	"github.com/ayusman/handhud/internal/pipeline"
)

// DefaultStaleAfter is how long a detection stays current.
const DefaultStaleAfter = 250 * time.Millisecond

// previewWindow is how long after the last Preview call frames keep being
// JPEG-encoded for the stream.
const previewWindow = 2 * time.Second

// ErrTrackerRunning is returned by Start on a tracker that is already running.
var ErrTrackerRunning = errors.New("tracker already running")

// TrackerConfig holds the tracker's collaborators.
type TrackerConfig struct {
	Camera     Camera
	Detector   detector.Detector
	Classifier *detector.TemplateClassifier // optional, fills in gestures
	StaleAfter time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Tracker runs the camera and detector on its own goroutine and keeps only
// the most recent detection. It is the live pipeline.FrameSource.
type Tracker struct {
	camera     Camera
	detector   detector.Detector
	classifier *detector.TemplateClassifier
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.RWMutex
	hands         []detector.HandLandmarks
	detectedAt    time.Time
	seq           uint64 // bumped on every published detection
	polled        uint64 // seq handed out by the last Poll
	preview       []byte
	previewWanted time.Time
	lastErr       string

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker creates a Tracker. Camera and Detector are required.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		camera:     cfg.Camera,
		detector:   cfg.Detector,
		classifier: cfg.Classifier,
		staleAfter: cfg.StaleAfter,
		logger:     logging.Component(cfg.Logger, "tracker"),
		now:        cfg.Now,
	}
}

// Start opens the camera and begins the capture loop. The loop exits when
// ctx is cancelled or Close is called.
func (t *Tracker) Start(ctx context.Context) error {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.cancel != nil {
		return ErrTrackerRunning
	}

	if err := t.camera.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, t.done)

	t.logger.Info("tracker started", "fps", t.camera.FPS())
	return nil
}

// Close stops the capture loop, waits for it to exit and releases the
// camera and detector.
func (t *Tracker) Close() error {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.cancel != nil {
		t.cancel()
		<-t.done
		t.cancel = nil
		t.done = nil
	}

	var errs []error
	if err := t.camera.Close(); err != nil {
		errs = append(errs, err)
	}
	if t.detector != nil {
		if err := t.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	t.mu.Lock()
	t.hands = nil
	t.preview = nil
	t.mu.Unlock()

	t.logger.Info("tracker stopped")
	return errors.Join(errs...)
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	fps := t.camera.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.captureOnce()
		}
	}
}

// captureOnce reads one frame, runs detection and publishes the result.
func (t *Tracker) captureOnce() {
	frame, err := t.camera.ReadFrame()
	if err != nil {
		t.report("camera read failed", err)
		t.Publish(nil)
		return
	}
	defer frame.Close()

	t.encodePreview(frame)

	hands, err := t.detector.Detect(frame)
	if err != nil {
		t.report("detection failed", err)
		t.Publish(nil)
		return
	}
	t.report("", nil)

	t.Publish(hands)
}

// Publish records hands as the current detection. A nil slice clears it.
func (t *Tracker) Publish(hands []detector.HandLandmarks) {
	if t.classifier != nil {
		t.classifier.Annotate(hands)
	}

	t.mu.Lock()
	t.hands = hands
	t.detectedAt = t.now()
	t.seq++
	t.mu.Unlock()
}

// Poll returns the latest detection as a pipeline frame. It never blocks on
// the camera; a detection older than the stale window counts as none. A
// detection already returned by an earlier Poll comes back Held.
func (t *Tracker) Poll() pipeline.Frame {
	t.mu.Lock()
	hands, at := t.hands, t.detectedAt
	held := t.seq == t.polled
	t.polled = t.seq
	t.mu.Unlock()

	if len(hands) == 0 || t.now().Sub(at) > t.staleAfter {
		return pipeline.Frame{}
	}
	f := pipeline.FrameFromHands(hands)
	f.Held = held
	return f
}

// Preview returns the latest JPEG-encoded camera frame, if any. Calling it
// keeps preview encoding switched on for a short while.
func (t *Tracker) Preview() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.previewWanted = t.now()
	if t.preview == nil {
		return nil, false
	}
	return t.preview, true
}

func (t *Tracker) encodePreview(frame *gocv.Mat) {
	t.mu.RLock()
	wanted := !t.previewWanted.IsZero() && t.now().Sub(t.previewWanted) < previewWindow
	t.mu.RUnlock()
	if !wanted {
		return
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	t.mu.Lock()
	t.preview = data
	t.mu.Unlock()
}

// report logs capture failures only when the failure changes, and logs a
// single recovery line once frames flow again.
func (t *Tracker) report(msg string, err error) {
	t.mu.Lock()
	prev := t.lastErr
	if err == nil {
		t.lastErr = ""
	} else {
		t.lastErr = msg + ": " + err.Error()
	}
	current := t.lastErr
	t.mu.Unlock()

	switch {
	case current == prev:
	case err == nil:
		t.logger.Info("tracker recovered", "previous_error", prev)
	default:
		t.logger.Warn(msg, "error", err)
	}
}

var _ pipeline.FrameSource = (*Tracker)(nil)
