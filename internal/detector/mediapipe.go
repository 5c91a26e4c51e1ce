package detector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// serviceScript is the MediaPipe gesture recognizer service shipped next to
// the binary.
const serviceScript = "hand_service.py"

// idleShutdown is how long the subprocess may sit unused before it is
// stopped. It is restarted lazily on the next Detect.
const idleShutdown = 30 * time.Second

// MediaPipeDetector runs the MediaPipe gesture recognizer in a Python
// subprocess and exchanges one frame per request with it.
type MediaPipeDetector struct {
	config Config
	script string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the service script. The Python process is
// started on the first Detect.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := findFirst(scriptCandidates())
	if script == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}
	return &MediaPipeDetector{config: config, script: script}, nil
}

// Detect sends frame to the service and returns the hands it reports. A
// broken pipe or garbled response stops the subprocess so the next call
// starts a fresh one.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.start(); err != nil {
		return nil, err
	}

	if err := writeFrame(d.stdin, buf.GetBytes()); err != nil {
		_ = d.shutdown()
		return nil, err
	}
	hands, err := readHands(d.stdout)
	if err != nil {
		_ = d.shutdown()
		return nil, err
	}

	d.resetIdleTimer()
	return hands, nil
}

// Close stops the subprocess.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) args() []string {
	return []string{
		d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
		"--gesture-threshold", strconv.FormatFloat(d.config.GestureScoreThreshold, 'f', -1, 64),
	}
}

func (d *MediaPipeDetector) start() error {
	if d.cmd != nil {
		return nil
	}

	python := findFirst(venvCandidates())
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, d.args()...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.cmd == nil {
		return nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		_ = d.shutdown()
	})
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

func scriptCandidates() []string {
	return []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(executableDir(), "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".handhud", "scripts", serviceScript),
	}
}

func venvCandidates() []string {
	return []string{
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(executableDir(), "venv", "bin", "python"),
		filepath.Join(os.Getenv("HOME"), ".handhud", "venv", "bin", "python"),
	}
}

// findFirst returns the absolute form of the first existing path.
func findFirst(candidates []string) string {
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}
