// Package tray provides the system tray menu for the handhud daemon.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pipeline"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle  func(enabled bool)
	onOpenHUD func()
	onQuit    func()
	enabled   bool
	gesture   string
	mode      mode.Mode
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuGesture *systray.MenuItem
	menuMode    *systray.MenuItem
}

// New creates a new Tray showing the given tracking state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
		gesture: gesture.None,
		mode:    mode.Idle,
	}
}

// OnToggle sets the callback function to be called when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenHUD sets the callback for the "Open HUD" menu item.
func (t *Tray) OnOpenHUD(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenHUD = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called or the quit item is clicked.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("handhud")
	systray.SetTooltip("handhud hand tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand tracking")
	systray.AddSeparator()

	t.menuGesture = systray.AddMenuItem(gestureTitle(t.gesture), "Confirmed gesture")
	t.menuGesture.Disable()
	t.menuMode = systray.AddMenuItem(modeTitle(t.mode), "Effective mode")
	t.menuMode.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuHUD := systray.AddMenuItem("Open HUD...", "Open the HUD in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit handhud")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuHUD.ClickedCh:
				t.handleOpenHUD()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpenHUD() {
	t.mu.RLock()
	callback := t.onOpenHUD
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the gesture and mode lines. It reports whether
// anything changed.
func (t *Tray) SetStatus(g string, m mode.Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if g == t.gesture && m == t.mode {
		return false
	}
	t.gesture = g
	t.mode = m

	if t.menuGesture != nil {
		t.menuGesture.SetTitle(gestureTitle(g))
	}
	if t.menuMode != nil {
		t.menuMode.SetTitle(modeTitle(m))
	}
	return true
}

// Watch mirrors pipeline output into the menu until updates is closed.
func (t *Tray) Watch(updates <-chan pipeline.Output) {
	for out := range updates {
		t.SetStatus(out.Gesture, out.Mode)
	}
}

// IsEnabled returns the tracking state shown in the menu.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Tracking off"
}

func gestureTitle(g string) string {
	if g == "" {
		g = gesture.None
	}
	return "Gesture: " + g
}

func modeTitle(m mode.Mode) string {
	return "Mode: " + string(m)
}
