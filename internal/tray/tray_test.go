package tray

import (
	"testing"

	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pipeline"
)

func TestSetStatus(t *testing.T) {
	tr := New(true)

	if tr.SetStatus(gesture.None, mode.Idle) {
		t.Error("initial status should be unchanged")
	}
	if !tr.SetStatus("Open_Palm", mode.Analyzing) {
		t.Error("new gesture should report a change")
	}
	if tr.SetStatus("Open_Palm", mode.Analyzing) {
		t.Error("repeated status should not report a change")
	}
}

func TestWatch(t *testing.T) {
	tr := New(false)
	updates := make(chan pipeline.Output, 2)
	updates <- pipeline.Output{Gesture: "Closed_Fist", Mode: mode.Idle}
	updates <- pipeline.Output{Gesture: "Open_Palm", Mode: mode.Analyzing}
	close(updates)

	tr.Watch(updates)

	if tr.SetStatus("Open_Palm", mode.Analyzing) {
		t.Error("Watch should have applied the last output")
	}
}

func TestHandleToggleWithoutMenu(t *testing.T) {
	tr := New(true)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("IsEnabled() should be true after two toggles")
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{toggleTitle(true), "● Tracking"},
		{toggleTitle(false), "○ Tracking off"},
		{gestureTitle(""), "Gesture: None"},
		{gestureTitle("Victory"), "Gesture: Victory"},
		{modeTitle(mode.Speaking), "Mode: SPEAKING"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("title = %q, want %q", tt.got, tt.want)
		}
	}
}
