package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayusman/handhud/internal/mode"
)

func TestOverrideHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewOverrideHandler(s, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/overrides", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listOverridesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Overrides) != 2 {
		t.Fatalf("expected the 2 seeded overrides, got %d", len(response.Overrides))
	}
	if response.Overrides[1].Label != "Open_Palm" || response.Overrides[1].Mode != mode.Analyzing {
		t.Errorf("unexpected override: %+v", response.Overrides[1])
	}
}

func TestOverrideHandler_PutAndGet(t *testing.T) {
	s := newTestStore(t)
	reloads := 0
	handler := NewOverrideHandler(s, func() error { reloads++; return nil }, nil)

	body := bytes.NewBufferString(`{"mode": "speaking"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/overrides/Victory", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}
	if reloads != 1 {
		t.Errorf("onChange called %d times, want 1", reloads)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/overrides/Victory", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var got overrideResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Mode != mode.Speaking {
		t.Errorf("Mode = %q, want SPEAKING", got.Mode)
	}
	if _, err := time.Parse(time.RFC3339, got.UpdatedAt); err != nil {
		t.Errorf("updated_at %q is not RFC 3339: %v", got.UpdatedAt, err)
	}
}

func TestOverrideHandler_PutInvalid(t *testing.T) {
	s := newTestStore(t)
	handler := NewOverrideHandler(s, nil, nil)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "bad json", path: "/api/overrides/Victory", body: `{`},
		{name: "unknown mode", path: "/api/overrides/Victory", body: `{"mode": "DANCING"}`},
		{name: "none label", path: "/api/overrides/None", body: `{"mode": "IDLE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestOverrideHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewOverrideHandler(s, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/overrides/Closed_Fist", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/overrides/Closed_Fist", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestOverrideHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewOverrideHandler(s, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/overrides", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
