package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/logging"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/store"
)

// OverrideHandler handles HTTP requests for the gesture override table.
type OverrideHandler struct {
	store    *store.Store
	onChange func() error
	logger   *slog.Logger
}

// NewOverrideHandler creates an OverrideHandler. onChange is called after
// every successful mutation so the live table can be reloaded.
func NewOverrideHandler(s *store.Store, onChange func() error, logger *slog.Logger) *OverrideHandler {
	return &OverrideHandler{store: s, onChange: onChange, logger: logging.Component(logger, "api")}
}

// ServeHTTP routes /api/overrides and /api/overrides/{label}.
func (h *OverrideHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	label := itemPath(r, "/api/overrides")

	if label == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, label)
	case http.MethodPut:
		h.put(w, r, label)
	case http.MethodDelete:
		h.delete(w, r, label)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type putOverrideRequest struct {
	Mode string `json:"mode"`
}

type overrideResponse struct {
	Label     string    `json:"label"`
	Mode      mode.Mode `json:"mode"`
	UpdatedAt string    `json:"updated_at"`
}

type listOverridesResponse struct {
	Overrides []overrideResponse `json:"overrides"`
}

func toOverrideResponse(o *store.Override) overrideResponse {
	return overrideResponse{
		Label:     o.Label,
		Mode:      o.Mode,
		UpdatedAt: o.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *OverrideHandler) list(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.store.Overrides().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overrides")
		return
	}

	response := listOverridesResponse{
		Overrides: make([]overrideResponse, 0, len(overrides)),
	}
	for _, o := range overrides {
		response.Overrides = append(response.Overrides, toOverrideResponse(o))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *OverrideHandler) get(w http.ResponseWriter, r *http.Request, label string) {
	o, err := h.store.Overrides().Get(label)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Override not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get override")
		return
	}

	writeJSON(w, http.StatusOK, toOverrideResponse(o))
}

// put handles PUT /api/overrides/{label} and creates or replaces the override.
func (h *OverrideHandler) put(w http.ResponseWriter, r *http.Request, label string) {
	if label == gesture.None {
		writeError(w, http.StatusBadRequest, "The None gesture cannot be overridden")
		return
	}

	var req putOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	m, err := mode.Parse(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode")
		return
	}

	o := &store.Override{Label: label, Mode: m}
	if err := h.store.Overrides().Put(o); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override")
		return
	}
	h.changed()

	writeJSON(w, http.StatusOK, toOverrideResponse(o))
}

func (h *OverrideHandler) delete(w http.ResponseWriter, r *http.Request, label string) {
	if err := h.store.Overrides().Delete(label); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Override not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete override")
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

func (h *OverrideHandler) changed() {
	if err := notify(h.onChange); err != nil {
		h.logger.Warn("reload overrides failed", "error", err)
	}
}
