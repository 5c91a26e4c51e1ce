package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/logging"
	"github.com/ayusman/handhud/internal/store"
)

// TemplateHandler handles HTTP requests for landmark templates.
type TemplateHandler struct {
	store    *store.Store
	capture  func() ([]detector.Point3D, bool)
	onChange func() error
	logger   *slog.Logger
}

// TemplateConfig holds the TemplateHandler's collaborators.
type TemplateConfig struct {
	Store *store.Store
	// Capture returns the currently tracked hand, used when a create
	// request carries no landmarks.
	Capture  func() ([]detector.Point3D, bool)
	OnChange func() error
	Logger   *slog.Logger
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(cfg TemplateConfig) *TemplateHandler {
	return &TemplateHandler{
		store:    cfg.Store,
		capture:  cfg.Capture,
		onChange: cfg.OnChange,
		logger:   logging.Component(cfg.Logger, "api"),
	}
}

// ServeHTTP routes /api/templates and /api/templates/{id}.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := itemPath(r, "/api/templates")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createTemplateRequest struct {
	Label     string             `json:"label"`
	Tolerance float64            `json:"tolerance"`
	Landmarks []detector.Point3D `json:"landmarks"`
}

type templateResponse struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Tolerance float64            `json:"tolerance"`
	Landmarks []detector.Point3D `json:"landmarks,omitempty"`
	CreatedAt string             `json:"created_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

func toTemplateResponse(t *store.Template, withLandmarks bool) templateResponse {
	resp := templateResponse{
		ID:        t.ID,
		Label:     t.Label,
		Tolerance: t.Tolerance,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if withLandmarks {
		resp.Landmarks = t.Landmarks
	}
	return resp
}

func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
	}
	for _, t := range templates {
		response.Templates = append(response.Templates, toTemplateResponse(t, false))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(t, true))
}

// create handles POST /api/templates. Without landmarks in the body the
// currently tracked hand is recorded.
func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	landmarks := req.Landmarks
	if len(landmarks) == 0 {
		var ok bool
		if h.capture != nil {
			landmarks, ok = h.capture()
		}
		if !ok {
			writeError(w, http.StatusConflict, "No hand is being tracked")
			return
		}
	}
	if len(landmarks) != detector.NumLandmarks {
		writeError(w, http.StatusBadRequest, "Exactly 21 landmarks are required")
		return
	}

	t := &store.Template{
		ID:        uuid.New().String(),
		Label:     req.Label,
		Tolerance: req.Tolerance,
		Landmarks: landmarks,
	}
	if err := h.store.Templates().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toTemplateResponse(t, true))
}

func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Templates().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandler) changed() {
	if err := notify(h.onChange); err != nil {
		h.logger.Warn("reload templates failed", "error", err)
	}
}
