package server

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/handhud/internal/mode"
)

type modeRequest struct {
	Mode string `json:"mode"`
}

type trackingRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleState handles GET /api/state with the latest pipeline output.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Latest())
}

// handleMode handles GET and PUT /api/mode, the application mode set by
// the chat glue.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]mode.Mode{"mode": s.config.App.Mode()})
	case http.MethodPut:
		var req modeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		m, err := mode.Parse(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid mode")
			return
		}
		if err := s.config.App.SetMode(m); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]mode.Mode{"mode": m})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTracking handles GET and PUT /api/tracking.
func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.App.Tracking()})
	case http.MethodPut:
		var req trackingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Expected {\"enabled\": true|false}")
			return
		}
		s.config.App.SetTracking(*req.Enabled)
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
