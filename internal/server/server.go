// Package server provides the HTTP and WebSocket surface of the handhud
// daemon.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/handhud/internal/app"
	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/logging"
	"github.com/ayusman/handhud/internal/server/api"
	"github.com/ayusman/handhud/internal/store"
)

// shutdownTimeout bounds how long Run waits for open requests on exit.
const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	Logger    *slog.Logger
}

// Server represents the HTTP server for the HUD.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logging.Component(config.Logger, "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.HandleFunc("/api/mode", s.handleMode)
		s.mux.HandleFunc("/api/tracking", s.handleTracking)
		s.mux.Handle("/api/ws", NewHUDHandler(a, s.config.Logger))
		s.mux.Handle("/api/stream", NewStreamHandler(a))
	}

	if s.config.Store != nil {
		var reloadOverrides, reloadTemplates func() error
		var capture func() ([]detector.Point3D, bool)
		if a := s.config.App; a != nil {
			reloadOverrides = a.ReloadOverrides
			reloadTemplates = a.ReloadTemplates
			capture = a.Hand
		}

		overrides := api.NewOverrideHandler(s.config.Store, reloadOverrides, s.config.Logger)
		s.mux.Handle("/api/overrides", overrides)
		s.mux.Handle("/api/overrides/", overrides)

		templates := api.NewTemplateHandler(api.TemplateConfig{
			Store:    s.config.Store,
			Capture:  capture,
			OnChange: reloadTemplates,
			Logger:   s.config.Logger,
		})
		s.mux.Handle("/api/templates", templates)
		s.mux.Handle("/api/templates/", templates)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
