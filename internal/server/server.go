// Package server provides the HTTP server for the holdsense hold detector.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/overlay"
	"github.com/ayusman/holdsense/internal/server/api"
	"github.com/ayusman/holdsense/internal/store"
)

// StatusSource provides the latest pipeline state to the live endpoints.
type StatusSource interface {
	Status() app.Status
	DetectionConfig() hold.Config
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Runtime   api.Runtime
	Overlay   overlay.Options
}

// Server represents the HTTP server for the holdsense application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	start   time.Time
	live    *LiveHandler
	closeOnce sync.Once
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	rt := s.config.Runtime

	if rt != nil {
		state := api.NewStateHandler(rt)
		s.mux.HandleFunc("/api/state", state.State)
		s.mux.HandleFunc("/api/debug", state.Debug)
		s.mux.HandleFunc("/api/config", state.Config)
		s.mux.HandleFunc("/api/calibrate", state.Calibrate)
		s.mux.HandleFunc("/api/enabled", state.Enabled)

		s.live = NewLiveHandler(rt)
		s.mux.Handle("/api/ws", s.live)

		stream := NewOverlayHandler(rt, overlay.NewRenderer(s.config.Overlay))
		s.mux.Handle("/api/overlay", stream)
		s.mux.HandleFunc("/api/overlay.jpg", stream.Snapshot)
	}

	if s.config.Store != nil {
		profiles := api.NewProfileHandler(s.config.Store, rt)
		s.mux.Handle("/api/profiles", profiles)
		s.mux.Handle("/api/profiles/", profiles)

		recordings := api.NewRecordingHandler(s.config.Store, rt)
		s.mux.Handle("/api/recordings", recordings)
		s.mux.Handle("/api/recordings/", recordings)
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

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Close stops the live state broadcaster.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.live != nil {
			s.live.Close()
		}
	})
}
