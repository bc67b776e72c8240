// Package api provides HTTP API handlers for the holdsense hold detector.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/store"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// Runtime is the live pipeline controlled by the handlers.
type Runtime interface {
	Status() app.Status
	Debug() string
	DetectionConfig() hold.Config
	SetDetectionConfig(cfg hold.Config) error
	ControllerConfig() app.ControllerConfig
	SetControllerConfig(cfg app.ControllerConfig) error
	Recalibrate() (app.Offsets, error)
	ApplyProfile(id string) error
	ActiveProfile() string
	SetEnabled(enabled bool)
	IsEnabled() bool
	StartRecording(name string) (string, error)
	StopRecording() (*store.Recording, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
