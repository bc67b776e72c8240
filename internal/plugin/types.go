// Package plugin runs external executables in response to hold events.
package plugin

import (
	"encoding/json"
	"time"

	"github.com/ayusman/holdsense/internal/detector"
)

// Hold events a plugin can subscribe to.
const (
	EventHoldAcquired = "hold.acquired"
	EventHoldReleased = "hold.released"
	EventCalibrated   = "calibrated"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the manifest subscribes to event.
func (m Manifest) Handles(event string) bool {
	for _, e := range m.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// Request is sent to a plugin on stdin.
type Request struct {
	Event        string           `json:"event"`
	Center       detector.Point3D `json:"center"`
	HandDistance float64          `json:"handDistance"`
	Timestamp    time.Time        `json:"timestamp"`
	Config       json.RawMessage  `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
