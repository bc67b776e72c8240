package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/hold"
)

// StateHandler serves the live detector state, configuration and calibration.
type StateHandler struct {
	runtime Runtime
}

// NewStateHandler creates a new StateHandler for rt.
func NewStateHandler(rt Runtime) *StateHandler {
	return &StateHandler{runtime: rt}
}

type presetResponse struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type configResponse struct {
	Detection     hold.Config          `json:"detection"`
	Controller    app.ControllerConfig `json:"controller"`
	ActiveProfile string               `json:"active_profile,omitempty"`
	Presets       []presetResponse     `json:"presets"`
}

// updateConfigRequest fields are optional. Detection and controller objects
// are merged onto the current values. Smoothing is a 0-1 knob that sets the
// smoothing factor. A preset is applied last.
type updateConfigRequest struct {
	Detection  json.RawMessage `json:"detection"`
	Controller json.RawMessage `json:"controller"`
	Smoothing  *float64        `json:"smoothing"`
	Preset     string          `json:"preset"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

// State handles GET /api/state.
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.runtime.Status())
}

// Debug handles GET /api/debug with a plain-text condition breakdown.
func (h *StateHandler) Debug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(h.runtime.Debug()))
}

// Config handles GET and PUT /api/config.
func (h *StateHandler) Config(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.configResponse())
	case http.MethodPut:
		h.updateConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StateHandler) configResponse() configResponse {
	presets := hold.Presets()
	resp := configResponse{
		Detection:     h.runtime.DetectionConfig(),
		Controller:    h.runtime.ControllerConfig(),
		ActiveProfile: h.runtime.ActiveProfile(),
		Presets:       make([]presetResponse, 0, len(presets)),
	}
	for _, p := range presets {
		resp.Presets = append(resp.Presets, presetResponse{Name: string(p), Label: p.Label()})
	}
	return resp
}

func (h *StateHandler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Every part is built and validated before any is applied.
	ctrl := h.runtime.ControllerConfig()
	if len(req.Controller) > 0 {
		if err := json.Unmarshal(req.Controller, &ctrl); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid controller config")
			return
		}
		if err := ctrl.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	cfg := h.runtime.DetectionConfig()
	detectionChanged := len(req.Detection) > 0 || req.Smoothing != nil || req.Preset != ""
	if len(req.Detection) > 0 {
		if err := json.Unmarshal(req.Detection, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid detection config")
			return
		}
	}
	if req.Smoothing != nil {
		cfg.SmoothingFactor = hold.SmoothingFactorFor(*req.Smoothing)
	}
	if req.Preset != "" {
		var err error
		if cfg, err = hold.Preset(req.Preset).Apply(cfg); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if detectionChanged {
		if err := cfg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if len(req.Controller) > 0 {
		if err := h.runtime.SetControllerConfig(ctrl); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if detectionChanged {
		if err := h.runtime.SetDetectionConfig(cfg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, h.configResponse())
}

// Calibrate handles POST /api/calibrate.
func (h *StateHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	offsets, err := h.runtime.Recalibrate()
	if err != nil {
		if errors.Is(err, app.ErrNotTracked) {
			writeError(w, http.StatusConflict, "No user tracked")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to calibrate")
		return
	}

	writeJSON(w, http.StatusOK, offsets)
}

// Enabled handles GET and PUT /api/enabled.
func (h *StateHandler) Enabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.runtime.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, enabledResponse{Enabled: h.runtime.IsEnabled()})
}
