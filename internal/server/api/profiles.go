package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/store"
)

// ProfileHandler handles HTTP requests for detection profiles.
type ProfileHandler struct {
	store   *store.Store
	runtime Runtime
}

// NewProfileHandler creates a new ProfileHandler. rt may be nil, in which
// case profiles cannot be applied.
func NewProfileHandler(s *store.Store, rt Runtime) *ProfileHandler {
	return &ProfileHandler{store: s, runtime: rt}
}

// ServeHTTP routes /api/profiles, /api/profiles/{id} and /api/profiles/{id}/apply.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
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

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
	case "apply":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.apply(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// profileRequest is used for create and update. A missing config means the
// current detection config on create and the stored config on update.
type profileRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type profileResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Config    hold.Config `json:"config"`
	Active    bool        `json:"active"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func (h *ProfileHandler) toResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Config:    p.Config,
		Active:    h.runtime != nil && h.runtime.ActiveProfile() == p.ID,
		CreatedAt: p.CreatedAt.Format(timeFormat),
		UpdatedAt: p.UpdatedAt.Format(timeFormat),
	}
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, h.toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(p))
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	cfg := hold.DefaultConfig()
	if h.runtime != nil {
		cfg = h.runtime.DetectionConfig()
	}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid config")
			return
		}
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &store.Profile{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Config: cfg,
	}

	if err := h.store.Profiles().Create(p); err != nil {
		writeStoreError(w, err, "profile")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(p))
}

// update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &p.Config); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid config")
			return
		}
	}
	if err := p.Config.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeStoreError(w, err, "profile")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(p))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		writeStoreError(w, err, "profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apply handles POST /api/profiles/{id}/apply.
func (h *ProfileHandler) apply(w http.ResponseWriter, r *http.Request, id string) {
	if h.runtime == nil {
		writeError(w, http.StatusServiceUnavailable, "Detector not running")
		return
	}

	if err := h.runtime.ApplyProfile(id); err != nil {
		writeStoreError(w, err, "profile")
		return
	}

	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(p))
}

// writeStoreError maps store sentinel errors to HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, strings.ToUpper(resource[:1])+resource[1:]+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, strings.ToUpper(resource[:1])+resource[1:]+" already exists")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to access "+resource)
	}
}
