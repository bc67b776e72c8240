package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/store"
)

// RecordingHandler handles HTTP requests for skeleton recordings.
type RecordingHandler struct {
	store   *store.Store
	runtime Runtime
}

// NewRecordingHandler creates a new RecordingHandler. rt may be nil, in
// which case recordings can be browsed but not captured.
func NewRecordingHandler(s *store.Store, rt Runtime) *RecordingHandler {
	return &RecordingHandler{store: s, runtime: rt}
}

// ServeHTTP routes /api/recordings, /api/recordings/start, /api/recordings/stop,
// /api/recordings/{id} and /api/recordings/{id}/chart.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	case "start", "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.runtime == nil {
			writeError(w, http.StatusServiceUnavailable, "Detector not running")
			return
		}
		if path == "start" {
			h.start(w, r)
		} else {
			h.stop(w, r)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
	case "chart":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.chart(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
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

type startRecordingRequest struct {
	Name string `json:"name"`
}

type startRecordingResponse struct {
	ID string `json:"id"`
}

type recordingResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Frames    int             `json:"frames"`
	CreatedAt string          `json:"created_at"`
	Data      []frameResponse `json:"data,omitempty"`
}

type frameResponse struct {
	Sequence int         `json:"sequence"`
	OffsetMs int64       `json:"offset_ms"`
	Body     interface{} `json:"body"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Frames:    rec.Frames,
		CreatedAt: rec.CreatedAt.Format(timeFormat),
	}
}

// list handles GET /api/recordings.
func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recs)),
	}
	for _, rec := range recs {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/recordings/{id}. Frames are included with ?frames=true.
func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "recording")
		return
	}

	response := toRecordingResponse(rec)
	if r.URL.Query().Get("frames") == "true" {
		frames, err := h.store.Recordings().Frames(id)
		if err != nil {
			writeStoreError(w, err, "recording")
			return
		}
		response.Data = make([]frameResponse, 0, len(frames))
		for _, f := range frames {
			response.Data = append(response.Data, frameResponse{Sequence: f.Sequence, OffsetMs: f.OffsetMs, Body: f.Body})
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/recordings/{id}.
func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		writeStoreError(w, err, "recording")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// start handles POST /api/recordings/start. The body is optional.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id, err := h.runtime.StartRecording(req.Name)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRecordingActive):
			writeError(w, http.StatusConflict, "Recording already in progress")
		case errors.Is(err, app.ErrNoStore):
			writeError(w, http.StatusServiceUnavailable, "Recording needs a store")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start recording")
		}
		return
	}

	writeJSON(w, http.StatusCreated, startRecordingResponse{ID: id})
}

// stop handles POST /api/recordings/stop.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	rec, err := h.runtime.StopRecording()
	if err != nil {
		if errors.Is(err, app.ErrNotRecording) {
			writeError(w, http.StatusConflict, "No recording in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save recording")
		return
	}

	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}
