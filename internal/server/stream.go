package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/holdsense/internal/log"
	"github.com/ayusman/holdsense/internal/overlay"
)

// OverlayHandler serves the debug overlay as MJPEG frames.
type OverlayHandler struct {
	source   StatusSource
	renderer *overlay.Renderer
	interval time.Duration
}

// NewOverlayHandler creates a new OverlayHandler drawing with renderer.
func NewOverlayHandler(source StatusSource, renderer *overlay.Renderer) *OverlayHandler {
	return &OverlayHandler{source: source, renderer: renderer, interval: broadcastInterval}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := h.renderer.Encode(h.source.Status(), h.source.DetectionConfig())
		if err != nil {
			log.Warn("overlay frame failed", "err", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		w.Write(frame)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(h.interval)
	}
}

// Snapshot handles GET /api/overlay.jpg with a single frame.
func (h *OverlayHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame, err := h.renderer.Encode(h.source.Status(), h.source.DetectionConfig())
	if err != nil {
		http.Error(w, "Failed to render overlay", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(frame)
}
