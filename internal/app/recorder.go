package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/holdsense/internal/detector"
	"github.com/ayusman/holdsense/internal/log"
	"github.com/ayusman/holdsense/internal/store"
)

// MaxRecordingFrames caps a single recording; later frames are dropped.
const MaxRecordingFrames = 30 * 60 * 10

type recorder struct {
	id      string
	name    string
	started time.Time
	frames  []store.Frame
	dropped int
}

func (r *recorder) add(now time.Time, body detector.Body) {
	if r.started.IsZero() {
		r.started = now
	}
	if len(r.frames) >= MaxRecordingFrames {
		r.dropped++
		return
	}
	r.frames = append(r.frames, store.Frame{
		OffsetMs: now.Sub(r.started).Milliseconds(),
		Body:     body,
	})
}

// StartRecording begins capturing every polled body. It returns the new
// recording ID.
func (a *App) StartRecording(name string) (string, error) {
	if a.config.Store == nil {
		return "", ErrNoStore
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recorder != nil {
		return "", ErrRecordingActive
	}

	if name == "" {
		name = "recording " + time.Now().Format("2006-01-02 15:04:05")
	}
	a.recorder = &recorder{id: uuid.New().String(), name: name}
	a.status.Recording = true

	log.Info("recording started", "id", a.recorder.id, "name", name)
	return a.recorder.id, nil
}

// StopRecording ends the active recording and saves it.
func (a *App) StopRecording() (*store.Recording, error) {
	a.mu.Lock()
	rec := a.recorder
	a.recorder = nil
	a.status.Recording = false
	a.mu.Unlock()

	if rec == nil {
		return nil, ErrNotRecording
	}

	saved := &store.Recording{ID: rec.id, Name: rec.name, CreatedAt: rec.started}
	if err := a.config.Store.Recordings().Create(saved, rec.frames); err != nil {
		return nil, err
	}

	if rec.dropped > 0 {
		log.Warn("recording truncated", "id", rec.id, "dropped", rec.dropped)
	}
	log.Info("recording saved", "id", rec.id, "frames", saved.Frames)
	return saved, nil
}

// IsRecording reports whether a recording is in progress.
func (a *App) IsRecording() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recorder != nil
}
