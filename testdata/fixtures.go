// Package testdata provides recorded skeleton sessions for tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/holdsense/internal/detector"
)

//go:embed sessions/*.json
var sessionsFS embed.FS

// Session names.
const (
	// HoldAndLeave: 5 empty frames, 30 frames holding while drifting right, 10 empty frames.
	HoldAndLeave = "hold_and_leave"
	// OneHandDropout: 10 frames holding, 10 with the right hand lost, 10 holding.
	OneHandDropout = "one_hand_dropout"
)

// LoadSession loads a recorded session by name.
func LoadSession(name string) ([]detector.Body, error) {
	data, err := sessionsFS.ReadFile("sessions/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}

	bodies, err := detector.ReadBodies(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", name, err)
	}
	return bodies, nil
}

// Sessions lists the names of all recorded sessions.
func Sessions() ([]string, error) {
	entries, err := sessionsFS.ReadDir("sessions")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	return names, nil
}
