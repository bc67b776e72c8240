package detector

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// ReplaySource plays back pre-recorded bodies, one per poll.
type ReplaySource struct {
	frames []Body
	index  int
	loop   bool
	closed bool
	mu     sync.Mutex
}

// NewReplaySource creates a ReplaySource over frames.
func NewReplaySource(frames []Body, loop bool) *ReplaySource {
	return &ReplaySource{
		frames: frames,
		loop:   loop,
	}
}

// Poll returns the next recorded body. Once a non-looping replay is
// exhausted it reports no user.
func (s *ReplaySource) Poll() (Body, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Body{}, ErrSourceClosed
	}

	if len(s.frames) == 0 {
		return Body{}, fmt.Errorf("no frames available")
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return NoBody(), nil
		}
		s.index = 0
	}

	body := s.frames[s.index]
	s.index++

	return body, nil
}

// Close stops playback.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetFrames replaces the frame sequence.
func (s *ReplaySource) SetFrames(frames []Body) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// Reset restarts playback from the beginning.
func (s *ReplaySource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

// Remaining returns the number of frames left before the end of the sequence.
func (s *ReplaySource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.index
}

// ReadBodies decodes a JSON array of bodies, one per frame.
func ReadBodies(r io.Reader) ([]Body, error) {
	var bodies []Body
	if err := json.NewDecoder(r).Decode(&bodies); err != nil {
		return nil, fmt.Errorf("decode bodies: %w", err)
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("no frames available")
	}
	return bodies, nil
}
