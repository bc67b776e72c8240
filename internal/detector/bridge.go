package detector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// BridgeSource implements Source using an external skeleton bridge process.
//
// The bridge wraps the vendor SDK of the depth sensor. For every poll it is
// sent a single newline on stdin and must answer with one JSON-encoded Body
// per line on stdout. A body with user_id 0 means nobody is tracked.
type BridgeSource struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	closed    bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewBridgeSource creates a new bridge source.
// The bridge process is started lazily on first poll.
func NewBridgeSource(config Config) (*BridgeSource, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("bridge command not configured")
	}
	if _, err := exec.LookPath(config.Command); err != nil {
		return nil, fmt.Errorf("bridge command %q: %w", config.Command, err)
	}

	return &BridgeSource{
		config: config,
	}, nil
}

// Poll requests one body from the bridge.
func (s *BridgeSource) Poll() (Body, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Body{}, ErrSourceClosed
	}

	if err := s.ensureStarted(); err != nil {
		return Body{}, err
	}

	if _, err := s.stdin.Write([]byte("\n")); err != nil {
		s.shutdown()
		return Body{}, fmt.Errorf("write poll request: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		s.shutdown()
		return Body{}, fmt.Errorf("read body: %w", err)
	}

	var body Body
	if err := json.Unmarshal(line, &body); err != nil {
		return Body{}, fmt.Errorf("parse body: %w", err)
	}

	s.lastUsed = time.Now()
	s.resetIdleTimer()

	return body, nil
}

// Close shuts down the bridge process.
func (s *BridgeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.shutdown()
}

func (s *BridgeSource) ensureStarted() error {
	if s.started {
		return nil
	}

	s.cmd = exec.Command(s.config.Command, s.config.Args...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start skeleton bridge: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	s.lastUsed = time.Now()

	return nil
}

func (s *BridgeSource) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *BridgeSource) resetIdleTimer() {
	if s.config.IdleTimeout <= 0 {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.config.IdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}
