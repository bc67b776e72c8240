package detector

import (
	"errors"
	"time"
)

// ErrSourceClosed is returned when polling a source that has been closed.
var ErrSourceClosed = errors.New("source is closed")

// Source defines the interface for skeletal tracking implementations.
type Source interface {
	// Poll returns the primary tracked body for the current tick.
	// A body with UserID == NoUser means nobody is tracked; that is not an error.
	Poll() (Body, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for tracking sources.
type Config struct {
	// Command is the skeleton bridge executable for BridgeSource.
	Command string

	// Args are passed to Command.
	Args []string

	// IdleTimeout shuts down the bridge process after this long without a poll.
	IdleTimeout time.Duration

	// Loop restarts a ReplaySource from the first frame when it runs out.
	Loop bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		IdleTimeout: 30 * time.Second,
		Loop:        true,
	}
}
