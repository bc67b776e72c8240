// Package log provides structured logging for holdsense.
// It wraps zerolog with sensible defaults for production use.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	mu     sync.RWMutex
	inited bool
)

// ParseLevel maps "debug", "info", "warn", "error" (and "trace") to a zerolog level.
// Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger with the specified level.
func Init(level string) {
	var w io.Writer
	// Use JSON in production, console in development
	if os.Getenv("GO_ENV") == "production" {
		w = os.Stdout
	} else {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	}
	InitWithWriter(level, w)
}

// InitWithWriter initializes the global logger writing to w.
func InitWithWriter(level string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	inited = true
}

// L returns the global logger instance.
func L() *zerolog.Logger {
	mu.RLock()
	ok := inited
	mu.RUnlock()
	if !ok {
		Init("info")
	}

	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Debug logs at debug level with optional key-value pairs.
func Debug(msg string, keysAndValues ...any) {
	L().Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

// Info logs at info level with optional key-value pairs.
func Info(msg string, keysAndValues ...any) {
	L().Info().Fields(toFields(keysAndValues)).Msg(msg)
}

// Warn logs at warn level with optional key-value pairs.
func Warn(msg string, keysAndValues ...any) {
	L().Warn().Fields(toFields(keysAndValues)).Msg(msg)
}

// Error logs at error level with optional key-value pairs.
func Error(msg string, keysAndValues ...any) {
	L().Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// With returns a child logger carrying the given key-value pairs.
func With(keysAndValues ...any) zerolog.Logger {
	return L().With().Fields(toFields(keysAndValues)).Logger()
}

// toFields converts key-value pairs to a map for zerolog.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
