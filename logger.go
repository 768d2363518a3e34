package kurir

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DebugConfig selects which lifecycle events are logged at debug level.
type DebugConfig struct {
	Enabled         bool
	LogRequests     bool
	LogRetries      bool
	LogCancellation bool
	LogErrors       bool
	RequestIDGen    func() string
}

// DefaultDebugConfig logs every event kind once Enabled is set. Request IDs
// are random UUIDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:         false,
		LogRequests:     true,
		LogRetries:      true,
		LogCancellation: true,
		LogErrors:       true,
		RequestIDGen:    uuid.NewString,
	}
}

// NewConsoleLogger returns a human-readable zerolog logger writing to w, or
// to stderr when w is nil.
func NewConsoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Str("component", "kurir").Logger()
}

func (c *Client) debugEnabled(flag func(*DebugConfig) bool) bool {
	return c.debug != nil && c.debug.Enabled && flag(c.debug)
}

func logsRequests(d *DebugConfig) bool     { return d.LogRequests }
func logsRetries(d *DebugConfig) bool      { return d.LogRetries }
func logsCancellation(d *DebugConfig) bool { return d.LogCancellation }
func logsErrors(d *DebugConfig) bool       { return d.LogErrors }

func (c *Client) newRequestID() string {
	if c.debug == nil || !c.debug.Enabled || c.debug.RequestIDGen == nil {
		return ""
	}
	return c.debug.RequestIDGen()
}
