// Package logger provides a configured zerolog logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger tagged with the service name, writing JSON
// to stdout. Set RECALL_LOG_PRETTY=1 for human-readable console output.
func New(serviceName string) zerolog.Logger {
	w := zerolog.New(os.Stdout)
	if os.Getenv("RECALL_LOG_PRETTY") == "1" {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return w.With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
