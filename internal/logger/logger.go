// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Unknown levels fall back to info.
func Init(level, format string) {
	log.Logger = New(os.Stderr, level, format)
	zerolog.SetGlobalLevel(log.Logger.GetLevel())
}

// New builds a logger writing to out. "json" gives structured output, anything
// else the human-readable console writer.
func New(out io.Writer, level, format string) zerolog.Logger {
	var w io.Writer = out
	if strings.ToLower(format) != "json" {
		// Use ConsoleWriter for human-readable, colorized output in development
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	// Add a hook to include the caller's file and line number
	return zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger()
}
