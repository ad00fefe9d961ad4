// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/canvas-gateway/internal/pkg/redact"
)

// Format values accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger writing to w.  Every line passes through a redacting
// writer so no token-shaped value reaches the output.
func New(w io.Writer, level, format string) zerolog.Logger {
	out := io.Writer(redact.NewWriter(w))
	if strings.EqualFold(format, FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Init replaces the global logger with one built by New on stdout.
func Init(level, format string) {
	log.Logger = New(os.Stdout, level, format)
}
