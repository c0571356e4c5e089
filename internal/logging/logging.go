// Package logging builds the zerolog loggers used across the bot and adapts
// them for whatsmeow.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Config struct {
	Level   string
	Format  string
	Output  io.Writer
	NoColor bool
}

// New returns a root logger. Unknown levels fall back to info, unknown
// formats to console.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(cfg.Format) == FormatJSON {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.TimeOnly,
	}).Level(level).With().Timestamp().Logger()
}

// Component tags log with the emitting component.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// WhatsApp adapts log for a whatsmeow module ("Client", "Database").
func WhatsApp(log zerolog.Logger, module string) waLog.Logger {
	return waLog.Zerolog(log.With().Str("component", "whatsmeow").Str("module", module).Logger())
}
