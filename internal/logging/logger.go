// Package logging builds the service's zerolog loggers and carries them, with
// the request id, through context.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, encoding and destination of a logger.
type Config struct {
	// Level is a zerolog level name; unknown values fall back to info.
	Level string
	// Format is "json", "console" or "auto" (console on a terminal, json otherwise).
	Format string
	// Output defaults to os.Stderr.
	Output  io.Writer
	NoColor bool
	Fields  map[string]string
}

// DefaultConfig returns info-level auto-format logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "auto",
		Output:  os.Stderr,
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// New builds a logger from cfg. It does not touch zerolog's global level.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(cfg.Level)

	if useConsole(cfg.Format, out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
	}

	lc := zerolog.New(out).Level(level).With().Timestamp()
	if level <= zerolog.DebugLevel {
		lc = lc.Caller()
	}

	for k, v := range cfg.Fields {
		lc = lc.Str(k, v)
	}

	return lc.Logger()
}

// Nop returns a pointer to a disabled logger.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ParseLevel maps level names, including a few aliases, to zerolog levels.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}

	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return l
}

func useConsole(format string, out io.Writer) bool {
	switch strings.ToLower(format) {
	case "console", "pretty", "text":
		return true
	case "auto":
		f, ok := out.(*os.File)
		if !ok {
			return false
		}

		fi, err := f.Stat()

		return err == nil && fi.Mode()&os.ModeCharDevice != 0
	default:
		return false
	}
}
