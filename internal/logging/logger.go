// Package logging configures the zerolog logger shared by shipit packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is FormatConsole or FormatJSON.
	Format string

	// Output defaults to stderr so command output on stdout stays clean.
	Output io.Writer

	EnableCaller bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
		Output: os.Stderr,
	}
}

// Validate rejects unknown levels and formats.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", FormatConsole, FormatJSON:
		return nil
	}
	return fmt.Errorf("unknown log format %q (valid values: console, json)", c.Format)
}

// Init replaces the global logger. Unknown levels fall back to info.
func Init(cfg Config) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Format != FormatJSON {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    !isTerminal(output),
		}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	Logger = ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level. "warning" is accepted
// for warn and the empty string means info.
func ParseLevel(level string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Warn starts a warning on the global logger.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Component creates a logger with a component field.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Deploy is the logger of deploy tasks for one environment.
func Deploy(environment string) zerolog.Logger {
	return Logger.With().Str("component", "deploy").Str("environment", environment).Logger()
}

func init() {
	Init(DefaultConfig())
}
