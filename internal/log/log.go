// Package log holds the process wide zerolog logger used by escmd.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. It discards everything until Init
// is called.
var Logger = zerolog.Nop()

// Config holds logging configuration.
type Config struct {
	Verbose    bool
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Output defaults to stderr, so that
// tables and JSON written to stdout stay machine readable.
func Init(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
		return
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

// WithComponent creates a child logger with component field.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRunID creates a child logger with run_id field.
func WithRunID(runID string) zerolog.Logger {
	return Logger.With().Str("run_id", runID).Logger()
}
