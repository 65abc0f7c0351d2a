// Package logger configures charmbracelet/log for the stationcode binaries.
//
// Everything is written to stderr: stdout carries generated artifacts and the
// msgpack stream of the IPC server.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Setup configures the package-level logger. Debug mode lowers the level and
// adds timestamps.
func Setup(debug bool) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(debug)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetTimeFormat("15:04:05.000")
		return
	}
	log.SetLevel(log.InfoLevel)
}

// New creates a prefixed logger that follows the global log level.
func New(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, log.GetLevel() == log.DebugLevel, log.TextFormatter)
}

// NewWithConfig creates a charm logger with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
