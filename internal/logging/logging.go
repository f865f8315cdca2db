// Package logging builds the loggers used across packsmith.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"packsmith/internal/config"
)

// New creates a logger writing to w, configured per cfg. The "auto" format
// picks the styled text formatter when w is a terminal and logfmt
// otherwise, so piped output stays parseable.
func New(w io.Writer, cfg config.LoggingConfig) *log.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Formatter:       formatterFor(w, cfg.Format),
	})
}

func formatterFor(w io.Writer, format string) log.Formatter {
	switch format {
	case "text":
		return log.TextFormatter
	case "logfmt":
		return log.LogfmtFormatter
	case "json":
		return log.JSONFormatter
	default:
		if isTerminal(w) {
			return log.TextFormatter
		}
		return log.LogfmtFormatter
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
