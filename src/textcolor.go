package soti

// Leveled, colored console output.  Every pipeline gets its logger passed
// in; nothing here is global.

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Same as the "%T" the ground station has always printed.
const logTimeFormat = "15:04:05"

var logFormats = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// NewLogger builds a logger writing to w.  level is debug, info, warn or
// error; format is text, json or logfmt (empty means text).
func NewLogger(w io.Writer, level string, format string, prefix string) (*log.Logger, error) {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	var formatter, ok = logFormats[strings.ToLower(IfThenElse(format == "", "text", format))]
	if !ok {
		return nil, fmt.Errorf("log format %q: must be text, json or logfmt", format)
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           lvl,
		Prefix:          prefix,
		Formatter:       formatter,
	}), nil
}

// Used by tests and anything that must not make noise.
func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
