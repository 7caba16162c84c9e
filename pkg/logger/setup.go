package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseLevel maps a textual level (as found in configuration) to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch lvl := LogLevel(strings.ToLower(strings.TrimSpace(s))); lvl {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, DisabledLevel:
		return lvl, nil
	case NoLevel:
		return DisabledLevel, nil
	default:
		return NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// SetupLogger builds a logger from configuration values. A nil output writes
// to stderr so results written to stdout stay clean.
func SetupLogger(level string, json, source bool, out io.Writer) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	return NewLogger(&Config{
		Level:      lvl,
		Output:     out,
		JSON:       json,
		AddSource:  source,
		TimeFormat: "15:04:05",
	}), nil
}
