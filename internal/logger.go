package internal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ServiceName is attached to every log record.
const ServiceName = "storefront"

// ParseLogLevel maps LOG_LEVEL onto a slog level. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// NewLogger builds the service logger. Production writes JSON with UTC
// timestamps and source locations so records can be traced back from the
// log pipeline; other environments write text.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	lvl, levelErr := ParseLogLevel(level)

	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       lvl,
			ReplaceAttr: utcTime,
		})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	logger := slog.New(h).With(slog.String("service", ServiceName), slog.String("env", env))
	if levelErr != nil {
		logger.Warn("using info level", "error", levelErr)
	}
	return logger
}

func utcTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return a
}
