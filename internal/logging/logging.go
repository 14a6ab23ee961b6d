// Package logging builds the run logger: human-readable lines on stderr and
// a daily log file that keeps every skip and its reason.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/card-statements/internal/model"
)

// New returns a logger writing to console and, when cfg.Dir is set, to
// <dir>/statements_YYYYMMDD.log. The returned closer releases the file.
func New(cfg model.LogConfig, console io.Writer, now time.Time) (*log.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = console
	var closer io.Closer = nopCloser{}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory %s: %w", cfg.Dir, err)
		}
		path := filepath.Join(cfg.Dir, FileName(now))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
		}
		w = io.MultiWriter(console, f)
		closer = f
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})

	return logger, closer, nil
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return "statements_" + t.Format("20060102") + ".log"
}

// ParseLevel maps a config level name to a log.Level. Empty means info.
func ParseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
