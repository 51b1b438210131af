// Package logger builds the supervisor's own operational slog.Logger.
// It is unrelated to internal/logsink, which captures managed
// children's stdout/stderr into plain append-mode files; this package
// only ever writes the service's own diagnostic log.
package logger

import (
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config selects between the two run modes described in spec §9's
// service/console distinction: Console mode writes colorized text to
// stdout for a foreground run; service mode writes rotated JSON lines
// to FilePath.
type Config struct {
	Console    bool
	FilePath   string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds the logger for cfg. Console mode ignores the rotation
// fields entirely; there is nothing to rotate on a terminal.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Console {
		return slog.New(NewColorTextHandler(os.Stdout, opts, true))
	}
	w := &lj.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   cfg.Compress,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
