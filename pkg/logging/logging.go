// Package logging builds the process logger. Output goes to stderr or to a
// rotating file, never to stdout, which carries the MCP stdio stream.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and destination.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	File       string // empty = stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger is a slog.Logger plus the rotating file behind it, if any.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// ParseLevel accepts the slog level names, case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// New builds a Logger. stderr is used when opts.File is empty.
func New(opts Options, stderr io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	out := stderr
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = l.file
	}

	ho := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		l.Logger = slog.New(slog.NewTextHandler(out, ho))
	case "json":
		l.Logger = slog.New(slog.NewJSONHandler(out, ho))
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return l, nil
}

// Rotate starts a new log file. It is a no-op when logging to stderr.
func (l *Logger) Rotate() error {
	if l.file == nil {
		return nil
	}
	return l.file.Rotate()
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
