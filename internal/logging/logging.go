// Package logging provides structured logging with slog for cantotype.
//
// Front-ends draw the whole terminal, so the default output is a file
// rather than stderr; interleaving log lines with the UI would corrupt the
// display.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is re-exported so callers need not import log/slog for config.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format is the output encoding for log records.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum level to emit.
	Level Level

	// Format is the record encoding.
	Format Format

	// Output is "stdout", "stderr", or "file".
	Output string

	// FilePath is the log file path when Output is "file".
	FilePath string

	// Component is attached to every record.
	Component string

	// AddSource adds the source file and line to records.
	AddSource bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "file",
		FilePath:  defaultLogPath(),
		Component: "cantotype",
	}
}

func defaultLogPath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, _ := os.UserHomeDir()
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "cantotype", "cantotype.log")
}

// Logger wraps slog.Logger and owns the file handle, if any.
type Logger struct {
	*slog.Logger
	file *os.File
}

var (
	defaultLogger *Logger
	loggerOnce    sync.Once
)

// Default returns the global logger, creating it on first use. Creation
// failures fall back to stderr so logging never takes the process down.
func Default() *Logger {
	loggerOnce.Do(func() {
		l, err := New(DefaultConfig())
		if err != nil {
			l = &Logger{Logger: slog.Default()}
		}
		defaultLogger = l
	})
	return defaultLogger
}

// SetDefault installs l as the global logger for this package and slog.
func SetDefault(l *Logger) {
	defaultLogger = l
	loggerOnce.Do(func() {})
	slog.SetDefault(l.Logger)
}

// New creates a Logger from cfg. A nil cfg uses defaults.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Logger{}

	var w io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	case "file", "":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		w = f
	default:
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	if cfg.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("component", cfg.Component),
		})
	}

	l.Logger = slog.New(handler)
	return l, nil
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ParseLevel converts a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ParseFormat converts a config string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}
