// Package logging builds the service's slog logger. Output goes to stdout
// and, when a directory is configured, to a per-day log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const dateLayout = "02_01_2006"

// Options holds configuration for the logger.
type Options struct {
	Level  slog.Level
	JSON   bool
	Dir    string
	Name   string
	Stdout io.Writer
	Now    func() time.Time
}

// Option configures Options.
type Option func(*Options)

// WithLevel sets the log level (e.g. "debug"). Unknown levels fall back to info.
func WithLevel(level string) Option {
	return func(o *Options) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			l = slog.LevelInfo
		}
		o.Level = l
	}
}

// WithJSON switches between JSON and text output.
func WithJSON(json bool) Option {
	return func(o *Options) {
		o.JSON = json
	}
}

// WithDir sets the directory for log files. Empty disables file output.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithName sets the log file name prefix.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithStdout replaces the console writer.
func WithStdout(w io.Writer) Option {
	return func(o *Options) {
		o.Stdout = w
	}
}

// New creates the logger. The returned closer releases the log file.
func New(opts ...Option) (*slog.Logger, io.Closer, error) {
	o := &Options{
		Level:  slog.LevelInfo,
		JSON:   true,
		Name:   "service",
		Stdout: os.Stdout,
		Now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	var (
		w      = o.Stdout
		closer io.Closer = nopCloser{}
	)
	if o.Dir != "" {
		f, err := openDaily(o.Dir, o.Name, o.Now())
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(o.Stdout, f)
		closer = f
	}

	handlerOpts := &slog.HandlerOptions{Level: o.Level}
	var h slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if o.JSON {
		h = slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.New(h), closer, nil
}

// FilePath returns the log file used for the given day.
func FilePath(dir, name string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, day.Format(dateLayout)))
}

func openDaily(dir, name string, day time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(FilePath(dir, name, day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Err is the attribute used for errors.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
