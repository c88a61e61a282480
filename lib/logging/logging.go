// Package logging builds the run logger: a leveled console sink on stderr and
// a rotating debug file under the log directory.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.Level(12)

const (
	FileName   = "pixelsort.log"
	maxBytes   = 100000
	maxBackups = 3
)

type Config struct {
	Level  string
	Silent bool
	NoLog  bool
	// Dir holds the rotating log file; empty means "logs".
	Dir string
	// Console overrides stderr.
	Console io.Writer
}

var levels = map[string]slog.Level{
	"DEBUG":    slog.LevelDebug,
	"INFO":     slog.LevelInfo,
	"WARNING":  slog.LevelWarn,
	"ERROR":    slog.LevelError,
	"CRITICAL": LevelCritical,
}

func ParseLevel(name string) (slog.Level, error) {
	l, ok := levels[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return l, nil
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	switch l := a.Value.Any().(slog.Level); {
	case l >= LevelCritical:
		a.Value = slog.StringValue("CRITICAL")
	case l >= slog.LevelError:
		a.Value = slog.StringValue("ERROR")
	case l >= slog.LevelWarn:
		a.Value = slog.StringValue("WARNING")
	}
	return a
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup returns the logger and a closer for its file sink.
func Setup(cfg Config) (*slog.Logger, io.Closer, error) {
	if cfg.NoLog {
		return slog.New(slog.DiscardHandler), nopCloser{}, nil
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("error creating log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    1, // MB; cappedWriter enforces maxBytes
		MaxBackups: maxBackups,
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(newCappedWriter(file, maxBytes), &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceLevel,
		}),
	}

	if !cfg.Silent {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevel,
		}))
	}
	return slog.New(fanout(handlers)), file, nil
}

// cappedWriter forces a rotation once the file grows past limit bytes.
type cappedWriter struct {
	l       *lumberjack.Logger
	limit   int64
	written int64
}

func newCappedWriter(l *lumberjack.Logger, limit int64) *cappedWriter {
	w := &cappedWriter{l: l, limit: limit}
	if fi, err := os.Stat(l.Filename); err == nil {
		w.written = fi.Size()
	}
	return w
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	if w.written > 0 && w.written+int64(len(p)) > w.limit {
		if err := w.l.Rotate(); err != nil {
			return 0, err
		}
		w.written = 0
	}
	n, err := w.l.Write(p)
	w.written += int64(n)
	return n, err
}

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
