// Package logger provides logging support for mdns-repeater using log/slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"strings"
)

// multiHandler fans out log records to multiple slog.Handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Options selects the log sinks and the minimum level.
type Options struct {
	Foreground bool   // also log to stdout
	Logfile    string // append to this file when set
	Level      slog.Level
	NoSyslog   bool
}

// monitor is shared between a Logger and everything derived from it via With.
type monitor struct {
	slog *slog.Logger
	file *os.File
}

// Logger wraps slog.Logger with level methods taking slog key/value pairs.
type Logger struct {
	slog    *slog.Logger
	monitor *monitor
	logfile *os.File
}

// ParseLevel maps debug, info, warn/warning and error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New creates a new Logger backed by slog.
func New(opts Options) (*Logger, error) {
	var handlers []slog.Handler

	if !opts.NoSyslog {
		sw, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "mdns-repeater")
		if err == nil {
			handlers = append(handlers, slog.NewTextHandler(syslogWriter{sw}, &slog.HandlerOptions{
				Level: opts.Level,
				// Strip timestamp, syslog adds its own.
				ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey && len(groups) == 0 {
						return slog.Attr{}
					}
					return a
				},
			}))
		}
	}

	if opts.Foreground {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: opts.Level,
		}))
	}

	var logfile *os.File
	if opts.Logfile != "" {
		f, err := os.OpenFile(opts.Logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("cannot open logfile %s: %w", opts.Logfile, err)
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{
			Level: opts.Level,
		}))
		logfile = f
	}

	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: opts.Level,
		}))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &multiHandler{handlers: handlers}
	}

	return &Logger{slog: slog.New(handler), monitor: &monitor{}, logfile: logfile}, nil
}

// NewWriter creates a Logger writing text records to w. Used by tests and
// embedders that manage their own sinks.
func NewWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		slog:    slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		monitor: &monitor{},
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, slog.LevelError)
}

// SetMonitor opens a monitor log file that always records at Info level.
// The monitor log captures lifecycle events (startup, shutdown) and all warnings/errors.
func (l *Logger) SetMonitor(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("cannot open monitor log %s: %w", path, err)
	}
	l.monitor.file = f
	l.monitor.slog = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return nil
}

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), monitor: l.monitor, logfile: l.logfile}
}

// Monitor writes a message to the monitor log only. No-op if monitor is not configured.
func (l *Logger) Monitor(msg string, args ...any) {
	if l.monitor.slog != nil {
		l.monitor.slog.Info(msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warning logs at warn level and mirrors to the monitor log.
func (l *Logger) Warning(msg string, args ...any) {
	l.slog.Warn(msg, args...)
	if l.monitor.slog != nil {
		l.monitor.slog.Warn(msg, args...)
	}
}

// Error logs at error level and mirrors to the monitor log.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
	if l.monitor.slog != nil {
		l.monitor.slog.Error(msg, args...)
	}
}

// Enabled reports whether records at level would be emitted.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.slog.Enabled(context.Background(), level)
}

// Close flushes and closes the logfile and the monitor log if open.
func (l *Logger) Close() {
	if l.logfile != nil {
		l.logfile.Sync()
		l.logfile.Close()
		l.logfile = nil
	}
	if l.monitor.file != nil {
		l.monitor.file.Sync()
		l.monitor.file.Close()
		l.monitor.file = nil
		l.monitor.slog = nil
	}
}

// syslogWriter adapts *syslog.Writer to io.Writer.
type syslogWriter struct {
	w *syslog.Writer
}

func (s syslogWriter) Write(p []byte) (n int, err error) {
	return len(p), s.w.Info(string(p))
}
