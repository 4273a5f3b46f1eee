package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Default returns the package-level logger used by listener and handler
// when no logger is injected.
func Default() *slog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l *slog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// New builds a logger from cfg. The returned closer flushes and releases
// any file handles opened for rotation; callers should defer it.
func New(cfg Config) (*slog.Logger, func() error, error) {
	cfg.ApplyDefaults()

	var handlers []slog.Handler
	var closers []func() error

	if cfg.Console.Enabled {
		async := NewAsyncWriter(os.Stdout)
		closers = append(closers, async.Close)
		handlers = append(handlers, createHandler(async, cfg.Console.Format, parseLevel(cfg.Console.Level)))
	}

	if cfg.File.Enabled {
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		async := NewAsyncWriter(file)
		closers = append(closers, async.Close, file.Close)
		handlers = append(handlers, createHandler(async, cfg.File.Format, parseLevel(cfg.File.Level)))
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, nil)
	case 1:
		handler = handlers[0]
	default:
		handler = NewMultiHandler(handlers...)
	}

	if cfg.DedupWindow > 0 {
		dedup := NewDedupHandler(handler, cfg.DedupWindow)
		handler = dedup
		// Close dedup first so its buffered entries reach the writers
		// before they are closed.
		closers = append([]func() error{dedup.Close}, closers...)
	}

	closer := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return slog.New(handler), closer, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
