package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"dronenav/pkg/config"
)

// Init initializes the logging system based on configuration and installs the
// result as the slog default. It returns a cleanup function to close log files.
func Init(cfg *config.LogConfig) (func(), error) {
	handler, closer, err := setupHandler(cfg.Server, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	slog.SetDefault(slog.New(handler))

	return func() {
		_ = closer.Close()
	}, nil
}

// parseLevel maps a config level name to an slog level. TRACE enables the
// per-tick trace logs on top of DEBUG.
func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "TRACE":
		EnableTrace = true
		return slog.LevelDebug
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupHandler(s config.LogSettings, stdout io.Writer) (slog.Handler, io.Closer, error) {
	level := parseLevel(s.Level)

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, nil, err
	}

	file := &lumberjack.Logger{
		Filename:   s.Path,
		MaxSize:    s.MaxSizeMB,
		MaxBackups: s.MaxBackups,
	}
	// Each run starts with a fresh file; the previous one becomes a backup.
	if info, err := os.Stat(s.Path); err == nil && info.Size() > 0 {
		if err := file.Rotate(); err != nil {
			return nil, nil, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	handlers := []slog.Handler{fileHandler}
	if stdout != nil {
		handlers = append(handlers, slog.NewTextHandler(stdout, &slog.HandlerOptions{
			Level: max(level, slog.LevelInfo),
		}))
	}
	handlers = append(handlers, slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &multiHandler{handlers: handlers}, file, nil
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
