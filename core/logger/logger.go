// Package logger configures the process-wide structured logger and exposes
// per-component child loggers.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gruppenrun/clubbot/core/buildinfo"
	coreconfig "github.com/gruppenrun/clubbot/core/config"
)

var (
	initOnce sync.Once
	levelVar slog.LevelVar

	// L is the base logger.
	L *slog.Logger

	// TG logs Telegram transport events.
	TG *slog.Logger
	// DB logs database events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// SVCReg logs registration service activity.
	SVCReg *slog.Logger
	// DLG logs dialogue state transitions.
	DLG *slog.Logger
	// SWEEP logs cleanup sweeper runs.
	SWEEP *slog.Logger
	// WEB logs the status server.
	WEB *slog.Logger
)

func init() {
	// Components must be usable before InitLogger runs (tests, early startup).
	L = slog.Default()
	wireComponents()
}

// InitLogger configures the global structured logger. It may be called only once.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		levelVar.Set(selectLevel(cfg))

		opts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		if selectKV(cfg) {
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
		logStartup(cfg)
	})
	return nil
}

func wireComponents() {
	TG = L.With("component", "tg")
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	SVCReg = L.With("component", "service.registrations")
	DLG = L.With("component", "dialogue")
	SWEEP = L.With("component", "sweeper")
	WEB = L.With("component", "web")
}

func logStartup(cfg *coreconfig.Config) {
	attrs := []slog.Attr{
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
	}
	if cfg != nil {
		attrs = append(attrs, slog.String("bot_version", cfg.BotVersion))
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func selectKV(cfg *coreconfig.Config) bool {
	if cfg == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "kv", "text", "pretty":
		return true
	case "json":
		return false
	}
	// Prefer human-friendly format when profile indicates debug/dev mode.
	return strings.EqualFold(cfg.Logging.Profile, "debug") || strings.EqualFold(cfg.Logging.Profile, "dev")
}

// RoundMS truncates a duration to whole milliseconds for log output.
func RoundMS(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
