// Package web serves a small read-only JSON surface for operators:
// process status, roster counters and the user list. It never mutates
// anything and is meant to sit behind a private network.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gruppenrun/clubbot/core/buildinfo"
	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/internal/calendar"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/store"
)

// CacheStats exposes the read-cache counters without importing the cache
// implementation here.
type CacheStats interface {
	Stats() (hits, misses uint64)
}

// Server is the read-only status server.
type Server struct {
	Store      store.Store
	Cache      CacheStats
	BotVersion string

	started time.Time
	http    *http.Server
}

func NewServer(st store.Store, cache CacheStats, botVersion string) *Server {
	return &Server{
		Store:      st,
		Cache:      cache,
		BotVersion: botVersion,
		started:    time.Now(),
	}
}

// Routes builds the handler; split out so tests can hit it directly.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /users", s.handleUsers)
	return mux
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	s.http = &http.Server{Addr: listen, Handler: s.Routes()}

	errCh := make(chan error, 1)
	go func() {
		logger.WEB.Info("status server listening",
			slog.String("event", "web.listen"),
			slog.String("addr", listen),
		)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"bot_version":    s.BotVersion,
		"build_version":  buildinfo.Version,
		"build_commit":   buildinfo.Commit,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	if s.Cache != nil {
		hits, misses := s.Cache.Stats()
		resp["cache"] = map[string]uint64{"hits": hits, "misses": misses}
	}
	writeJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.CountUsers()
	if err != nil {
		httpError(w, err)
		return
	}
	total, err := s.Store.CountRegistrations()
	if err != nil {
		httpError(w, err)
		return
	}

	perEvent := make(map[string]int)
	for _, def := range calendar.All() {
		regs, err := s.Store.ListRegistrations(def.Kind, def.Location)
		if err != nil {
			httpError(w, err)
			return
		}
		key := string(def.Kind)
		if def.Location != domain.LocationNone {
			key += ":" + string(def.Location)
		}
		perEvent[key] = len(regs)
	}

	writeJSON(w, map[string]any{
		"users":                  users,
		"registrations":          total,
		"registrations_by_event": perEvent,
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.ListUsers()
	if err != nil {
		httpError(w, err)
		return
	}

	type userRow struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Phone        string `json:"phone"`
		Username     string `json:"username,omitempty"`
		RegisteredBy string `json:"registered_by,omitempty"`
	}
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:           u.ID,
			Name:         u.Name,
			Phone:        u.Phone,
			Username:     u.Username,
			RegisteredBy: u.RegisteredBy,
		})
	}
	writeJSON(w, map[string]any{"count": len(rows), "users": rows})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WEB.Warn("response encode failed",
			slog.String("event", "web.error"),
			slog.String("error", err.Error()),
		)
	}
}

func httpError(w http.ResponseWriter, err error) {
	logger.WEB.Error("request failed",
		slog.String("event", "web.error"),
		slog.String("error", err.Error()),
	)
	http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
}
