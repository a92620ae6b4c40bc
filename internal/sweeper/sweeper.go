// Package sweeper expires stale registrations on a schedule. It applies
// the same predicate as the lazy resolver, so the two can run in any
// order and reach the same end state.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/internal/calendar"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/status"
	"github.com/gruppenrun/clubbot/internal/store"
)

// Interval is the pause between scheduled sweeps.
const Interval = 24 * time.Hour

// Sweeper walks every registration and removes the expired ones.
type Sweeper struct {
	Store store.Store
	Now   func() time.Time
}

func New(s store.Store) *Sweeper {
	return &Sweeper{Store: s, Now: time.Now}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep()

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs a single cleanup pass over all recurring events.
func (s *Sweeper) Sweep() {
	now := s.Now()
	total := 0
	for _, def := range calendar.All() {
		if !s.due(def, now) {
			continue
		}
		total += s.sweepEvent(def, now)
	}
	logger.SWEEP.Info("sweep finished",
		slog.String("event", "sweep.done"),
		slog.Int("expired", total),
	)
}

// due gates per-event sweeps. The Saturday trail is cleaned on Sundays
// only, right after its occurrence has passed; everything else is checked
// on every pass.
func (s *Sweeper) due(def calendar.EventDefinition, now time.Time) bool {
	if def.Kind == domain.EventWeeklyRun && def.Location == domain.LocationUktus {
		return now.Weekday() == time.Sunday
	}
	return true
}

func (s *Sweeper) sweepEvent(def calendar.EventDefinition, now time.Time) int {
	regs, err := s.Store.ListRegistrations(def.Kind, def.Location)
	if err != nil {
		logger.SWEEP.Error("list registrations failed",
			slog.String("event", "sweep.error"),
			slog.String("event_kind", string(def.Kind)),
			slog.String("location", string(def.Location)),
			slog.String("error", err.Error()),
		)
		return 0
	}

	expired := 0
	for _, reg := range regs {
		if status.IsActive(reg, def, now) || reg.Kind == domain.KindWaitingList {
			continue
		}
		if err := status.Expire(s.Store, reg); err != nil {
			logger.SWEEP.Error("expire failed",
				slog.String("event", "sweep.error"),
				slog.String("user_id", reg.UserID),
				slog.String("error", err.Error()),
			)
			continue
		}
		expired++
	}
	return expired
}
