// Package status decides whether a stored registration is currently
// active and lazily reconciles records whose occurrence has passed.
package status

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/internal/calendar"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/store"
)

// IsActive is the single expiry predicate, shared with the sweeper. It is
// pure: activity is a function of the stored record and the clock, never
// cached on its own.
func IsActive(reg *domain.Registration, def calendar.EventDefinition, now time.Time) bool {
	if reg == nil {
		return false
	}
	switch reg.Kind {
	case domain.KindOneTime:
		switch reg.Event {
		case domain.EventWeeklyRun:
			if reg.TargetDate == nil {
				return false
			}
			// Active exactly while the stored target is still the live
			// projected occurrence.
			return reg.TargetDate.Equal(def.NextOccurrence(now))
		default:
			// Relay and camp are fixed-date events: the row itself is the
			// ground truth until the sweeper or an admin removes it.
			return true
		}
	case domain.KindMonthly:
		if reg.ValidUntil == nil {
			return false
		}
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return !day.After(*reg.ValidUntil)
	case domain.KindWaitingList:
		return false
	}
	return false
}

// Resolver answers "is this user currently registered" questions and
// repairs stale records as a side effect of being asked.
type Resolver struct {
	Store store.Store
	Now   func() time.Time
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{Store: s, Now: time.Now}
}

// Resolution is the outcome of a reconcile pass.
type Resolution struct {
	Registration *domain.Registration
	Active       bool
}

// ResolveAndReconcile reads the registration and, when its target
// occurrence has passed, expires it in place: the row is removed together
// with any dependent breakfast order. The operation is idempotent and
// reaches the same end state as the scheduled sweeper in any interleaving.
func (r *Resolver) ResolveAndReconcile(userID string, event domain.EventKind, loc domain.Location) (Resolution, error) {
	reg, err := r.Store.GetRegistration(userID, event, loc)
	if errors.Is(err, domain.ErrRegistrationNotFound) {
		return Resolution{}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve registration: %w", err)
	}

	def, ok := calendar.ByKey(event, loc)
	if !ok {
		return Resolution{}, fmt.Errorf("resolve registration: unknown event %s/%s", event, loc)
	}

	now := r.Now()
	if IsActive(reg, def, now) {
		return Resolution{Registration: reg, Active: true}, nil
	}

	// Waiting-list rows are kept: they are inactive by definition but the
	// admin still rosters them.
	if reg.Kind == domain.KindWaitingList {
		return Resolution{Registration: reg, Active: false}, nil
	}

	if err := Expire(r.Store, reg); err != nil {
		return Resolution{}, err
	}
	return Resolution{}, nil
}

// Expire removes a stale registration and its dependent add-ons. Shared by
// the lazy path above and the scheduled sweeper so both reach the same end
// state regardless of who runs first.
func Expire(s store.Store, reg *domain.Registration) error {
	err := s.DeleteRegistration(reg.UserID, reg.Event, reg.Location)
	if err != nil && !errors.Is(err, domain.ErrRegistrationNotFound) {
		return fmt.Errorf("expire registration: %w", err)
	}

	// Breakfast orders are owned by the Sunday run registration.
	if reg.Event == domain.EventWeeklyRun && reg.Location == domain.LocationShartash {
		if err := s.DeleteBreakfastOrder(reg.UserID); err != nil {
			return fmt.Errorf("expire breakfast order: %w", err)
		}
	}

	logger.SVCReg.Info("registration expired",
		slog.String("event", "registration.expired"),
		slog.String("user_id", reg.UserID),
		slog.String("event_kind", string(reg.Event)),
		slog.String("location", string(reg.Location)),
		slog.String("kind", string(reg.Kind)),
	)
	return nil
}
