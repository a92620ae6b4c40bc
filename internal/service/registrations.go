// Package service glues the store, the status resolver and notifications
// into the operations the dialogue layer calls.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/internal/calendar"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/notify"
	"github.com/gruppenrun/clubbot/internal/status"
	"github.com/gruppenrun/clubbot/internal/store"
)

// monthlyValidityDays bounds a monthly subscription from the day of purchase.
const monthlyValidityDays = 30

// Intent is a fully collected registration waiting to be persisted.
type Intent struct {
	Event    domain.EventKind
	Location domain.Location
	Kind     domain.RegistrationKind

	// Relay.
	Stages []int
	Pace   string

	// Camp.
	PaymentTier string
	Diet        string
	Preferences string
}

// Registrations is the registration service.
type Registrations struct {
	Store    store.Store
	Resolver *status.Resolver
	Notifier *notify.Notifier

	// CampCapacity overrides the calendar default when > 0.
	CampCapacity int

	Now func() time.Time
}

func NewRegistrations(s store.Store, r *status.Resolver, n *notify.Notifier, campCapacity int) *Registrations {
	return &Registrations{
		Store:        s,
		Resolver:     r,
		Notifier:     n,
		CampCapacity: campCapacity,
		Now:          time.Now,
	}
}

// Complete persists a collected registration. The target occurrence is
// recomputed here, at write time: a dialogue left open across an event day
// must land on the occurrence that is live when the user finally confirms.
func (r *Registrations) Complete(subject domain.Subject, intent Intent) (*domain.Registration, error) {
	def, ok := calendar.ByKey(intent.Event, intent.Location)
	if !ok {
		return nil, fmt.Errorf("complete registration: unknown event %s/%s", intent.Event, intent.Location)
	}
	now := r.Now()

	if subject.Proxy {
		if err := r.Store.SaveUser(&domain.User{
			ID:           subject.UserID,
			Name:         subject.ProxyName,
			Phone:        subject.ProxyPhone,
			RegisteredBy: subject.RegisteredBy,
		}); err != nil {
			return nil, fmt.Errorf("save proxy registrant: %w", err)
		}
	}

	reg := &domain.Registration{
		UserID:       subject.UserID,
		Event:        intent.Event,
		Location:     intent.Location,
		Kind:         intent.Kind,
		RegisteredAt: now,
	}

	switch intent.Kind {
	case domain.KindOneTime:
		if intent.Event == domain.EventWeeklyRun {
			target := def.NextOccurrence(now)
			number := def.OccurrenceNumber(target)
			reg.TargetDate = &target
			reg.TargetNumber = &number
		}
	case domain.KindMonthly:
		until := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, monthlyValidityDays)
		reg.ValidUntil = &until
	}

	switch intent.Event {
	case domain.EventRelay:
		reg.Attrs = &domain.EventAttrs{Stages: intent.Stages, Pace: intent.Pace}
	case domain.EventCamp:
		if intent.Kind != domain.KindWaitingList {
			free, err := r.CampSlots()
			if err != nil {
				return nil, err
			}
			if free <= 0 {
				return nil, domain.ErrNoAvailableSpots
			}
		}
		reg.Attrs = &domain.EventAttrs{
			PaymentTier: intent.PaymentTier,
			Diet:        intent.Diet,
			Preferences: intent.Preferences,
		}
	}

	if err := r.Store.PutRegistration(reg); err != nil {
		return nil, fmt.Errorf("complete registration: %w", err)
	}

	logger.SVCReg.Info("registration completed",
		slog.String("event", "registration.completed"),
		slog.String("user_id", reg.UserID),
		slog.String("event_kind", string(reg.Event)),
		slog.String("location", string(reg.Location)),
		slog.String("kind", string(reg.Kind)),
		slog.Bool("proxy", subject.Proxy),
	)
	go r.announce(subject, reg)
	return reg, nil
}

// Status reports the live registration state, repairing stale rows on the way.
func (r *Registrations) Status(userID string, event domain.EventKind, loc domain.Location) (status.Resolution, error) {
	return r.Resolver.ResolveAndReconcile(userID, event, loc)
}

// CampSlots returns the number of free camp places. Waiting-list rows do
// not occupy a slot.
func (r *Registrations) CampSlots() (int, error) {
	regs, err := r.Store.ListRegistrations(domain.EventCamp, domain.LocationNone)
	if err != nil {
		return 0, fmt.Errorf("count camp slots: %w", err)
	}
	taken := 0
	for _, reg := range regs {
		if reg.Kind != domain.KindWaitingList {
			taken++
		}
	}
	capacity := calendar.Camp.Capacity
	if r.CampCapacity > 0 {
		capacity = r.CampCapacity
	}
	return capacity - taken, nil
}

// UpdateStages replaces the relay stage selection in place.
func (r *Registrations) UpdateStages(userID string, stages []int) error {
	if err := r.requireRegistration(userID, domain.EventRelay, domain.LocationNone); err != nil {
		return err
	}
	if err := r.Store.UpdateStageSelection(userID, stages); err != nil {
		return fmt.Errorf("update stages: %w", err)
	}
	return nil
}

// AddStages merges extra stages into the existing relay selection.
func (r *Registrations) AddStages(userID string, stages []int) error {
	if err := r.requireRegistration(userID, domain.EventRelay, domain.LocationNone); err != nil {
		return err
	}
	if err := r.Store.AppendStageSelection(userID, stages); err != nil {
		return fmt.Errorf("add stages: %w", err)
	}
	return nil
}

// UpdatePace replaces the relay pace in place.
func (r *Registrations) UpdatePace(userID, pace string) error {
	if err := r.requireRegistration(userID, domain.EventRelay, domain.LocationNone); err != nil {
		return err
	}
	if err := r.Store.UpdatePace(userID, pace); err != nil {
		return fmt.Errorf("update pace: %w", err)
	}
	return nil
}

func (r *Registrations) requireRegistration(userID string, event domain.EventKind, loc domain.Location) error {
	_, err := r.Store.GetRegistration(userID, event, loc)
	if errors.Is(err, domain.ErrRegistrationNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	return nil
}

func (r *Registrations) announce(subject domain.Subject, reg *domain.Registration) {
	who := subject.UserID
	if u, err := r.Store.GetUser(subject.UserID); err == nil && u.Name != "" {
		who = u.Name
	}
	line := fmt.Sprintf("Новая регистрация: %s — %s", who, eventTitle(reg.Event, reg.Location))
	if reg.Kind == domain.KindWaitingList {
		line = fmt.Sprintf("Лист ожидания: %s — %s", who, eventTitle(reg.Event, reg.Location))
	}
	if subject.Proxy {
		line += fmt.Sprintf(" (записал(а) пользователь %s)", subject.RegisteredBy)
	}
	if reg.TargetNumber != nil && reg.TargetDate != nil {
		line += fmt.Sprintf(", №%d %s", *reg.TargetNumber, reg.TargetDate.Format("02.01.2006"))
	}
	r.Notifier.Admin(line)
}

func eventTitle(event domain.EventKind, loc domain.Location) string {
	switch {
	case event == domain.EventWeeklyRun && loc == domain.LocationShartash:
		return "воскресная пробежка (Шарташ)"
	case event == domain.EventWeeklyRun && loc == domain.LocationUktus:
		return "субботний трейл (Уктус)"
	case event == domain.EventRelay:
		return "Кругосветка"
	case event == domain.EventCamp:
		return "лагерь"
	}
	return string(event)
}
