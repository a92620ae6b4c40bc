// Package calendar projects occurrence dates and sequential numbers for
// the club's recurring events from a known reference (date, number) pair.
package calendar

import (
	"time"

	"github.com/gruppenrun/clubbot/internal/domain"
)

// EventDefinition describes one recurring activity.
type EventDefinition struct {
	Kind     domain.EventKind
	Location domain.Location

	// Weekday of the weekly occurrence. Ignored for fixed-date events.
	Weekday time.Weekday

	// AdvanceOnEventDay controls the same-day policy: when today matches
	// Weekday, false counts today as the upcoming occurrence (Sunday run),
	// true advances a full week (Saturday trail).
	AdvanceOnEventDay bool

	// RefDate is a known occurrence whose sequential number is RefNumber.
	RefDate   time.Time
	RefNumber int

	// Capacity limits total registrations; 0 means unlimited.
	Capacity int
}

// NextOccurrence returns the date of the upcoming occurrence as seen from
// today. Both input and output carry only the date part.
func (d EventDefinition) NextOccurrence(today time.Time) time.Time {
	today = midnight(today)
	ahead := int(d.Weekday-today.Weekday()+7) % 7
	if ahead == 0 && d.AdvanceOnEventDay {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

// OccurrenceNumber computes the sequential number of the occurrence that
// the given date belongs to. The date is first canonicalized to its week's
// defining weekday; deltas are never taken on non-aligned dates.
func (d EventDefinition) OccurrenceNumber(date time.Time) int {
	aligned := d.align(date)
	refAligned := d.align(d.RefDate)
	weeks := int(aligned.Sub(refAligned).Hours()) / (24 * 7)
	return d.RefNumber + weeks
}

// align snaps a date forward to the occurrence weekday of its week.
func (d EventDefinition) align(date time.Time) time.Time {
	date = midnight(date)
	ahead := int(d.Weekday-date.Weekday()+7) % 7
	return date.AddDate(0, 0, ahead)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// The club's live event definitions. Reference pairs come from the
// published schedule and must not drift: the Sunday run counted №277 on
// 2025-09-28, the Saturday trail opened with №1 on 2025-11-08.
var (
	SundayRun = EventDefinition{
		Kind:              domain.EventWeeklyRun,
		Location:          domain.LocationShartash,
		Weekday:           time.Sunday,
		AdvanceOnEventDay: false,
		RefDate:           time.Date(2025, time.September, 28, 0, 0, 0, 0, time.UTC),
		RefNumber:         277,
	}

	SaturdayTrail = EventDefinition{
		Kind:              domain.EventWeeklyRun,
		Location:          domain.LocationUktus,
		Weekday:           time.Saturday,
		AdvanceOnEventDay: true,
		RefDate:           time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC),
		RefNumber:         1,
	}

	Relay = EventDefinition{
		Kind:     domain.EventRelay,
		Location: domain.LocationNone,
	}

	Camp = EventDefinition{
		Kind:     domain.EventCamp,
		Location: domain.LocationNone,
		Capacity: 27,
	}
)

// All lists every live event definition.
func All() []EventDefinition {
	return []EventDefinition{SundayRun, SaturdayTrail, Relay, Camp}
}

// ByKey returns the definition for an event kind and location.
func ByKey(kind domain.EventKind, loc domain.Location) (EventDefinition, bool) {
	switch {
	case kind == domain.EventWeeklyRun && loc == domain.LocationShartash:
		return SundayRun, true
	case kind == domain.EventWeeklyRun && loc == domain.LocationUktus:
		return SaturdayTrail, true
	case kind == domain.EventRelay:
		return Relay, true
	case kind == domain.EventCamp:
		return Camp, true
	}
	return EventDefinition{}, false
}
