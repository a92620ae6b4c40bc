package domain

import "time"

// EventKind tags a recurring club activity.
type EventKind string

const (
	EventWeeklyRun EventKind = "weeklyrun"
	EventRelay     EventKind = "relay"
	EventCamp      EventKind = "camp"
)

// Location distinguishes variants of the same event kind.
type Location string

const (
	LocationShartash Location = "shartash"
	LocationUktus    Location = "uktus"
	// LocationNone is used for events that have a single venue.
	LocationNone Location = ""
)

// RegistrationKind describes how long a registration stays valid.
type RegistrationKind string

const (
	KindOneTime     RegistrationKind = "onetime"
	KindMonthly     RegistrationKind = "monthly"
	KindWaitingList RegistrationKind = "waiting_list"
)

// Registration is the authoritative record of one user signed up for one
// event variant. Exactly one row per (user, event, location) is live at a
// time; a new registration replaces the previous one.
//
// Activity is never stored: it is recomputed from TargetDate/ValidUntil
// and the current time (see internal/status).
type Registration struct {
	UserID   string           `db:"user_id"`
	Event    EventKind        `db:"event"`
	Location Location         `db:"location"`
	Kind     RegistrationKind `db:"kind"`

	// TargetDate and TargetNumber identify the single projected occurrence
	// a one-time registration is valid for.
	TargetDate   *time.Time `db:"target_date"`
	TargetNumber *int       `db:"target_number"`

	// ValidUntil bounds a monthly subscription (inclusive).
	ValidUntil *time.Time `db:"valid_until"`

	RegisteredAt time.Time `db:"registered_at"`

	// Attrs holds the event-specific attribute set; nil for plain runs.
	Attrs *EventAttrs `db:"-"`
}

// EventAttrs is the per-kind attribute union. Only the fields matching the
// registration's event kind are meaningful.
type EventAttrs struct {
	// Relay.
	Stages []int  `db:"-"`
	Pace   string `db:"pace"`

	// Camp.
	PaymentTier string `db:"payment_tier"`
	Diet        string `db:"diet"`
	Preferences string `db:"preferences"`
}

// HasStage reports whether the relay stage id is selected.
func (a *EventAttrs) HasStage(id int) bool {
	if a == nil {
		return false
	}
	for _, s := range a.Stages {
		if s == id {
			return true
		}
	}
	return false
}

// BreakfastOrder is an add-on owned by an active one-time run registration.
// It is deleted whenever the parent registration expires.
type BreakfastOrder struct {
	UserID     string         `db:"user_id"`
	Items      map[string]int `db:"-"`
	TotalPrice int            `db:"total_price"`
	OrderedAt  time.Time      `db:"created_at"`
}
