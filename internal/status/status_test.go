package status

import (
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruppenrun/clubbot/internal/calendar"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../migrations/0001_init.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return store.New(db)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsActiveOneTimeTracksLiveOccurrence(t *testing.T) {
	target := calendar.SundayRun.NextOccurrence(date(2025, time.October, 1)) // Sun Oct 5
	reg := &domain.Registration{
		UserID:     "1",
		Event:      domain.EventWeeklyRun,
		Location:   domain.LocationShartash,
		Kind:       domain.KindOneTime,
		TargetDate: &target,
	}

	// Still the projected occurrence: Wednesday before and the run day itself.
	assert.True(t, IsActive(reg, calendar.SundayRun, date(2025, time.October, 1)))
	assert.True(t, IsActive(reg, calendar.SundayRun, date(2025, time.October, 5)))

	// Eight days later the projection has moved on.
	assert.False(t, IsActive(reg, calendar.SundayRun, date(2025, time.October, 9)))
}

func TestIsActiveMonthlyValidThroughLastDay(t *testing.T) {
	until := date(2025, time.November, 4)
	reg := &domain.Registration{
		Kind:       domain.KindMonthly,
		Event:      domain.EventWeeklyRun,
		Location:   domain.LocationShartash,
		ValidUntil: &until,
	}

	assert.True(t, IsActive(reg, calendar.SundayRun, date(2025, time.October, 20)))
	// Inclusive on the last day, even late in the evening.
	assert.True(t, IsActive(reg, calendar.SundayRun, time.Date(2025, time.November, 4, 23, 30, 0, 0, time.UTC)))
	assert.False(t, IsActive(reg, calendar.SundayRun, date(2025, time.November, 5)))
}

func TestIsActiveWaitingListNeverActive(t *testing.T) {
	reg := &domain.Registration{Kind: domain.KindWaitingList, Event: domain.EventCamp}
	assert.False(t, IsActive(reg, calendar.Camp, date(2025, time.October, 1)))
}

func TestIsActiveFixedDateEvents(t *testing.T) {
	reg := &domain.Registration{Kind: domain.KindOneTime, Event: domain.EventRelay}
	assert.True(t, IsActive(reg, calendar.Relay, date(2025, time.October, 1)))
}

func TestReconcileExpiresStaleOneTimeAndBreakfast(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "1", Name: "Ivan Petrov", Phone: "+7 (999) 123-45-67"}))

	target := calendar.SundayRun.NextOccurrence(date(2025, time.October, 1))
	num := 278
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID:       "1",
		Event:        domain.EventWeeklyRun,
		Location:     domain.LocationShartash,
		Kind:         domain.KindOneTime,
		TargetDate:   &target,
		TargetNumber: &num,
	}))
	require.NoError(t, s.PutBreakfastOrder(&domain.BreakfastOrder{
		UserID:     "1",
		Items:      map[string]int{"syrniki": 1},
		TotalPrice: 260,
	}))

	r := NewResolver(s)
	r.Now = func() time.Time { return date(2025, time.October, 9) }

	res, err := r.ResolveAndReconcile("1", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.Nil(t, res.Registration)

	// The stale row and the dependent breakfast order are both gone.
	_, err = s.GetRegistration("1", domain.EventWeeklyRun, domain.LocationShartash)
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
	_, err = s.GetBreakfastOrder("1")
	assert.ErrorIs(t, err, domain.ErrBreakfastNotFound)

	// Reconciling again is a no-op.
	res, err = r.ResolveAndReconcile("1", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	assert.False(t, res.Active)
}

func TestReconcileKeepsActiveRegistration(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "1"}))

	target := calendar.SundayRun.NextOccurrence(date(2025, time.October, 1))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID:     "1",
		Event:      domain.EventWeeklyRun,
		Location:   domain.LocationShartash,
		Kind:       domain.KindOneTime,
		TargetDate: &target,
	}))

	r := NewResolver(s)
	r.Now = func() time.Time { return date(2025, time.October, 3) }

	res, err := r.ResolveAndReconcile("1", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	assert.True(t, res.Active)
	require.NotNil(t, res.Registration)
	assert.Equal(t, domain.KindOneTime, res.Registration.Kind)
}

func TestReconcileKeepsWaitingListRow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "9"}))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID: "9",
		Event:  domain.EventCamp,
		Kind:   domain.KindWaitingList,
	}))

	r := NewResolver(s)
	res, err := r.ResolveAndReconcile("9", domain.EventCamp, domain.LocationNone)
	require.NoError(t, err)
	assert.False(t, res.Active)
	require.NotNil(t, res.Registration)

	_, err = s.GetRegistration("9", domain.EventCamp, domain.LocationNone)
	require.NoError(t, err)
}

func TestReconcileMissingRegistration(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	res, err := r.ResolveAndReconcile("404", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.Nil(t, res.Registration)
}
