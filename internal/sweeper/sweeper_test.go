package sweeper

import (
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func putRun(t *testing.T, s store.Store, userID string, loc domain.Location, target time.Time) {
	t.Helper()
	require.NoError(t, s.SaveUser(&domain.User{ID: userID}))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID:     userID,
		Event:      domain.EventWeeklyRun,
		Location:   loc,
		Kind:       domain.KindOneTime,
		TargetDate: &target,
	}))
}

func TestSweepExpiresStaleAndKeepsLive(t *testing.T) {
	s := newTestStore(t)

	// "1" targeted the run that already happened, "2" the upcoming one.
	putRun(t, s, "1", domain.LocationShartash, date(2025, time.September, 28))
	putRun(t, s, "2", domain.LocationShartash, date(2025, time.October, 5))
	require.NoError(t, s.PutBreakfastOrder(&domain.BreakfastOrder{
		UserID: "1", Items: map[string]int{"syrniki": 1}, TotalPrice: 260,
	}))

	sw := New(s)
	sw.Now = func() time.Time { return date(2025, time.October, 1) } // Wednesday
	sw.Sweep()

	_, err := s.GetRegistration("1", domain.EventWeeklyRun, domain.LocationShartash)
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
	_, err = s.GetBreakfastOrder("1")
	assert.ErrorIs(t, err, domain.ErrBreakfastNotFound)

	_, err = s.GetRegistration("2", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
}

func TestSweepTrailOnlyOnSundays(t *testing.T) {
	s := newTestStore(t)

	// Stale trail registration: targeted Saturday Nov 8, already passed.
	putRun(t, s, "1", domain.LocationUktus, date(2025, time.November, 8))

	sw := New(s)

	// Wednesday: the trail sweep is skipped even though the row is stale.
	sw.Now = func() time.Time { return date(2025, time.November, 12) }
	sw.Sweep()
	_, err := s.GetRegistration("1", domain.EventWeeklyRun, domain.LocationUktus)
	require.NoError(t, err)

	// Sunday: swept.
	sw.Now = func() time.Time { return date(2025, time.November, 9) }
	sw.Sweep()
	_, err = s.GetRegistration("1", domain.EventWeeklyRun, domain.LocationUktus)
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
}

func TestSweepExpiresMonthlyAfterValidity(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "1"}))
	until := date(2025, time.September, 30)
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID:     "1",
		Event:      domain.EventWeeklyRun,
		Location:   domain.LocationShartash,
		Kind:       domain.KindMonthly,
		ValidUntil: &until,
	}))

	sw := New(s)
	sw.Now = func() time.Time { return date(2025, time.October, 1) }
	sw.Sweep()

	_, err := s.GetRegistration("1", domain.EventWeeklyRun, domain.LocationShartash)
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
}

func TestSweepKeepsWaitingList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "1"}))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID: "1",
		Event:  domain.EventCamp,
		Kind:   domain.KindWaitingList,
	}))

	sw := New(s)
	sw.Now = func() time.Time { return date(2025, time.October, 1) }
	sw.Sweep()

	_, err := s.GetRegistration("1", domain.EventCamp, domain.LocationNone)
	require.NoError(t, err)
}
