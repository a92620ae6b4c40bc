package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSundayRunNextOccurrence(t *testing.T) {
	// Reference Sunday itself counts as the upcoming occurrence.
	ref := date(2025, time.September, 28)
	require.Equal(t, time.Sunday, ref.Weekday())
	assert.Equal(t, ref, SundayRun.NextOccurrence(ref))

	// Midweek projects forward to the coming Sunday.
	assert.Equal(t, date(2025, time.October, 5), SundayRun.NextOccurrence(date(2025, time.October, 1)))

	// Saturday still lands on the very next day.
	assert.Equal(t, date(2025, time.October, 5), SundayRun.NextOccurrence(date(2025, time.October, 4)))
}

func TestSaturdayTrailAlwaysAdvancesOnEventDay(t *testing.T) {
	ref := date(2025, time.November, 8)
	require.Equal(t, time.Saturday, ref.Weekday())

	// Same-day query jumps a full week.
	assert.Equal(t, date(2025, time.November, 15), SaturdayTrail.NextOccurrence(ref))

	// Friday before projects to the very next Saturday.
	assert.Equal(t, date(2025, time.November, 15), SaturdayTrail.NextOccurrence(date(2025, time.November, 14)))
}

func TestOccurrenceNumberGoldenValues(t *testing.T) {
	assert.Equal(t, 277, SundayRun.OccurrenceNumber(date(2025, time.September, 28)))
	assert.Equal(t, 278, SundayRun.OccurrenceNumber(date(2025, time.October, 5)))

	// Non-aligned dates are canonicalized to their week's Sunday first.
	assert.Equal(t, 278, SundayRun.OccurrenceNumber(date(2025, time.October, 1)))

	// A week before the reference.
	assert.Equal(t, 276, SundayRun.OccurrenceNumber(date(2025, time.September, 21)))

	assert.Equal(t, 1, SaturdayTrail.OccurrenceNumber(date(2025, time.November, 8)))
	assert.Equal(t, 2, SaturdayTrail.OccurrenceNumber(date(2025, time.November, 15)))
}

func TestOccurrenceNumberMonotonicByWeek(t *testing.T) {
	start := date(2025, time.September, 28)
	prev := SundayRun.OccurrenceNumber(SundayRun.NextOccurrence(start))
	for i := 1; i < 120; i++ {
		day := start.AddDate(0, 0, i)
		n := SundayRun.OccurrenceNumber(SundayRun.NextOccurrence(day))
		require.GreaterOrEqual(t, n, prev, "number regressed at %s", day)
		require.LessOrEqual(t, n-prev, 1, "number jumped at %s", day)
		prev = n
	}

	// Exactly one increment per elapsed week.
	for w := 0; w < 10; w++ {
		day := start.AddDate(0, 0, 7*w+1)
		next := SundayRun.NextOccurrence(day)
		assert.Equal(t, 277+w+1, SundayRun.OccurrenceNumber(next))
	}
}

func TestByKey(t *testing.T) {
	def, ok := ByKey(SundayRun.Kind, SundayRun.Location)
	require.True(t, ok)
	assert.Equal(t, 277, def.RefNumber)

	_, ok = ByKey("unknown", "")
	assert.False(t, ok)
}
