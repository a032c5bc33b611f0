package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	robfig "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrences_EveryThirtyMinutes(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC)
	got := NextOccurrences("*/30 * * * *", 3, from)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC),
	}, got)
}

func TestNextOccurrences_StartsStrictlyAfterFrom(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 15, 10, 0, 30, 0, time.UTC)
	got := NextOccurrences("* * * * *", 1, from)

	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 1, 0, 0, time.UTC), got[0])

	got = NextOccurrences("0 10 * * *", 1, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 1, 16, 10, 0, 0, 0, time.UTC), got[0])
}

func TestNextOccurrences_Weekdays(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC) // Friday
	got := NextOccurrences("0 9 * * 1-5", 2, from)

	assert.Equal(t, []time.Time{
		time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC),
	}, got)
}

func TestNextOccurrences_DayFieldsAreANDed(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := NextOccurrences("0 0 13 * 5", 2, from)

	assert.Equal(t, []time.Time{
		time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
	}, got)
}

func TestNextOccurrences_Malformed(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NextOccurrences("* * * *", 5, time.Now()))
	assert.Empty(t, NextOccurrences("", 5, time.Now()))
}

func TestNextOccurrences_ImpossibleDateExhaustsBudget(t *testing.T) {
	t.Parallel()

	done := make(chan []time.Time, 1)
	go func() { done <- NextOccurrences("0 0 31 2 *", 1, time.Now()) }()

	select {
	case got := <-done:
		assert.Empty(t, got)
	case <-time.After(5 * time.Second):
		t.Fatal("search for Feb 31 did not terminate")
	}
}

func TestNextOccurrences_HugeBoundsReturnPromptly(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	done := make(chan []time.Time, 1)
	go func() {
		done <- NextOccurrences("58-9223372036854775807 0-3000000000 * * *", 3, from)
	}()

	select {
	case got := <-done:
		assert.Equal(t, []time.Time{
			time.Date(2026, 1, 1, 0, 58, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 59, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 1, 58, 0, 0, time.UTC),
		}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("huge range bounds did not return")
	}

	assert.Equal(t, "At minutes 0-59", Describe("0-9223372036854775807 * * * *"))
}

func TestNextOccurrences_EmptyFieldMatchesNothing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NextOccurrences("0 25 * * *", 3, time.Now()))
}

func TestNextOccurrences_WindowIsOneYear(t *testing.T) {
	t.Parallel()

	// The next Feb 29 after mid-2026 is in 2028, outside the search window.
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, NextOccurrences("0 0 29 2 *", 1, from))

	from = time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t,
		[]time.Time{time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		NextOccurrences("0 0 29 2 *", 1, from))
}

func TestNextOccurrences_CountBounds(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, NextOccurrences("* * * * *", 0, from))
	assert.Empty(t, NextOccurrences("* * * * *", -3, from))
	assert.Len(t, NextOccurrences("0 0 1 * *", 100, from), 12)
}

func TestNextOccurrences_SecondsAreStamped(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := NextOccurrences("45,15 */10 * * * *", 2, from)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 0, 10, 15, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 20, 15, 0, time.UTC),
	}, got)
}

func TestNextOccurrences_UsesCallerLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	got := NextOccurrences("0 9 * * *", 1, from)

	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, loc), got[0])
	assert.Equal(t, loc, got[0].Location())
}

func TestNextOccurrences_Properties(t *testing.T) {
	t.Parallel()

	exprs := []string{
		"* * * * *",
		"*/7 * * * *",
		"5 4 * * 0",
		"0 22 * * 1-5",
		"23 0-20/2 * * *",
		"0 0,12 1 */2 *",
		"0 9 * * 1-5",
		"59 23 31 12 *",
		"0 0 13 * 5",
		"30 */3 1-7 * 1",
	}
	from := time.Date(2026, 2, 20, 7, 42, 13, 0, time.UTC)

	for _, expr := range exprs {
		e, err := Parse(expr)
		require.NoError(t, err)

		got := e.Next(from, 25)
		assert.LessOrEqual(t, len(got), 25, expr)
		prev := from
		for _, ts := range got {
			assert.True(t, ts.After(prev), "%s: %s not after %s", expr, ts, prev)
			assert.True(t, e.Matches(ts), "%s: %s does not match", expr, ts)
			assert.Zero(t, ts.Second(), expr)
			prev = ts
		}
	}
}

// When either day field is "*", AND and OR semantics coincide, so results
// must agree with robfig/cron.
func TestNextOccurrences_AgreesWithRobfig(t *testing.T) {
	t.Parallel()

	exprs := []string{
		"*/7 * * * *",
		"5 4 * * 0",
		"0 22 * * 1-5",
		"23 0-20/2 * * *",
		"0 0,12 1 */2 *",
		"15 10 * 3 *",
		"0 6 28 * *",
	}
	from := time.Date(2026, 1, 10, 3, 3, 0, 0, time.UTC)

	for _, expr := range exprs {
		ref, err := robfig.ParseStandard(expr)
		require.NoError(t, err, expr)

		got := NextOccurrences(expr, 10, from)
		require.Len(t, got, 10, expr)

		cursor := from
		for i := range got {
			cursor = ref.Next(cursor)
			assert.True(t, cursor.Equal(got[i]), "%s occurrence %d: want %s got %s", expr, i, cursor, got[i])
		}
	}
}

func TestOccurrences_StopsWhenConsumerStops(t *testing.T) {
	t.Parallel()

	e, err := Parse("* * * * *")
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var got []time.Time
	for ts := range e.Occurrences(from) {
		got = append(got, ts)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)

	// A second range starts the search again from the same point.
	for ts := range e.Occurrences(from) {
		assert.Equal(t, got[0], ts)
		break
	}
}

func TestNextOccurrences_SpringForwardGap(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:30 does not exist on 2024-03-10 in New York.
	from := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	got := NextOccurrences("30 2 * * *", 1, from)

	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 3, 11, 2, 30, 0, 0, ny), got[0])
}

func TestNextOccurrences_FallBackRepeatsHour(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:30 happens twice on 2024-11-03 in New York, an hour apart.
	from := time.Date(2024, 11, 3, 0, 0, 0, 0, ny)
	got := NextOccurrences("30 1 * * *", 2, from)

	require.Len(t, got, 2)
	assert.Equal(t, time.Hour, got[1].Sub(got[0]))
	assert.Equal(t, 1, got[0].Hour())
	assert.Equal(t, 1, got[1].Hour())
}
