package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FiveFields(t *testing.T) {
	t.Parallel()

	e, err := Parse("0 9 * * 1-5")
	require.NoError(t, err)

	assert.False(t, e.HasSeconds())
	assert.Equal(t, []int{0}, e.Field(Minute).Values.Values())
	assert.Equal(t, []int{9}, e.Field(Hour).Values.Values())
	assert.Equal(t, 31, e.Field(DayOfMonth).Values.Len())
	assert.Equal(t, 12, e.Field(Month).Values.Len())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, e.Field(DayOfWeek).Values.Values())
	assert.True(t, e.Field(Second).Values.Empty())
	assert.Empty(t, e.Warnings())
}

func TestParse_SixFields(t *testing.T) {
	t.Parallel()

	e, err := Parse("30 */10 * * * *")
	require.NoError(t, err)

	assert.True(t, e.HasSeconds())
	assert.Equal(t, []int{30}, e.Field(Second).Values.Values())
	assert.Equal(t, []int{0, 10, 20, 30, 40, 50}, e.Field(Minute).Values.Values())
}

func TestParse_WhitespaceHandling(t *testing.T) {
	t.Parallel()

	e, err := Parse("  0\t0  * *   *  ")
	require.NoError(t, err)
	assert.Equal(t, "0 0 * * *", e.String())
}

func TestParse_WrongFieldCount(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "* * * *", "0 0 *", "0 0 * * * * *"} {
		_, err := Parse(expr)
		require.Error(t, err, expr)
		assert.ErrorIs(t, err, ErrInvalidExpression, expr)

		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), expr)
		assert.Equal(t, expr, syntaxErr.Expression)
	}

	_, err := Parse("* * * *")
	assert.EqualError(t, err, "cron: expected 5 or 6 fields, got 4")
}

func TestParse_ClassifiesFields(t *testing.T) {
	t.Parallel()

	e, err := Parse("*/15 9-17 1 * 1,3")
	require.NoError(t, err)

	assert.Equal(t, Step{Base: Every{}, Interval: 15}, e.Field(Minute).Spec)
	assert.Equal(t, Range{Start: 9, End: 17}, e.Field(Hour).Spec)
	assert.Equal(t, List{Values: []int{1}}, e.Field(DayOfMonth).Spec)
	assert.Equal(t, Every{}, e.Field(Month).Spec)
	assert.Equal(t, List{Values: []int{1, 3}}, e.Field(DayOfWeek).Spec)
	assert.True(t, e.Field(Month).Wildcard())
	assert.False(t, e.Field(Hour).Wildcard())
}

func TestParse_OutOfRangeIsAWarning(t *testing.T) {
	t.Parallel()

	e, err := Parse("0 25 * * *")
	require.NoError(t, err)

	warnings := e.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, Hour, warnings[0].Field)
	assert.Equal(t, OutOfRange, warnings[0].Kind)
	assert.Equal(t, 25, warnings[0].Value)
	assert.True(t, e.Field(Hour).Values.Empty())
	assert.Equal(t, List{Values: []int{}}, e.Field(Hour).Spec)
}

func TestParseStrict(t *testing.T) {
	t.Parallel()

	valid := []string{
		"* * * * *",
		"*/5 * * * *",
		"0 2 * * *",
		"0,15,30,45 9-17 * * 1-5",
		"0 0 1 1 *",
		"15 0 0 * * 0",
	}
	for _, expr := range valid {
		_, err := ParseStrict(expr)
		assert.NoError(t, err, expr)
	}

	invalid := []string{
		"61 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * 13 *",
		"* * * * 7",
		"* * * *",
		"bad * * * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"60 * * * * *",
	}
	for _, expr := range invalid {
		_, err := ParseStrict(expr)
		if assert.Error(t, err, expr) {
			assert.ErrorIs(t, err, ErrInvalidExpression, expr)
		}
	}
}

func TestParseStrict_CollectsEveryViolation(t *testing.T) {
	t.Parallel()

	_, err := ParseStrict("61 24 * * *")
	require.Error(t, err)

	var violation DomainViolation
	require.True(t, errors.As(err, &violation))
	assert.Contains(t, err.Error(), "minute: value 61")
	assert.Contains(t, err.Error(), "hour: value 24")
}

func TestExpressionMatches(t *testing.T) {
	t.Parallel()

	e, err := Parse("15 2 * * 1-5")
	require.NoError(t, err)

	match := time.Date(2026, 2, 20, 2, 15, 0, 0, time.UTC) // Friday
	noMatchMinute := time.Date(2026, 2, 20, 2, 16, 0, 0, time.UTC)
	noMatchDow := time.Date(2026, 2, 21, 2, 15, 0, 0, time.UTC) // Saturday

	assert.True(t, e.Matches(match))
	assert.False(t, e.Matches(noMatchMinute))
	assert.False(t, e.Matches(noMatchDow))
}

func TestExpressionMatches_DayFieldsAreBothRequired(t *testing.T) {
	t.Parallel()

	e, err := Parse("0 0 13 * 5")
	require.NoError(t, err)

	assert.True(t, e.Matches(time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)), "Friday the 13th")
	assert.False(t, e.Matches(time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)), "the 13th, a Tuesday")
	assert.False(t, e.Matches(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)), "a Friday, the 2nd")
}
