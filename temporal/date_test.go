package temporal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domu/rental-engine/temporal"
)

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := temporal.ParseDate("2026-07-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-15", d.String())
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.July, d.Month())
	assert.Equal(t, 15, d.Day())
}

func TestParseDate_Malformed(t *testing.T) {
	for _, input := range []string{"", "2026-13-01", "2026/07/15", "15-07-2026", "2026-02-30"} {
		_, err := temporal.ParseDate(input)
		assert.ErrorIs(t, err, temporal.ErrInvalidDate, "input %q", input)
	}
}

func TestDate_Comparisons(t *testing.T) {
	a := temporal.MustDate("2026-06-03")
	b := temporal.MustDate("2026-06-07")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, a.AfterOrEqual(a))
	assert.False(t, a.Equal(b))
}

func TestDate_Arithmetic(t *testing.T) {
	d := temporal.MustDate("2026-01-31")

	assert.Equal(t, "2026-02-01", d.AddDays(1).String())
	assert.Equal(t, "2026-01-30", d.AddDays(-1).String())
	// Month arithmetic follows time.AddDate normalization.
	assert.Equal(t, "2026-03-03", d.AddMonths(1).String())

	assert.Equal(t, 4, temporal.DaysBetween(temporal.MustDate("2026-06-03"), temporal.MustDate("2026-06-07")))
	assert.Equal(t, -4, temporal.DaysBetween(temporal.MustDate("2026-06-07"), temporal.MustDate("2026-06-03")))
}

func TestMonthSpan(t *testing.T) {
	span := temporal.MonthSpan(2026, time.February)
	assert.Equal(t, "2026-02-01", span.Start.String())
	assert.Equal(t, "2026-02-28", span.End.String())
	assert.Equal(t, 28, span.Len())

	// Leap year
	assert.Equal(t, 29, temporal.DaysInMonth(2028, time.February))
	assert.Equal(t, 31, temporal.DaysInMonth(2026, time.July))
}

func TestSpan_ContainsAndDays(t *testing.T) {
	span := temporal.NewSpan(temporal.MustDate("2026-06-01"), temporal.MustDate("2026-06-03"))

	assert.True(t, span.Contains(temporal.MustDate("2026-06-01")))
	assert.True(t, span.Contains(temporal.MustDate("2026-06-03")))
	assert.False(t, span.Contains(temporal.MustDate("2026-06-04")))

	days := span.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2026-06-01", days[0].String())
	assert.Equal(t, "2026-06-03", days[2].String())
}
