package temporal

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date (all fact spans are whole days)
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component, normalized to UTC
// midnight. Bookings, fact spans and pricing rules all operate on whole days.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// MustDate is a test/seed helper; panics on malformed input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format(dateLayout) }

// DaysBetween returns the number of whole days from `from` to `to`.
// Negative when `to` is earlier.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// SPAN - Inclusive date range [Start, End]
// =============================================================================

// Span is an inclusive date range. Fact versions and pricing rules use
// inclusive semantics; booking intervals are half-open and live in the
// domain package, not here.
type Span struct {
	Start Date
	End   Date
}

func NewSpan(start, end Date) Span { return Span{Start: start, End: end} }

// MonthSpan returns the span covering every day of the given month.
func MonthSpan(year int, month time.Month) Span {
	first := NewDate(year, month, 1)
	last := first.AddMonths(1).AddDays(-1)
	return Span{Start: first, End: last}
}

// DaysInMonth returns the calendar length of the month.
func DaysInMonth(year int, month time.Month) int {
	s := MonthSpan(year, month)
	return DaysBetween(s.Start, s.End) + 1
}

func (s Span) Contains(d Date) bool {
	return d.AfterOrEqual(s.Start) && d.BeforeOrEqual(s.End)
}

// Len returns the number of days in the span, inclusive of both ends.
func (s Span) Len() int { return DaysBetween(s.Start, s.End) + 1 }

// Days returns every day in the span in ascending order.
func (s Span) Days() []Date {
	var days []Date
	for cur := s.Start; cur.BeforeOrEqual(s.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (s Span) String() string { return "[" + s.Start.String() + ", " + s.End.String() + "]" }
