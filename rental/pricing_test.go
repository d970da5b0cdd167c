package rental_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domu/rental-engine/rental"
	"github.com/domu/rental-engine/temporal"
)

// seedCostFloor installs the standard cost set used by the floor tests:
// monthly 300 (10/day), daily 5, per-reservation 25 (5/day at a 5 night
// average stay) and a 15% commission that must NOT enter the floor.
func seedCostFloor(t *testing.T, s *services, propertyID string) {
	t.Helper()
	ctx := context.Background()
	for _, payload := range []rental.CostPayload{
		fixedCost("internet", rental.CostRecurringMonthly, "300"),
		fixedCost("cleaning", rental.CostRecurringDaily, "5"),
		fixedCost("welcome kit", rental.CostPerReservation, "25"),
		commissionCost("platform fee", "15"),
	} {
		_, err := s.costs.Create(ctx, propertyID, payload)
		require.NoError(t, err)
	}
}

// =============================================================================
// DAILY PRICE
// =============================================================================

func TestDailyPrice_NoRuleReturnsBasePrice(t *testing.T) {
	// Floor = 300/30 + 5 + 25/5 = 20. Without a rule the full margin
	// applies, so the price is the base price again.

	s := newTestServices(t)
	property := s.seedProperty(t, 5, "100")
	seedCostFloor(t, s, property.ID)

	night, err := s.calculator.DailyPrice(context.Background(), property.ID, day("2026-07-10"))
	require.NoError(t, err)
	assertMoney(t, "100", night.Price)
	assertMoney(t, "20", night.FloorPrice)
	assertMoney(t, "100", night.ProfitabilityPercent)
	assert.Empty(t, night.RuleName)
}

func TestDailyPrice_ProfitabilityPercentScalesTheMargin(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")
	seedCostFloor(t, s, property.ID)

	cases := []struct {
		name    string
		percent string
		want    string
	}{
		{"high season", "150", "140"}, // 20 + 80 * 1.5
		{"break even", "0", "20"},     // floor only
		{"low season", "50", "60"},    // 20 + 80 * 0.5
	}

	ruleStart := day("2026-07-01")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			percent := dec(tc.percent)
			rule, err := s.rules.Create(ctx, rental.CreateRuleInput{
				PropertyID:           property.ID,
				Name:                 tc.name,
				Start:                ruleStart,
				End:                  ruleStart.AddDays(9),
				ProfitabilityPercent: &percent,
			})
			require.NoError(t, err)

			night, err := s.calculator.DailyPrice(ctx, property.ID, ruleStart.AddDays(3))
			require.NoError(t, err)
			assertMoney(t, tc.want, night.Price)
			assertMoney(t, "20", night.FloorPrice)
			assertMoney(t, tc.percent, night.ProfitabilityPercent)
			assert.Equal(t, tc.name, night.RuleName)

			require.NoError(t, s.rules.Delete(ctx, rule.ID))
		})
	}
}

func TestDailyPrice_ZeroAvgStaySkipsReservationTerm(t *testing.T) {
	// With no average stay the per-reservation amortization is undefined
	// and must be left out, not divided by zero.

	s := newTestServices(t)
	property := s.seedProperty(t, 0, "100")
	seedCostFloor(t, s, property.ID)

	percent := dec("0")
	_, err := s.rules.Create(context.Background(), rental.CreateRuleInput{
		PropertyID:           property.ID,
		Name:                 "floor probe",
		Start:                day("2026-07-01"),
		End:                  day("2026-07-31"),
		ProfitabilityPercent: &percent,
	})
	require.NoError(t, err)

	night, err := s.calculator.DailyPrice(context.Background(), property.ID, day("2026-07-10"))
	require.NoError(t, err)
	assertMoney(t, "15", night.Price) // 300/30 + 5, no 25/avgStay term
	assertMoney(t, "15", night.FloorPrice)
}

func TestDailyPrice_UsesBasePriceVersionOfTheDay(t *testing.T) {
	// GIVEN: Base price 100 modified to 150 effective July 16
	// THEN: Each day is priced with the version covering it

	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.basePrices.Modify(ctx, property.ID, day("2026-07-16"), dec("150"))
	require.NoError(t, err)

	before, err := s.calculator.DailyPrice(ctx, property.ID, day("2026-07-15"))
	require.NoError(t, err)
	assertMoney(t, "100", before.Price)

	after, err := s.calculator.DailyPrice(ctx, property.ID, day("2026-07-16"))
	require.NoError(t, err)
	assertMoney(t, "150", after.Price)
}

func TestDailyPrice_UsesCostVersionOfTheDay(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	cost, err := s.costs.Create(ctx, property.ID,
		fixedCost("cleaning", rental.CostRecurringDaily, "5"))
	require.NoError(t, err)
	_, err = s.costs.Modify(ctx, cost.ID, day("2026-07-16"),
		fixedCost("cleaning", rental.CostRecurringDaily, "20"))
	require.NoError(t, err)

	percent := dec("0")
	_, err = s.rules.Create(ctx, rental.CreateRuleInput{
		PropertyID:           property.ID,
		Name:                 "floor probe",
		Start:                day("2026-07-01"),
		End:                  day("2026-07-31"),
		ProfitabilityPercent: &percent,
	})
	require.NoError(t, err)

	before, err := s.calculator.DailyPrice(ctx, property.ID, day("2026-07-15"))
	require.NoError(t, err)
	assertMoney(t, "5", before.Price)

	after, err := s.calculator.DailyPrice(ctx, property.ID, day("2026-07-16"))
	require.NoError(t, err)
	assertMoney(t, "20", after.Price)
}

func TestDailyPrice_FallsBackToCachedBasePrice(t *testing.T) {
	// A property row without a base price chain still prices from the
	// cached column instead of failing.

	s := newTestServices(t)
	ctx := context.Background()

	orphan := rental.Property{
		ID:          uuid.NewString(),
		Name:        "legacy import",
		AvgStayDays: 5,
		BasePrice:   dec("80"),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.store.InsertProperty(ctx, orphan))

	night, err := s.calculator.DailyPrice(ctx, orphan.ID, day("2026-07-10"))
	require.NoError(t, err)
	assertMoney(t, "80", night.Price)
}

func TestDailyPrice_UnknownProperty(t *testing.T) {
	s := newTestServices(t)
	_, err := s.calculator.DailyPrice(context.Background(), uuid.NewString(), day("2026-07-10"))
	assert.ErrorIs(t, err, rental.ErrPropertyNotFound)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestCalendar_MarksOccupiedNights(t *testing.T) {
	// GIVEN: A booking July 10-12
	// THEN: Nights 10 and 11 are reserved, checkout day 12 is free

	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.bookings.Create(ctx, rental.CreateBookingInput{
		PropertyID: property.ID,
		GuestName:  "Ada",
		CheckIn:    day("2026-07-10"),
		CheckOut:   day("2026-07-12"),
	})
	require.NoError(t, err)

	span := temporal.NewSpan(day("2026-07-09"), day("2026-07-13"))
	quotes, err := s.calculator.Calendar(ctx, property.ID, span)
	require.NoError(t, err)
	require.Len(t, quotes, 5)

	statuses := map[string]rental.DayStatus{}
	for _, q := range quotes {
		statuses[q.Date.String()] = q.Status
		assertMoney(t, "100", q.Price)
	}
	assert.Equal(t, rental.DayAvailable, statuses["2026-07-09"])
	assert.Equal(t, rental.DayReserved, statuses["2026-07-10"])
	assert.Equal(t, rental.DayReserved, statuses["2026-07-11"])
	assert.Equal(t, rental.DayAvailable, statuses["2026-07-12"])
	assert.Equal(t, rental.DayAvailable, statuses["2026-07-13"])
}

func TestCalendar_CancelledBookingDoesNotOccupy(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	booking, err := s.bookings.Create(ctx, rental.CreateBookingInput{
		PropertyID: property.ID,
		GuestName:  "Ada",
		CheckIn:    day("2026-07-10"),
		CheckOut:   day("2026-07-12"),
	})
	require.NoError(t, err)
	_, err = s.bookings.Cancel(ctx, booking.ID)
	require.NoError(t, err)

	quotes, err := s.calculator.Calendar(ctx, property.ID,
		temporal.NewSpan(day("2026-07-10"), day("2026-07-11")))
	require.NoError(t, err)
	for _, q := range quotes {
		assert.Equal(t, rental.DayAvailable, q.Status)
	}
}

func TestCalendar_PricesAcrossVersionBoundary(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.basePrices.Modify(ctx, property.ID, day("2026-07-16"), dec("150"))
	require.NoError(t, err)

	quotes, err := s.calculator.Calendar(ctx, property.ID,
		temporal.NewSpan(day("2026-07-15"), day("2026-07-16")))
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assertMoney(t, "100", quotes[0].Price)
	assertMoney(t, "150", quotes[1].Price)
}

func TestCalendar_SurfacesPriceBreakdown(t *testing.T) {
	// Each night reports the floor, the applied percent and the winning
	// rule's name alongside the price.

	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.costs.Create(ctx, property.ID,
		fixedCost("cleaning", rental.CostRecurringDaily, "5"))
	require.NoError(t, err)

	percent := dec("150")
	_, err = s.rules.Create(ctx, rental.CreateRuleInput{
		PropertyID:           property.ID,
		Name:                 "high season",
		Start:                day("2026-07-01"),
		End:                  day("2026-07-31"),
		ProfitabilityPercent: &percent,
	})
	require.NoError(t, err)

	quotes, err := s.calculator.Calendar(ctx, property.ID,
		temporal.NewSpan(day("2026-07-10"), day("2026-07-10")))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assertMoney(t, "147.5", quotes[0].Price) // 5 + 95 * 1.5
	assertMoney(t, "5", quotes[0].FloorPrice)
	assertMoney(t, "150", quotes[0].ProfitabilityPercent)
	assert.Equal(t, "high season", quotes[0].RuleName)
}

func TestCalendar_CacheFallbackWarnsOncePerRequest(t *testing.T) {
	// A property without a base price chain falls back to the cached
	// column with a single warning for the whole request, not one per day.

	s := newTestServices(t)
	ctx := context.Background()

	orphan := rental.Property{
		ID:          uuid.NewString(),
		Name:        "legacy import",
		AvgStayDays: 5,
		BasePrice:   dec("80"),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.store.InsertProperty(ctx, orphan))

	log, hook := logrustest.NewNullLogger()
	calc := rental.NewCalculator(s.store, log)

	quotes, err := calc.Calendar(ctx, orphan.ID,
		temporal.NewSpan(day("2026-07-01"), day("2026-07-05")))
	require.NoError(t, err)
	require.Len(t, quotes, 5)
	for _, q := range quotes {
		assertMoney(t, "80", q.Price)
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

// =============================================================================
// RULE RESOLUTION
// =============================================================================

func TestResolveForDate_TieBreak(t *testing.T) {
	span := func(s, e string) (temporal.Date, temporal.Date) { return day(s), day(e) }
	start, end := span("2026-07-01", "2026-07-31")

	older := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	rules := []rental.PricingRule{
		{ID: "b", Name: "low prio", Start: start, End: end, Priority: 1, CreatedAt: newer},
		{ID: "a", Name: "high prio", Start: start, End: end, Priority: 5, CreatedAt: older},
		{ID: "c", Name: "elsewhere", Start: day("2026-08-01"), End: day("2026-08-31"), Priority: 9, CreatedAt: older},
	}

	// Highest priority wins regardless of age.
	winner, ok := rental.ResolveForDate(rules, day("2026-07-10"))
	require.True(t, ok)
	assert.Equal(t, "a", winner.ID)

	// Same priority: the most recently created wins.
	rules[1].Priority = 1
	winner, ok = rental.ResolveForDate(rules, day("2026-07-10"))
	require.True(t, ok)
	assert.Equal(t, "b", winner.ID)

	// Same priority and timestamp: lowest ID wins, deterministically.
	rules[0].CreatedAt = older
	winner, ok = rental.ResolveForDate(rules, day("2026-07-10"))
	require.True(t, ok)
	assert.Equal(t, "a", winner.ID)

	// No rule covers the day.
	_, ok = rental.ResolveForDate(rules, day("2026-09-15"))
	assert.False(t, ok)
}
