package rental_test

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/domu/rental-engine/rental"
	"github.com/domu/rental-engine/store/sqlite"
	"github.com/domu/rental-engine/temporal"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// services bundles the full stack wired on one in-memory database.
type services struct {
	store      *sqlite.Store
	properties *rental.PropertyService
	bookings   *rental.BookingService
	costs      *rental.CostService
	basePrices *rental.BasePriceService
	rules      *rental.RuleService
	calculator *rental.Calculator
	finance    *rental.Aggregator
}

func newTestServices(t *testing.T) *services {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	basePrices := rental.NewBasePriceService(store, log)
	return &services{
		store:      store,
		properties: rental.NewPropertyService(store, basePrices, log),
		bookings:   rental.NewBookingService(store, log),
		costs:      rental.NewCostService(store, log),
		basePrices: basePrices,
		rules:      rental.NewRuleService(store, log),
		calculator: rental.NewCalculator(store, log),
		finance:    rental.NewAggregator(store, log),
	}
}

func (s *services) seedProperty(t *testing.T, avgStayDays int, basePrice string) rental.Property {
	t.Helper()
	property, err := s.properties.Create(context.Background(), rental.CreatePropertyInput{
		Name:        "Sea View Loft",
		AvgStayDays: avgStayDays,
		BasePrice:   dec(basePrice),
	})
	require.NoError(t, err)
	return property
}

func day(s string) temporal.Date { return temporal.MustDate(s) }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// assertMoney compares decimals by value, not representation.
func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func fixedCost(name string, category rental.CostCategory, value string) rental.CostPayload {
	return rental.CostPayload{
		Name:     name,
		Category: category,
		CalcType: rental.CostFixedAmount,
		Value:    dec(value),
	}
}

func commissionCost(name, percent string) rental.CostPayload {
	return rental.CostPayload{
		Name:     name,
		Category: rental.CostPerReservation,
		CalcType: rental.CostPercentage,
		Value:    dec(percent),
	}
}
