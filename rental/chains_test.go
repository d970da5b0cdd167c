package rental_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domu/rental-engine/rental"
	"github.com/domu/rental-engine/temporal"
)

// =============================================================================
// COST CHAIN TESTS
// =============================================================================

func TestCosts_ModifyRevertRoundTrip(t *testing.T) {
	// GIVEN: A cost modified once
	// WHEN: Reverting
	// THEN: The original open-ended version is back

	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	cost, err := s.costs.Create(ctx, property.ID,
		fixedCost("cleaning", rental.CostRecurringDaily, "5"))
	require.NoError(t, err)
	assert.Nil(t, cost.Start)
	assert.Nil(t, cost.End)

	modified, err := s.costs.Modify(ctx, cost.ID, day("2026-07-01"),
		fixedCost("cleaning", rental.CostRecurringDaily, "8"))
	require.NoError(t, err)
	assertMoney(t, "8", modified.Payload.Value)

	history, err := s.costs.History(ctx, cost.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].End)
	assert.Equal(t, "2026-06-30", history[0].End.String())

	restored, err := s.costs.Revert(ctx, cost.ID)
	require.NoError(t, err)
	assert.Equal(t, cost.ID, restored.ID)
	assert.Nil(t, restored.End)
	assertMoney(t, "5", restored.Payload.Value)

	history, err = s.costs.History(ctx, cost.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCosts_RevertInitialVersionFails(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	cost, err := s.costs.Create(ctx, property.ID,
		fixedCost("internet", rental.CostRecurringMonthly, "30"))
	require.NoError(t, err)

	_, err = s.costs.Revert(ctx, cost.ID)
	assert.ErrorIs(t, err, temporal.ErrNoHistory)
}

func TestCosts_InvalidPayloadRejected(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.costs.Create(ctx, property.ID, rental.CostPayload{
		Name:     "bad commission",
		Category: rental.CostPerReservation,
		CalcType: rental.CostPercentage,
		Value:    dec("150"),
	})
	assert.ErrorIs(t, err, temporal.ErrInvalidPayload, "percentage above 100")

	_, err = s.costs.Create(ctx, property.ID,
		fixedCost("free lunch", rental.CostRecurringDaily, "0"))
	assert.ErrorIs(t, err, temporal.ErrInvalidPayload, "zero value")
}

func TestCosts_DeactivateHidesFromCurrent(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	cost, err := s.costs.Create(ctx, property.ID,
		fixedCost("cleaning", rental.CostRecurringDaily, "5"))
	require.NoError(t, err)
	_, err = s.costs.Create(ctx, property.ID,
		fixedCost("internet", rental.CostRecurringMonthly, "30"))
	require.NoError(t, err)

	require.NoError(t, s.costs.Deactivate(ctx, cost.ID))

	current, err := s.costs.ListCurrent(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "internet", current[0].Payload.Name)
}

// =============================================================================
// BASE PRICE CHAIN TESTS
// =============================================================================

func TestBasePrice_PropertyCreationOpensChain(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	current, err := s.basePrices.Current(ctx, property.ID)
	require.NoError(t, err)
	assertMoney(t, "100", current.Payload.Value)
	assert.Nil(t, current.Start, "initial version valid since always")
}

func TestBasePrice_ModifySyncsCachedValue(t *testing.T) {
	// GIVEN: A property whose base price chain says 100
	// WHEN: Modifying to 150 from July 16
	// THEN: The chain gains a version AND the property row mirrors 150

	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.basePrices.Modify(ctx, property.ID, day("2026-07-16"), dec("150"))
	require.NoError(t, err)

	refreshed, err := s.properties.Get(ctx, property.ID)
	require.NoError(t, err)
	assertMoney(t, "150", refreshed.BasePrice)

	history, err := s.basePrices.History(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].End)
	assert.Equal(t, "2026-07-15", history[0].End.String())
}

func TestBasePrice_RevertRestoresCachedValue(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.basePrices.Modify(ctx, property.ID, day("2026-07-16"), dec("150"))
	require.NoError(t, err)

	restored, err := s.basePrices.Revert(ctx, property.ID)
	require.NoError(t, err)
	assertMoney(t, "100", restored.Payload.Value)

	refreshed, err := s.properties.Get(ctx, property.ID)
	require.NoError(t, err)
	assertMoney(t, "100", refreshed.BasePrice)
}

func TestBasePrice_ModifyBeforeCurrentStartRejected(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	property := s.seedProperty(t, 5, "100")

	_, err := s.basePrices.Modify(ctx, property.ID, day("2026-07-16"), dec("150"))
	require.NoError(t, err)

	_, err = s.basePrices.Modify(ctx, property.ID, day("2026-07-01"), dec("120"))
	assert.ErrorIs(t, err, temporal.ErrInvalidPeriod)

	// Failed modify must leave the cache untouched.
	refreshed, err := s.properties.Get(ctx, property.ID)
	require.NoError(t, err)
	assertMoney(t, "150", refreshed.BasePrice)
}
