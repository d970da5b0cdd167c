package temporal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domu/rental-engine/temporal"
	"github.com/domu/rental-engine/temporal/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// ratePayload is a minimal payload for exercising the engine without
// domain types.
type ratePayload struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

func (ratePayload) Kind() string { return "rate" }

func (p ratePayload) Validate() error {
	if p.Label == "" {
		return errors.New("label is required")
	}
	return nil
}

func rate(label string, value int64) ratePayload {
	return ratePayload{Label: label, Value: decimal.NewFromInt(value)}
}

func newChain(t *testing.T) (temporal.Chain[ratePayload], *store.Memory) {
	t.Helper()
	return temporal.NewChain[ratePayload](), store.NewMemory()
}

func day(s string) temporal.Date { return temporal.MustDate(s) }

// =============================================================================
// CHAIN LIFECYCLE TESTS
// =============================================================================

func TestChain_Create_InitialVersionCoversAllTime(t *testing.T) {
	// GIVEN: A fresh chain
	// WHEN: Creating the initial version
	// THEN: It is open on both sides and resolvable on any date

	chain, mem := newChain(t)
	ctx := context.Background()

	fact, err := chain.Create(ctx, mem, "prop-1", rate("cleaning", 50))
	require.NoError(t, err)

	assert.Nil(t, fact.Start, "initial version has no start")
	assert.Nil(t, fact.End, "initial version is open")
	assert.Empty(t, fact.RootID, "first version is its own root")
	assert.True(t, fact.IsCurrent())

	resolved, err := chain.ResolveAt(ctx, mem, "prop-1", day("1999-01-01"))
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, fact.ID, resolved[0].ID)
}

func TestChain_Create_InvalidPayloadRejected(t *testing.T) {
	chain, mem := newChain(t)

	_, err := chain.Create(context.Background(), mem, "prop-1", rate("", 50))
	assert.ErrorIs(t, err, temporal.ErrInvalidPayload)
}

func TestChain_Modify_ClosesCurrentAndAppendsSuccessor(t *testing.T) {
	// GIVEN: A chain with one open version
	// WHEN: Modifying from July 1
	// THEN: The old version ends June 30, the successor starts July 1 open-ended

	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("cleaning", 50))
	require.NoError(t, err)

	second, err := chain.Modify(ctx, mem, first.ID, rate("cleaning", 75), day("2026-07-01"))
	require.NoError(t, err)

	require.NotNil(t, second.Start)
	assert.Equal(t, "2026-07-01", second.Start.String())
	assert.Nil(t, second.End)
	assert.Equal(t, first.ID, second.RootID, "successor points at the chain root")

	versions, err := chain.History(ctx, mem, first.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.NotNil(t, versions[0].End)
	assert.Equal(t, "2026-06-30", versions[0].End.String(), "old version closed the day before")

	// Day-accurate resolution on both sides of the boundary.
	before, err := chain.ResolveAt(ctx, mem, "prop-1", day("2026-06-30"))
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.True(t, before[0].Payload.Value.Equal(decimal.NewFromInt(50)))

	after, err := chain.ResolveAt(ctx, mem, "prop-1", day("2026-07-01"))
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.True(t, after[0].Payload.Value.Equal(decimal.NewFromInt(75)))
}

func TestChain_Modify_ByAnyVersionID(t *testing.T) {
	// Modifying through an older version's id targets the chain's current
	// version, not the referenced one.

	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("fee", 10))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 20), day("2026-03-01"))
	require.NoError(t, err)

	third, err := chain.Modify(ctx, mem, first.ID, rate("fee", 30), day("2026-05-01"))
	require.NoError(t, err)

	versions, err := chain.History(ctx, mem, first.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, third.ID, versions[2].ID)
	require.NotNil(t, versions[1].End)
	assert.Equal(t, "2026-04-30", versions[1].End.String())
}

func TestChain_Modify_StartNotAfterCurrentRejected(t *testing.T) {
	// GIVEN: A chain whose current version starts July 1
	// WHEN: Modifying from July 1 (not strictly after)
	// THEN: InvalidPeriodError, chain untouched

	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("fee", 10))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 20), day("2026-07-01"))
	require.NoError(t, err)

	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 30), day("2026-07-01"))
	assert.ErrorIs(t, err, temporal.ErrInvalidPeriod)

	var periodErr *temporal.InvalidPeriodError
	require.ErrorAs(t, err, &periodErr)
	assert.Equal(t, "2026-07-01", periodErr.NewStart.String())

	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 30), day("2026-06-15"))
	assert.ErrorIs(t, err, temporal.ErrInvalidPeriod, "earlier start also rejected")

	versions, err := chain.History(ctx, mem, first.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2, "failed modify must not grow the chain")
}

func TestChain_Revert_UndoesLastModification(t *testing.T) {
	// GIVEN: A chain modified once
	// WHEN: Reverting
	// THEN: The chain is byte-identical to its pre-modify state

	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("fee", 10))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 20), day("2026-07-01"))
	require.NoError(t, err)

	restored, err := chain.Revert(ctx, mem, first.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, restored.ID)
	assert.Nil(t, restored.End, "previous version reopened")
	assert.True(t, restored.Payload.Value.Equal(decimal.NewFromInt(10)))

	versions, err := chain.History(ctx, mem, first.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Nil(t, versions[0].Start)
	assert.Nil(t, versions[0].End)
}

func TestChain_Revert_SingleVersionFails(t *testing.T) {
	// GIVEN: A chain with only its initial version
	// WHEN: Reverting
	// THEN: ErrNoHistory and no mutation

	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("fee", 10))
	require.NoError(t, err)

	_, err = chain.Revert(ctx, mem, first.ID)
	assert.ErrorIs(t, err, temporal.ErrNoHistory)

	got, err := chain.Get(ctx, mem, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCurrent(), "chain untouched after failed revert")
}

func TestChain_Revert_RepeatedWalksBackwards(t *testing.T) {
	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("fee", 10))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 20), day("2026-03-01"))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 30), day("2026-05-01"))
	require.NoError(t, err)

	_, err = chain.Revert(ctx, mem, first.ID)
	require.NoError(t, err)
	restored, err := chain.Revert(ctx, mem, first.ID)
	require.NoError(t, err)
	assert.True(t, restored.Payload.Value.Equal(decimal.NewFromInt(10)))

	_, err = chain.Revert(ctx, mem, first.ID)
	assert.ErrorIs(t, err, temporal.ErrNoHistory, "back at the initial version")
}

func TestChain_Deactivate_HidesAllVersionsFromResolution(t *testing.T) {
	chain, mem := newChain(t)
	ctx := context.Background()

	first, err := chain.Create(ctx, mem, "prop-1", rate("fee", 10))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, first.ID, rate("fee", 20), day("2026-07-01"))
	require.NoError(t, err)

	require.NoError(t, chain.Deactivate(ctx, mem, first.ID))

	resolved, err := chain.ResolveAt(ctx, mem, "prop-1", day("2026-08-01"))
	require.NoError(t, err)
	assert.Empty(t, resolved, "deactivated chains resolve to nothing")

	current, err := chain.Current(ctx, mem, "prop-1")
	require.NoError(t, err)
	assert.Empty(t, current)

	// History stays inspectable.
	versions, err := chain.History(ctx, mem, first.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestChain_MultipleChainsResolveIndependently(t *testing.T) {
	chain, mem := newChain(t)
	ctx := context.Background()

	cleaning, err := chain.Create(ctx, mem, "prop-1", rate("cleaning", 50))
	require.NoError(t, err)
	_, err = chain.Create(ctx, mem, "prop-1", rate("internet", 30))
	require.NoError(t, err)
	_, err = chain.Modify(ctx, mem, cleaning.ID, rate("cleaning", 60), day("2026-07-01"))
	require.NoError(t, err)

	resolved, err := chain.ResolveAt(ctx, mem, "prop-1", day("2026-07-15"))
	require.NoError(t, err)
	require.Len(t, resolved, 2, "one version per chain")

	values := map[string]string{}
	for _, f := range resolved {
		values[f.Payload.Label] = f.Payload.Value.String()
	}
	assert.Equal(t, "60", values["cleaning"])
	assert.Equal(t, "30", values["internet"])
}

func TestMemory_OpenVersionBackstop(t *testing.T) {
	// A second open version in the same chain must be rejected by the
	// store itself, independent of the chain operations.

	_, mem := newChain(t)
	ctx := context.Background()

	first := temporal.Record{ID: "v1", PropertyID: "prop-1", Kind: "rate", Payload: []byte(`{}`), Active: true}
	require.NoError(t, mem.InsertFact(ctx, first))

	start := day("2026-07-01")
	dup := temporal.Record{ID: "v2", PropertyID: "prop-1", Kind: "rate", Payload: []byte(`{}`), Active: true, Start: &start, RootID: "v1"}
	err := mem.InsertFact(ctx, dup)
	assert.ErrorIs(t, err, temporal.ErrConflict)
}
