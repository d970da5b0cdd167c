/*
chain.go - Version-chain operations

PURPOSE:
  Implements the lifecycle of a fact chain: create the initial "since
  always" version, apply dated modifications, revert the last
  modification, and resolve versions at a point in time or over a range.

CRITICAL INVARIANTS:
  1. At most one open version (end = nil) per chain.
  2. Versions are disjoint and ordered by start date, nulls first.
  3. Modify followed by Revert is an identity on the chain.
  4. Revert on a single-version chain fails with ErrNoHistory and never
     mutates state.

ATOMICITY:
  Modify and Revert each perform two writes. Callers MUST run them inside
  a transaction and pass the tx-bound store; the operations themselves are
  written so that any error before the second write leaves a consistent
  chain when rolled back.

SEE ALSO:
  - fact.go: Record/Fact types
  - store.go: RecordStore interface
*/
package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chain exposes the versioning operations for one fact kind. The zero
// payload value supplies the kind, so construction is just NewChain[P]().
type Chain[P Payload] struct {
	kind string
}

func NewChain[P Payload]() Chain[P] {
	var zero P
	return Chain[P]{kind: zero.Kind()}
}

// Kind returns the fact kind this chain manages.
func (c Chain[P]) Kind() string { return c.kind }

func (c Chain[P]) encode(propertyID string, p P, start, end *Date, rootID string) (Record, error) {
	if err := p.Validate(); err != nil {
		return Record{}, &PayloadError{Kind: c.kind, Reason: err}
	}
	raw, err := marshalPayload(p)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		Kind:       c.kind,
		Payload:    raw,
		Active:     true,
		Start:      start,
		End:        end,
		RootID:     rootID,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Create inserts the initial version of a new concept:
// start = end = root = nil, covering all of time until first modified.
func (c Chain[P]) Create(ctx context.Context, s RecordStore, propertyID string, p P) (Fact[P], error) {
	rec, err := c.encode(propertyID, p, nil, nil, "")
	if err != nil {
		return Fact[P]{}, err
	}
	if err := s.InsertFact(ctx, rec); err != nil {
		return Fact[P]{}, err
	}
	return decodeFact[P](rec)
}

// Get returns a single version by id.
func (c Chain[P]) Get(ctx context.Context, s RecordStore, id string) (Fact[P], error) {
	rec, err := s.GetFact(ctx, id)
	if err != nil {
		return Fact[P]{}, err
	}
	return decodeFact[P](rec)
}

// Current returns the open, active version of every chain of this kind on
// the property.
func (c Chain[P]) Current(ctx context.Context, s RecordStore, propertyID string) ([]Fact[P], error) {
	recs, err := s.CurrentFacts(ctx, propertyID, c.kind)
	if err != nil {
		return nil, err
	}
	return decodeFacts[P](recs)
}

// CurrentOf returns the open version of the chain that the given version
// belongs to. The id may reference any version in the chain.
func (c Chain[P]) CurrentOf(ctx context.Context, s RecordStore, id string) (Fact[P], error) {
	rec, err := s.GetFact(ctx, id)
	if err != nil {
		return Fact[P]{}, err
	}
	cur, err := s.ChainCurrent(ctx, rec.ChainRoot())
	if err != nil {
		return Fact[P]{}, err
	}
	return decodeFact[P](cur)
}

// ResolveAt returns, for every chain of this kind on the property, the
// version active on the given day. When invariant (1) holds this is at
// most one version per chain.
func (c Chain[P]) ResolveAt(ctx context.Context, s RecordStore, propertyID string, at Date) ([]Fact[P], error) {
	recs, err := s.FactsActiveAt(ctx, propertyID, c.kind, at)
	if err != nil {
		return nil, err
	}
	return decodeFacts[P](recs)
}

// ResolveOverlapping bulk-prefetches every version whose span intersects
// [from, to]. Pair with ActiveOn for per-day resolution.
func (c Chain[P]) ResolveOverlapping(ctx context.Context, s RecordStore, propertyID string, from, to Date) ([]Fact[P], error) {
	recs, err := s.FactsOverlapping(ctx, propertyID, c.kind, from, to)
	if err != nil {
		return nil, err
	}
	return decodeFacts[P](recs)
}

// Modify closes the chain's current version one day before newStart and
// appends an open-ended successor carrying the new payload.
//
// Precondition: newStart must be strictly after the current version's
// start date (a nil start is always satisfiable). Violations return
// InvalidPeriodError.
//
// Two writes; run inside a transaction.
func (c Chain[P]) Modify(ctx context.Context, s RecordStore, id string, p P, newStart Date) (Fact[P], error) {
	ref, err := s.GetFact(ctx, id)
	if err != nil {
		return Fact[P]{}, err
	}
	root := ref.ChainRoot()
	cur, err := s.ChainCurrent(ctx, root)
	if err != nil {
		return Fact[P]{}, err
	}

	if cur.Start != nil && !newStart.After(*cur.Start) {
		return Fact[P]{}, &InvalidPeriodError{FactID: cur.ID, CurrentStart: cur.Start, NewStart: newStart}
	}

	rec, err := c.encode(cur.PropertyID, p, &newStart, nil, root)
	if err != nil {
		return Fact[P]{}, err
	}

	closed := newStart.AddDays(-1)
	if err := s.SetFactEnd(ctx, cur.ID, &closed); err != nil {
		return Fact[P]{}, err
	}
	if err := s.InsertFact(ctx, rec); err != nil {
		return Fact[P]{}, fmt.Errorf("append new version: %w", err)
	}
	return decodeFact[P](rec)
}

// Revert undoes the last modification: deletes the chain's newest version
// and reopens the one before it. Fails with ErrNoHistory when the chain
// has a single version; state is untouched in that case.
//
// Two writes; run inside a transaction.
func (c Chain[P]) Revert(ctx context.Context, s RecordStore, id string) (Fact[P], error) {
	ref, err := s.GetFact(ctx, id)
	if err != nil {
		return Fact[P]{}, err
	}
	versions, err := s.ChainVersions(ctx, ref.ChainRoot())
	if err != nil {
		return Fact[P]{}, err
	}
	if len(versions) < 2 {
		return Fact[P]{}, ErrNoHistory
	}

	// ChainVersions is ordered start ASC nulls first, so the last element
	// is the current version and the one before it is its predecessor.
	current := versions[len(versions)-1]
	previous := versions[len(versions)-2]

	if err := s.DeleteFact(ctx, current.ID); err != nil {
		return Fact[P]{}, err
	}
	if err := s.SetFactEnd(ctx, previous.ID, nil); err != nil {
		return Fact[P]{}, err
	}
	previous.End = nil
	return decodeFact[P](previous)
}

// History returns all versions of the chain in chronological order
// (start ascending, null first).
func (c Chain[P]) History(ctx context.Context, s RecordStore, id string) ([]Fact[P], error) {
	ref, err := s.GetFact(ctx, id)
	if err != nil {
		return nil, err
	}
	recs, err := s.ChainVersions(ctx, ref.ChainRoot())
	if err != nil {
		return nil, err
	}
	return decodeFacts[P](recs)
}

// Deactivate soft-deletes the whole concept: every version of the chain is
// flagged is_active = false. The chain structure stays intact so the
// history remains inspectable.
//
// One write per version; run inside a transaction.
func (c Chain[P]) Deactivate(ctx context.Context, s RecordStore, id string) error {
	ref, err := s.GetFact(ctx, id)
	if err != nil {
		return err
	}
	versions, err := s.ChainVersions(ctx, ref.ChainRoot())
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := s.SetFactActive(ctx, v.ID, false); err != nil {
			return err
		}
	}
	return nil
}
