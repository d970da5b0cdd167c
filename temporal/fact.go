/*
Package temporal provides the bi-temporal versioning engine.

PURPOSE:
  This package contains the domain-agnostic machinery for facts whose value
  changes over calendar time: a cost, a nightly base price, or any other
  per-property figure that must be resolvable "as it was on a given day",
  not just as it is now.

KEY CONCEPTS IN THIS FILE (fact.go):
  - Record: The untyped stored row (payload kept as raw JSON)
  - Payload: What domain packages implement to define a fact kind
  - Fact[P]: A typed view of a Record for a concrete payload type

VERSION CHAIN MODEL:
  A concept starts as a single version with start = end = nil ("since
  always"). A dated modification closes the current version one day before
  the new start and appends an open-ended successor pointing back at the
  chain root. At most one version per chain is open (end = nil) at any
  time; versions are disjoint and ordered by start date, nulls first.

DESIGN PRINCIPLES:
  1. One engine: costs and base prices share identical chain semantics,
     so they share one implementation parameterized by payload type.
  2. Precision: decimal payload values never pass through float64.
  3. The store is dumb: all chain rules live in chain.go, the store only
     persists rows and enforces the open-version uniqueness as a backstop.

SEE ALSO:
  - chain.go: Create/Modify/Revert/Resolve operations
  - store.go: Persistence interface
  - store/memory.go: In-memory store for tests
*/
package temporal

import (
	"encoding/json"
	"time"
)

// =============================================================================
// RECORD - Untyped stored version row
// =============================================================================

// Record is a single stored fact version. Payload stays opaque at this
// level; Chain[P] encodes and decodes it.
type Record struct {
	ID         string
	PropertyID string
	Kind       string
	Payload    json.RawMessage
	Active     bool

	// Temporal span. Nil Start means "since the beginning of time";
	// nil End means "still open" - the chain's current version.
	Start *Date
	End   *Date

	// RootID points at the first version of the concept. Empty on the
	// first version itself.
	RootID string

	CreatedAt time.Time
}

// ChainRoot returns the id of the chain's first version.
func (r Record) ChainRoot() string {
	if r.RootID != "" {
		return r.RootID
	}
	return r.ID
}

// IsCurrent reports whether this is the chain's open version.
func (r Record) IsCurrent() bool { return r.End == nil }

// ActiveOn reports whether the version's span covers the given day:
// (start is null or start <= d) and (end is null or end >= d).
func (r Record) ActiveOn(d Date) bool {
	if r.Start != nil && r.Start.After(d) {
		return false
	}
	if r.End != nil && r.End.Before(d) {
		return false
	}
	return true
}

// Overlaps reports whether the version's span intersects [from, to]
// (inclusive on both ends, open span sides count as unbounded).
func (r Record) Overlaps(from, to Date) bool {
	if r.Start != nil && r.Start.After(to) {
		return false
	}
	if r.End != nil && r.End.Before(from) {
		return false
	}
	return true
}

// =============================================================================
// PAYLOAD - What a fact kind must provide
// =============================================================================

// Payload is implemented by domain fact kinds (cost, base price).
// Kind must be stable: it is persisted and used to partition queries.
type Payload interface {
	Kind() string
	Validate() error
}

// =============================================================================
// FACT - Typed view of a record
// =============================================================================

// Fact is a Record with its payload decoded.
type Fact[P Payload] struct {
	ID         string
	PropertyID string
	Payload    P
	Active     bool
	Start      *Date
	End        *Date
	RootID     string
	CreatedAt  time.Time
}

// ChainRoot returns the id of the chain's first version.
func (f Fact[P]) ChainRoot() string {
	if f.RootID != "" {
		return f.RootID
	}
	return f.ID
}

// IsCurrent reports whether this is the chain's open version.
func (f Fact[P]) IsCurrent() bool { return f.End == nil }

// ActiveOn reports whether the version's span covers the given day.
func (f Fact[P]) ActiveOn(d Date) bool {
	if f.Start != nil && f.Start.After(d) {
		return false
	}
	if f.End != nil && f.End.Before(d) {
		return false
	}
	return true
}

func marshalPayload(p Payload) (json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeFact[P Payload](r Record) (Fact[P], error) {
	var p P
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return Fact[P]{}, err
	}
	return Fact[P]{
		ID:         r.ID,
		PropertyID: r.PropertyID,
		Payload:    p,
		Active:     r.Active,
		Start:      r.Start,
		End:        r.End,
		RootID:     r.RootID,
		CreatedAt:  r.CreatedAt,
	}, nil
}

func decodeFacts[P Payload](rs []Record) ([]Fact[P], error) {
	facts := make([]Fact[P], 0, len(rs))
	for _, r := range rs {
		f, err := decodeFact[P](r)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// ActiveOn filters prefetched facts down to the versions covering one day.
// This is the per-day resolution step behind calendar generation: one bulk
// FactsOverlapping query, then an in-memory filter per day.
func ActiveOn[P Payload](facts []Fact[P], d Date) []Fact[P] {
	var out []Fact[P]
	for _, f := range facts {
		if f.Active && f.ActiveOn(d) {
			out = append(out, f)
		}
	}
	return out
}
