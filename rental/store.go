/*
store.go - Persistence interface for the rental domain

PURPOSE:
  One store interface spanning properties, bookings, pricing rules and
  (via the embedded temporal.RecordStore) fact chains. Mutations that
  touch more than one table - the interval guard's check-then-insert, a
  base-price modify plus its property cache sync - run through WithTx so
  the invariant check and the write share one transaction.

CONCURRENCY CONTRACT:
  WithTx must serialize conflicting writers at the store level (row or
  database locking, or optimistic retry on constraint violation). Services
  never take their own locks: multiple process instances may run against
  the same database. Read-only paths use the plain methods and see a
  consistent snapshot.

IMPLEMENTATIONS:
  - store/sqlite: Production store (WAL, constraints, error translation)

SEE ALSO:
  - temporal/store.go: The embedded fact-record interface
*/
package rental

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/domu/rental-engine/temporal"
)

// Store is the domain's persistence surface. Fact-chain methods come from
// the embedded temporal.RecordStore.
type Store interface {
	temporal.RecordStore

	// Properties
	InsertProperty(ctx context.Context, p Property) error
	GetProperty(ctx context.Context, id string) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	// SetPropertyBasePrice refreshes the denormalized base-price mirror.
	SetPropertyBasePrice(ctx context.Context, id string, value decimal.Decimal) error

	// Bookings
	InsertBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	BookingsByProperty(ctx context.Context, propertyID string) ([]Booking, error)
	// BookingConflicts returns every non-cancelled booking on the property
	// whose half-open interval intersects [in, out), excluding excludeID
	// when non-empty.
	BookingConflicts(ctx context.Context, propertyID string, in, out temporal.Date, excludeID string) ([]Booking, error)
	// BookingsOverlapping returns every non-cancelled booking intersecting
	// the inclusive day range [from, to] (occupancy reads).
	BookingsOverlapping(ctx context.Context, propertyID string, from, to temporal.Date) ([]Booking, error)
	UpdateBooking(ctx context.Context, b Booking) error
	DeleteBooking(ctx context.Context, id string) error

	// Pricing rules
	InsertRule(ctx context.Context, r PricingRule) error
	GetRule(ctx context.Context, id string) (PricingRule, error)
	RulesByProperty(ctx context.Context, propertyID string) ([]PricingRule, error)
	// RulesOverlapping returns every rule intersecting the inclusive range
	// [start, end], excluding excludeID when non-empty.
	RulesOverlapping(ctx context.Context, propertyID string, start, end temporal.Date, excludeID string) ([]PricingRule, error)
	UpdateRule(ctx context.Context, r PricingRule) error
	DeleteRule(ctx context.Context, id string) error
}

// TxStore is a Store that can run a closure inside one transaction.
// The Store handed to fn is bound to that transaction; returning an error
// rolls everything back, as does context cancellation.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
