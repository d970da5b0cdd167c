/*
store.go - Persistence interface for fact records

PURPOSE:
  Defines the interface between the versioning engine and the database.
  Implementations persist rows; the chain rules themselves live in
  chain.go and run the same against any implementation.

TRANSACTION MODEL:
  This package deliberately has no transaction type of its own. Chain
  operations take the store as a parameter, so callers that need atomicity
  (Modify closes one row and inserts another; Revert deletes one row and
  reopens another) run them inside their own transaction and pass the
  tx-bound store in. The domain layer owns the transaction boundary
  because its mutations usually span more than facts (e.g. the cached
  base price on the property row).

BACKSTOP CONSTRAINT:
  Implementations should enforce "at most one open version per chain" at
  the storage level where possible (SQLite: partial unique index on
  COALESCE(root_id, id) WHERE end_date IS NULL) and surface violations as
  ErrConflict. The application-level check in chain.go closes the common
  path; the constraint closes the race.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store (shared with the domain tables)
  - temporal/store: In-memory store for engine tests

SEE ALSO:
  - chain.go: The operations running on top of this interface
*/
package temporal

import "context"

// RecordStore persists fact version rows. Method names carry the Fact/Chain
// prefix so one concrete store can implement this alongside the domain
// store interfaces.
type RecordStore interface {
	// InsertFact persists a new version row.
	InsertFact(ctx context.Context, r Record) error

	// GetFact returns a version row by id, or ErrFactNotFound.
	GetFact(ctx context.Context, id string) (Record, error)

	// CurrentFacts returns the open (end IS NULL), active version of every
	// chain of the kind on the property.
	CurrentFacts(ctx context.Context, propertyID, kind string) ([]Record, error)

	// ChainCurrent returns the chain's open, active version, or ErrFactNotFound.
	ChainCurrent(ctx context.Context, rootID string) (Record, error)

	// FactsActiveAt returns, for every chain of the kind on the property,
	// the active version whose span covers the date. At most one row per
	// chain when the open-version invariant holds.
	FactsActiveAt(ctx context.Context, propertyID, kind string, at Date) ([]Record, error)

	// FactsOverlapping returns every active version (any chain of the kind)
	// whose span intersects [from, to]. Bulk prefetch for day-by-day
	// resolution without one query per day.
	FactsOverlapping(ctx context.Context, propertyID, kind string, from, to Date) ([]Record, error)

	// ChainVersions returns all versions of the chain ordered by start date
	// ascending with null first - the chain's canonical chronological order.
	ChainVersions(ctx context.Context, rootID string) ([]Record, error)

	// SetFactEnd updates a version's end date (nil reopens it).
	SetFactEnd(ctx context.Context, id string, end *Date) error

	// SetFactActive flips a version's soft-delete flag.
	SetFactActive(ctx context.Context, id string, active bool) error

	// DeleteFact removes a version row outright. Only Revert uses this.
	DeleteFact(ctx context.Context, id string) error
}
