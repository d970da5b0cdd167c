/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements rental.TxStore (properties, bookings, pricing rules and the
  embedded fact-record store) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  temporal.RecordStore: Fact version rows (cost and base-price chains)
  rental.Store:         Properties, bookings, pricing rules
  rental.TxStore:       Transactional closure over all of the above

KEY TABLES:
  properties:    Property records with the denormalized base price
  bookings:      Half-open [check_in, check_out) occupancy intervals
  pricing_rules: Inclusive seasonal profitability ranges
  facts:         Versioned fact rows shared by all chain kinds

CONSTRAINTS:
  - idx_facts_one_open: At most one open version (end_date IS NULL) per
    chain. The application closes the current version before appending;
    this index closes the race between concurrent writers.
  - bookings CHECK (check_in < check_out) and pricing_rules
    CHECK (start_date <= end_date) reject malformed rows that slip past
    validation.
  Violations surface as temporal.ErrConflict.

DATE AND MONEY ENCODING:
  Calendar dates are stored as TEXT 'YYYY-MM-DD' so SQLite's lexicographic
  comparison matches chronological order. Decimal amounts are stored as
  TEXT and parsed with shopspring/decimal - never through float64.
  Timestamps are RFC3339 TEXT.

CONCURRENCY:
  WithTx takes the store's write lock for the whole transaction, so
  conflicting check-then-insert sequences (the booking interval guard, the
  chain open-version handoff) serialize in-process. The tx-bound store
  runs its statements directly on the *sql.Tx and never re-enters the
  parent's locks. WAL mode keeps readers unblocked meanwhile.

USAGE:
  store, err := sqlite.New("./data/rental.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - rental/store.go: Interface definitions
  - temporal/store.go: Fact-record interface and its backstop contract
  - temporal/store/memory.go: In-memory record store for engine tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/domu/rental-engine/rental"
	"github.com/domu/rental-engine/temporal"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so every
// statement can run either standalone or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements rental.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Properties
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		avg_stay_days INTEGER NOT NULL DEFAULT 0,
		base_price TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Bookings ([check_in, check_out) half-open)
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		guest_name TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		check_in TEXT NOT NULL,
		check_out TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CHECK (check_in < check_out)
	);

	-- The interval guard's lookup (hot path)
	CREATE INDEX IF NOT EXISTS idx_bookings_property_dates
		ON bookings(property_id, check_in, check_out);
	CREATE INDEX IF NOT EXISTS idx_bookings_status
		ON bookings(status);

	-- Pricing rules ([start_date, end_date] inclusive)
	CREATE TABLE IF NOT EXISTS pricing_rules (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		profitability_percent TEXT NOT NULL DEFAULT '100',
		priority INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		CHECK (start_date <= end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_rules_property_dates
		ON pricing_rules(property_id, start_date, end_date);

	-- Fact version rows (all chain kinds share this table)
	CREATE TABLE IF NOT EXISTS facts (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date TEXT,
		end_date TEXT,
		root_id TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one open version per chain. The chain identity is
	-- root_id for successors and the row's own id for the first version.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_facts_one_open
		ON facts(COALESCE(root_id, id))
		WHERE end_date IS NULL;

	-- Point-in-time resolution (hot path)
	CREATE INDEX IF NOT EXISTS idx_facts_property_kind_dates
		ON facts(property_id, kind, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_facts_root
		ON facts(root_id) WHERE root_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FACT RECORD STORE (temporal.RecordStore interface)
// =============================================================================

const factColumns = `id, property_id, kind, payload_json, is_active, start_date, end_date, root_id, created_at`

// InsertFact persists a new version row.
func (s *Store) InsertFact(ctx context.Context, r temporal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertFact(ctx, s.db, r)
}

func insertFact(ctx context.Context, q dbtx, r temporal.Record) error {
	query := `
		INSERT INTO facts (` + factColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		r.ID,
		r.PropertyID,
		r.Kind,
		string(r.Payload),
		r.Active,
		nullDate(r.Start),
		nullDate(r.End),
		nullString(r.RootID),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return temporal.ErrConflict
		}
		return fmt.Errorf("failed to insert fact: %w", err)
	}
	return nil
}

// GetFact returns a version row by id.
func (s *Store) GetFact(ctx context.Context, id string) (temporal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getFact(ctx, s.db, id)
}

func getFact(ctx context.Context, q dbtx, id string) (temporal.Record, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id = ?`, id)
	rec, err := scanFact(row)
	if err == sql.ErrNoRows {
		return temporal.Record{}, temporal.ErrFactNotFound
	}
	return rec, err
}

// CurrentFacts returns the open, active version of every chain of the kind
// on the property.
func (s *Store) CurrentFacts(ctx context.Context, propertyID, kind string) ([]temporal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return currentFacts(ctx, s.db, propertyID, kind)
}

func currentFacts(ctx context.Context, q dbtx, propertyID, kind string) ([]temporal.Record, error) {
	query := `
		SELECT ` + factColumns + ` FROM facts
		WHERE property_id = ? AND kind = ?
		  AND end_date IS NULL AND is_active = TRUE
		ORDER BY created_at ASC, id ASC
	`
	return queryFacts(ctx, q, query, propertyID, kind)
}

// ChainCurrent returns the chain's open, active version.
func (s *Store) ChainCurrent(ctx context.Context, rootID string) (temporal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chainCurrent(ctx, s.db, rootID)
}

func chainCurrent(ctx context.Context, q dbtx, rootID string) (temporal.Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+factColumns+` FROM facts
		WHERE (root_id = ? OR id = ?)
		  AND end_date IS NULL AND is_active = TRUE
	`, rootID, rootID)
	rec, err := scanFact(row)
	if err == sql.ErrNoRows {
		return temporal.Record{}, temporal.ErrFactNotFound
	}
	return rec, err
}

// FactsActiveAt returns the versions whose spans cover the given day.
func (s *Store) FactsActiveAt(ctx context.Context, propertyID, kind string, at temporal.Date) ([]temporal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return factsActiveAt(ctx, s.db, propertyID, kind, at)
}

func factsActiveAt(ctx context.Context, q dbtx, propertyID, kind string, at temporal.Date) ([]temporal.Record, error) {
	query := `
		SELECT ` + factColumns + ` FROM facts
		WHERE property_id = ? AND kind = ? AND is_active = TRUE
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY created_at ASC, id ASC
	`
	day := at.String()
	return queryFacts(ctx, q, query, propertyID, kind, day, day)
}

// FactsOverlapping returns every active version intersecting [from, to].
func (s *Store) FactsOverlapping(ctx context.Context, propertyID, kind string, from, to temporal.Date) ([]temporal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return factsOverlapping(ctx, s.db, propertyID, kind, from, to)
}

func factsOverlapping(ctx context.Context, q dbtx, propertyID, kind string, from, to temporal.Date) ([]temporal.Record, error) {
	query := `
		SELECT ` + factColumns + ` FROM facts
		WHERE property_id = ? AND kind = ? AND is_active = TRUE
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY created_at ASC, id ASC
	`
	return queryFacts(ctx, q, query, propertyID, kind, to.String(), from.String())
}

// ChainVersions returns all versions of the chain, start ascending with
// null first.
func (s *Store) ChainVersions(ctx context.Context, rootID string) ([]temporal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chainVersions(ctx, s.db, rootID)
}

func chainVersions(ctx context.Context, q dbtx, rootID string) ([]temporal.Record, error) {
	query := `
		SELECT ` + factColumns + ` FROM facts
		WHERE root_id = ? OR id = ?
		ORDER BY (start_date IS NOT NULL) ASC, start_date ASC, created_at ASC
	`
	return queryFacts(ctx, q, query, rootID, rootID)
}

// SetFactEnd updates a version's end date (nil reopens it).
func (s *Store) SetFactEnd(ctx context.Context, id string, end *temporal.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setFactEnd(ctx, s.db, id, end)
}

func setFactEnd(ctx context.Context, q dbtx, id string, end *temporal.Date) error {
	res, err := q.ExecContext(ctx,
		`UPDATE facts SET end_date = ? WHERE id = ?`, nullDate(end), id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return temporal.ErrConflict
		}
		return fmt.Errorf("failed to update fact end date: %w", err)
	}
	return requireRow(res, temporal.ErrFactNotFound)
}

// SetFactActive flips a version's soft-delete flag.
func (s *Store) SetFactActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setFactActive(ctx, s.db, id, active)
}

func setFactActive(ctx context.Context, q dbtx, id string, active bool) error {
	res, err := q.ExecContext(ctx,
		`UPDATE facts SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update fact active flag: %w", err)
	}
	return requireRow(res, temporal.ErrFactNotFound)
}

// DeleteFact removes a version row outright.
func (s *Store) DeleteFact(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteFact(ctx, s.db, id)
}

func deleteFact(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fact: %w", err)
	}
	return requireRow(res, temporal.ErrFactNotFound)
}

func queryFacts(ctx context.Context, q dbtx, query string, args ...any) ([]temporal.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var records []temporal.Record
	for rows.Next() {
		rec, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (temporal.Record, error) {
	var (
		rec       temporal.Record
		payload   string
		start     sql.NullString
		end       sql.NullString
		rootID    sql.NullString
		createdAt string
	)

	err := row.Scan(
		&rec.ID, &rec.PropertyID, &rec.Kind, &payload, &rec.Active,
		&start, &end, &rootID, &createdAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Payload = json.RawMessage(payload)
	rec.Start, err = parseNullDate(start)
	if err != nil {
		return rec, err
	}
	rec.End, err = parseNullDate(end)
	if err != nil {
		return rec, err
	}
	rec.RootID = rootID.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return rec, nil
}

// =============================================================================
// PROPERTY STORE
// =============================================================================

// InsertProperty saves a new property.
func (s *Store) InsertProperty(ctx context.Context, p rental.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertProperty(ctx, s.db, p)
}

func insertProperty(ctx context.Context, q dbtx, p rental.Property) error {
	query := `
		INSERT INTO properties (id, name, avg_stay_days, base_price, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		p.ID, p.Name, p.AvgStayDays, p.BasePrice.String(), p.Active,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return temporal.ErrConflict
		}
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

// GetProperty retrieves a property by ID.
func (s *Store) GetProperty(ctx context.Context, id string) (rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProperty(ctx, s.db, id)
}

func getProperty(ctx context.Context, q dbtx, id string) (rental.Property, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, avg_stay_days, base_price, is_active, created_at
		FROM properties WHERE id = ?
	`, id)

	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return rental.Property{}, rental.ErrPropertyNotFound
	}
	return p, err
}

// ListProperties returns all properties ordered by name.
func (s *Store) ListProperties(ctx context.Context) ([]rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProperties(ctx, s.db)
}

func listProperties(ctx context.Context, q dbtx) ([]rental.Property, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, avg_stay_days, base_price, is_active, created_at
		FROM properties ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []rental.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// SetPropertyBasePrice refreshes the denormalized base-price mirror.
func (s *Store) SetPropertyBasePrice(ctx context.Context, id string, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setPropertyBasePrice(ctx, s.db, id, value)
}

func setPropertyBasePrice(ctx context.Context, q dbtx, id string, value decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		`UPDATE properties SET base_price = ? WHERE id = ?`, value.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update property base price: %w", err)
	}
	return requireRow(res, rental.ErrPropertyNotFound)
}

func scanProperty(row rowScanner) (rental.Property, error) {
	var (
		p         rental.Property
		basePrice string
		createdAt string
	)
	err := row.Scan(&p.ID, &p.Name, &p.AvgStayDays, &basePrice, &p.Active, &createdAt)
	if err != nil {
		return p, err
	}

	p.BasePrice, err = decimal.NewFromString(basePrice)
	if err != nil {
		return p, fmt.Errorf("failed to parse base price: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// =============================================================================
// BOOKING STORE
// =============================================================================

const bookingColumns = `id, property_id, guest_name, summary, check_in, check_out, status, created_at`

// InsertBooking saves a new booking.
func (s *Store) InsertBooking(ctx context.Context, b rental.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBooking(ctx, s.db, b)
}

func insertBooking(ctx context.Context, q dbtx, b rental.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		b.ID, b.PropertyID, b.GuestName, b.Summary,
		b.CheckIn.String(), b.CheckOut.String(), string(b.Status),
		b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (rental.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBooking(ctx, s.db, id)
}

func getBooking(ctx context.Context, q dbtx, id string) (rental.Booking, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return rental.Booking{}, rental.ErrBookingNotFound
	}
	return b, err
}

// BookingsByProperty returns all bookings of a property, cancelled
// included, ordered by check-in.
func (s *Store) BookingsByProperty(ctx context.Context, propertyID string) ([]rental.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bookingsByProperty(ctx, s.db, propertyID)
}

func bookingsByProperty(ctx context.Context, q dbtx, propertyID string) ([]rental.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE property_id = ?
		ORDER BY check_in ASC, created_at ASC
	`
	return queryBookings(ctx, q, query, propertyID)
}

// BookingConflicts returns every non-cancelled booking intersecting the
// half-open interval [in, out), excluding excludeID when non-empty.
func (s *Store) BookingConflicts(ctx context.Context, propertyID string, in, out temporal.Date, excludeID string) ([]rental.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bookingConflicts(ctx, s.db, propertyID, in, out, excludeID)
}

func bookingConflicts(ctx context.Context, q dbtx, propertyID string, in, out temporal.Date, excludeID string) ([]rental.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE property_id = ? AND status != 'CANCELLED'
		  AND check_in < ? AND check_out > ?
	`
	args := []any{propertyID, out.String(), in.String()}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY check_in ASC`

	return queryBookings(ctx, q, query, args...)
}

// BookingsOverlapping returns every non-cancelled booking occupying at
// least one night in the inclusive day range [from, to].
func (s *Store) BookingsOverlapping(ctx context.Context, propertyID string, from, to temporal.Date) ([]rental.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bookingsOverlapping(ctx, s.db, propertyID, from, to)
}

func bookingsOverlapping(ctx context.Context, q dbtx, propertyID string, from, to temporal.Date) ([]rental.Booking, error) {
	// A booking occupies nights [check_in, check_out), so it touches the
	// range when check_in <= to and check_out > from.
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE property_id = ? AND status != 'CANCELLED'
		  AND check_in <= ? AND check_out > ?
		ORDER BY check_in ASC
	`
	return queryBookings(ctx, q, query, propertyID, to.String(), from.String())
}

// UpdateBooking rewrites a booking row.
func (s *Store) UpdateBooking(ctx context.Context, b rental.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBooking(ctx, s.db, b)
}

func updateBooking(ctx context.Context, q dbtx, b rental.Booking) error {
	query := `
		UPDATE bookings
		SET guest_name = ?, summary = ?, check_in = ?, check_out = ?, status = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		b.GuestName, b.Summary, b.CheckIn.String(), b.CheckOut.String(),
		string(b.Status), b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return requireRow(res, rental.ErrBookingNotFound)
}

// DeleteBooking removes a booking row.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBooking(ctx, s.db, id)
}

func deleteBooking(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return requireRow(res, rental.ErrBookingNotFound)
}

func queryBookings(ctx context.Context, q dbtx, query string, args ...any) ([]rental.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []rental.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (rental.Booking, error) {
	var (
		b         rental.Booking
		checkIn   string
		checkOut  string
		status    string
		createdAt string
	)
	err := row.Scan(&b.ID, &b.PropertyID, &b.GuestName, &b.Summary,
		&checkIn, &checkOut, &status, &createdAt)
	if err != nil {
		return b, err
	}

	b.CheckIn, err = temporal.ParseDate(checkIn)
	if err != nil {
		return b, err
	}
	b.CheckOut, err = temporal.ParseDate(checkOut)
	if err != nil {
		return b, err
	}
	b.Status = rental.BookingStatus(status)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return b, nil
}

// =============================================================================
// PRICING RULE STORE
// =============================================================================

const ruleColumns = `id, property_id, name, start_date, end_date, profitability_percent, priority, created_at`

// InsertRule saves a new pricing rule.
func (s *Store) InsertRule(ctx context.Context, r rental.PricingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRule(ctx, s.db, r)
}

func insertRule(ctx context.Context, q dbtx, r rental.PricingRule) error {
	query := `
		INSERT INTO pricing_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		r.ID, r.PropertyID, r.Name, r.Start.String(), r.End.String(),
		r.ProfitabilityPercent.String(), r.Priority,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pricing rule: %w", err)
	}
	return nil
}

// GetRule retrieves a pricing rule by ID.
func (s *Store) GetRule(ctx context.Context, id string) (rental.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRule(ctx, s.db, id)
}

func getRule(ctx context.Context, q dbtx, id string) (rental.PricingRule, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return rental.PricingRule{}, rental.ErrRuleNotFound
	}
	return r, err
}

// RulesByProperty returns all rules of a property ordered by start date.
func (s *Store) RulesByProperty(ctx context.Context, propertyID string) ([]rental.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rulesByProperty(ctx, s.db, propertyID)
}

func rulesByProperty(ctx context.Context, q dbtx, propertyID string) ([]rental.PricingRule, error) {
	query := `
		SELECT ` + ruleColumns + ` FROM pricing_rules
		WHERE property_id = ?
		ORDER BY start_date ASC, created_at ASC
	`
	return queryRules(ctx, q, query, propertyID)
}

// RulesOverlapping returns every rule intersecting the inclusive range
// [start, end], excluding excludeID when non-empty.
func (s *Store) RulesOverlapping(ctx context.Context, propertyID string, start, end temporal.Date, excludeID string) ([]rental.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rulesOverlapping(ctx, s.db, propertyID, start, end, excludeID)
}

func rulesOverlapping(ctx context.Context, q dbtx, propertyID string, start, end temporal.Date, excludeID string) ([]rental.PricingRule, error) {
	query := `
		SELECT ` + ruleColumns + ` FROM pricing_rules
		WHERE property_id = ?
		  AND start_date <= ? AND end_date >= ?
	`
	args := []any{propertyID, end.String(), start.String()}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY start_date ASC`

	return queryRules(ctx, q, query, args...)
}

// UpdateRule rewrites a pricing rule row.
func (s *Store) UpdateRule(ctx context.Context, r rental.PricingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRule(ctx, s.db, r)
}

func updateRule(ctx context.Context, q dbtx, r rental.PricingRule) error {
	query := `
		UPDATE pricing_rules
		SET name = ?, start_date = ?, end_date = ?, profitability_percent = ?, priority = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		r.Name, r.Start.String(), r.End.String(),
		r.ProfitabilityPercent.String(), r.Priority, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pricing rule: %w", err)
	}
	return requireRow(res, rental.ErrRuleNotFound)
}

// DeleteRule removes a pricing rule row.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRule(ctx, s.db, id)
}

func deleteRule(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM pricing_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}
	return requireRow(res, rental.ErrRuleNotFound)
}

func queryRules(ctx context.Context, q dbtx, query string, args ...any) ([]rental.PricingRule, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []rental.PricingRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (rental.PricingRule, error) {
	var (
		r         rental.PricingRule
		start     string
		end       string
		percent   string
		createdAt string
	)
	err := row.Scan(&r.ID, &r.PropertyID, &r.Name, &start, &end,
		&percent, &r.Priority, &createdAt)
	if err != nil {
		return r, err
	}

	r.Start, err = temporal.ParseDate(start)
	if err != nil {
		return r, err
	}
	r.End, err = temporal.ParseDate(end)
	if err != nil {
		return r, err
	}
	r.ProfitabilityPercent, err = decimal.NewFromString(percent)
	if err != nil {
		return r, fmt.Errorf("failed to parse profitability percent: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

// =============================================================================
// TRANSACTIONAL STORE (rental.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The write lock
// is held for the whole transaction so check-then-insert sequences
// serialize; the tx-bound store runs directly on the *sql.Tx and never
// takes the parent's locks.
func (s *Store) WithTx(ctx context.Context, fn func(store rental.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore is the transaction-bound Store handed to WithTx closures.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertFact(ctx context.Context, r temporal.Record) error {
	return insertFact(ctx, ts.tx, r)
}

func (ts *txStore) GetFact(ctx context.Context, id string) (temporal.Record, error) {
	return getFact(ctx, ts.tx, id)
}

func (ts *txStore) CurrentFacts(ctx context.Context, propertyID, kind string) ([]temporal.Record, error) {
	return currentFacts(ctx, ts.tx, propertyID, kind)
}

func (ts *txStore) ChainCurrent(ctx context.Context, rootID string) (temporal.Record, error) {
	return chainCurrent(ctx, ts.tx, rootID)
}

func (ts *txStore) FactsActiveAt(ctx context.Context, propertyID, kind string, at temporal.Date) ([]temporal.Record, error) {
	return factsActiveAt(ctx, ts.tx, propertyID, kind, at)
}

func (ts *txStore) FactsOverlapping(ctx context.Context, propertyID, kind string, from, to temporal.Date) ([]temporal.Record, error) {
	return factsOverlapping(ctx, ts.tx, propertyID, kind, from, to)
}

func (ts *txStore) ChainVersions(ctx context.Context, rootID string) ([]temporal.Record, error) {
	return chainVersions(ctx, ts.tx, rootID)
}

func (ts *txStore) SetFactEnd(ctx context.Context, id string, end *temporal.Date) error {
	return setFactEnd(ctx, ts.tx, id, end)
}

func (ts *txStore) SetFactActive(ctx context.Context, id string, active bool) error {
	return setFactActive(ctx, ts.tx, id, active)
}

func (ts *txStore) DeleteFact(ctx context.Context, id string) error {
	return deleteFact(ctx, ts.tx, id)
}

func (ts *txStore) InsertProperty(ctx context.Context, p rental.Property) error {
	return insertProperty(ctx, ts.tx, p)
}

func (ts *txStore) GetProperty(ctx context.Context, id string) (rental.Property, error) {
	return getProperty(ctx, ts.tx, id)
}

func (ts *txStore) ListProperties(ctx context.Context) ([]rental.Property, error) {
	return listProperties(ctx, ts.tx)
}

func (ts *txStore) SetPropertyBasePrice(ctx context.Context, id string, value decimal.Decimal) error {
	return setPropertyBasePrice(ctx, ts.tx, id, value)
}

func (ts *txStore) InsertBooking(ctx context.Context, b rental.Booking) error {
	return insertBooking(ctx, ts.tx, b)
}

func (ts *txStore) GetBooking(ctx context.Context, id string) (rental.Booking, error) {
	return getBooking(ctx, ts.tx, id)
}

func (ts *txStore) BookingsByProperty(ctx context.Context, propertyID string) ([]rental.Booking, error) {
	return bookingsByProperty(ctx, ts.tx, propertyID)
}

func (ts *txStore) BookingConflicts(ctx context.Context, propertyID string, in, out temporal.Date, excludeID string) ([]rental.Booking, error) {
	return bookingConflicts(ctx, ts.tx, propertyID, in, out, excludeID)
}

func (ts *txStore) BookingsOverlapping(ctx context.Context, propertyID string, from, to temporal.Date) ([]rental.Booking, error) {
	return bookingsOverlapping(ctx, ts.tx, propertyID, from, to)
}

func (ts *txStore) UpdateBooking(ctx context.Context, b rental.Booking) error {
	return updateBooking(ctx, ts.tx, b)
}

func (ts *txStore) DeleteBooking(ctx context.Context, id string) error {
	return deleteBooking(ctx, ts.tx, id)
}

func (ts *txStore) InsertRule(ctx context.Context, r rental.PricingRule) error {
	return insertRule(ctx, ts.tx, r)
}

func (ts *txStore) GetRule(ctx context.Context, id string) (rental.PricingRule, error) {
	return getRule(ctx, ts.tx, id)
}

func (ts *txStore) RulesByProperty(ctx context.Context, propertyID string) ([]rental.PricingRule, error) {
	return rulesByProperty(ctx, ts.tx, propertyID)
}

func (ts *txStore) RulesOverlapping(ctx context.Context, propertyID string, start, end temporal.Date, excludeID string) ([]rental.PricingRule, error) {
	return rulesOverlapping(ctx, ts.tx, propertyID, start, end, excludeID)
}

func (ts *txStore) UpdateRule(ctx context.Context, r rental.PricingRule) error {
	return updateRule(ctx, ts.tx, r)
}

func (ts *txStore) DeleteRule(ctx context.Context, id string) error {
	return deleteRule(ctx, ts.tx, id)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"bookings", "pricing_rules", "facts", "properties"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *temporal.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*temporal.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := temporal.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
