/*
errors.go - Centralized error types for the versioning engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context; the HTTP layer
  classifies them into status codes via the helpers at the bottom.

ERROR CATEGORIES:
  1. Chain errors - Version-chain rule violations (InvalidPeriod, NoHistory)
  2. Lookup errors - Missing facts/records
  3. Store errors - Constraint violations translated by the store layer

USAGE:
  Domain packages test with errors.Is:

    if errors.Is(err, temporal.ErrNoHistory) {
        return &BadRequestError{...}
    }

SEE ALSO:
  - chain.go: Produces these errors
  - store/sqlite: Translates constraint violations into ErrConflict
*/
package temporal

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFactNotFound is returned when a referenced fact or chain does not exist.
	ErrFactNotFound = errors.New("fact not found")

	// ErrInvalidPeriod is returned when a modification's start date is not
	// strictly after the current version's start date.
	ErrInvalidPeriod = errors.New("invalid period: start date must be after current version start")

	// ErrNoHistory is returned when reverting a chain with fewer than two
	// versions. The chain is never mutated in that case.
	ErrNoHistory = errors.New("no history: chain has no modification to revert")

	// ErrConflict is the translation target for storage-level constraint
	// violations (e.g. a second open version racing past the application
	// check and hitting the partial unique index).
	ErrConflict = errors.New("conflict with existing record")

	// ErrInvalidDate is returned for malformed date input.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidPayload is returned when a fact payload fails validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidPeriodError reports a rejected Modify with both dates involved.
type InvalidPeriodError struct {
	FactID       string
	CurrentStart *Date
	NewStart     Date
}

func (e *InvalidPeriodError) Error() string {
	cur := "beginning of time"
	if e.CurrentStart != nil {
		cur = e.CurrentStart.String()
	}
	return fmt.Sprintf("invalid period for fact %s: new start %s is not after current start %s",
		e.FactID, e.NewStart, cur)
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidPeriod }

// PayloadError wraps a payload validation failure with the fact kind.
type PayloadError struct {
	Kind   string
	Reason error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Kind, e.Reason)
}

func (e *PayloadError) Unwrap() error { return ErrInvalidPayload }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFactNotFound)
}

// IsConflict returns true if the error indicates a uniqueness/overlap clash.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrNoHistory) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidPayload)
}
