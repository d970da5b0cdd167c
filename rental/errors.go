package rental

import (
	"errors"
	"fmt"

	"github.com/domu/rental-engine/temporal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPropertyNotFound is returned when a referenced property doesn't exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrRuleNotFound is returned when a referenced pricing rule doesn't exist.
	ErrRuleNotFound = errors.New("pricing rule not found")

	// ErrBookingConflict is returned when a booking's dates overlap a
	// non-cancelled booking on the same property.
	ErrBookingConflict = errors.New("booking dates conflict with an existing booking")

	// ErrRuleOverlap is returned when a pricing rule's inclusive range
	// overlaps another rule on the same property.
	ErrRuleOverlap = errors.New("pricing rule dates overlap an existing rule")

	// ErrInvalidDates is returned when check_in is not before check_out.
	ErrInvalidDates = errors.New("check-in date must be before check-out date")

	// ErrInvalidRule wraps pricing rule validation failures.
	ErrInvalidRule = errors.New("invalid pricing rule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BookingConflictError lists the bookings blocking a create or update.
type BookingConflictError struct {
	PropertyID string
	CheckIn    temporal.Date
	CheckOut   temporal.Date
	Conflicts  []Booking
}

func (e *BookingConflictError) Error() string {
	return fmt.Sprintf("dates [%s, %s) on property %s conflict with %d existing booking(s)",
		e.CheckIn, e.CheckOut, e.PropertyID, len(e.Conflicts))
}

func (e *BookingConflictError) Unwrap() error { return ErrBookingConflict }

// RuleOverlapError lists the rules blocking a create or update.
type RuleOverlapError struct {
	PropertyID string
	Start      temporal.Date
	End        temporal.Date
	Overlaps   []PricingRule
}

func (e *RuleOverlapError) Error() string {
	return fmt.Sprintf("rule range [%s, %s] on property %s overlaps %d existing rule(s)",
		e.Start, e.End, e.PropertyID, len(e.Overlaps))
}

func (e *RuleOverlapError) Unwrap() error { return ErrRuleOverlap }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		temporal.IsNotFound(err)
}

// IsConflict returns true for overlap violations, whether caught by the
// application check or translated from a storage constraint.
func IsConflict(err error) bool {
	return errors.Is(err, ErrBookingConflict) ||
		errors.Is(err, ErrRuleOverlap) ||
		temporal.IsConflict(err)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDates) ||
		errors.Is(err, ErrInvalidRule) ||
		temporal.IsClientError(err)
}
