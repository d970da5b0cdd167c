/*
Package rental implements the short-term-rental domain on top of the
temporal versioning engine.

PURPOSE:
  Bookings with a per-property non-overlap guarantee, cost and base-price
  chains with day-accurate resolution, date-bounded pricing rules, daily
  price calculation and monthly financial summaries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Property: the minimal record the engine consumes (avg stay, cached
    base price); full property management belongs to a collaborator
  - Booking: half-open [check_in, check_out) interval with a status
  - CostPayload / BasePricePayload: the two fact kinds on the chain engine
  - PricingRule: inclusive date range with a profitability percentage

INTERVAL SEMANTICS:
  Bookings are half-open: check_out is the first unoccupied day, two
  bookings may share a turnover day. Fact spans and pricing rules are
  inclusive on both ends. Don't mix the two.

SEE ALSO:
  - bookings.go: Interval guard and booking lifecycle
  - costs.go, baseprice.go: Chain-backed services
  - pricing.go: Daily price calculator
  - finance.go: Monthly summary aggregator
*/
package rental

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/domu/rental-engine/temporal"
)

// =============================================================================
// PROPERTY - External collaborator's record, read by the core
// =============================================================================

// Property is the slice of the property record the engine needs.
// BasePrice is a denormalized mirror of the chain's current base-price
// version - derived, never authoritative, kept in sync transactionally by
// the base-price service.
type Property struct {
	ID          string
	Name        string
	AvgStayDays int
	BasePrice   decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

// =============================================================================
// BOOKING - Half-open [check_in, check_out) occupancy interval
// =============================================================================

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingTentative BookingStatus = "TENTATIVE"
	BookingCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingTentative, BookingCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID         string
	PropertyID string
	GuestName  string
	Summary    string
	CheckIn    temporal.Date
	CheckOut   temporal.Date // exclusive: first unoccupied day
	Status     BookingStatus
	CreatedAt  time.Time
}

// Blocking reports whether the booking participates in the non-overlap
// invariant. Cancelled bookings stay on file for audit but stop blocking.
func (b Booking) Blocking() bool { return b.Status != BookingCancelled }

// Overlaps tests half-open interval intersection with [in, out):
// existing.check_in < out AND existing.check_out > in.
func (b Booking) Overlaps(in, out temporal.Date) bool {
	return b.CheckIn.Before(out) && b.CheckOut.After(in)
}

// Occupies reports whether the booking covers the given night.
func (b Booking) Occupies(d temporal.Date) bool {
	return b.CheckIn.BeforeOrEqual(d) && b.CheckOut.After(d)
}

// Nights returns the booking's length in nights.
func (b Booking) Nights() int { return temporal.DaysBetween(b.CheckIn, b.CheckOut) }

// =============================================================================
// COST - Fact payload for per-property running costs
// =============================================================================

type CostCategory string

const (
	CostRecurringMonthly CostCategory = "RECURRING_MONTHLY"
	CostRecurringDaily   CostCategory = "RECURRING_DAILY"
	CostPerReservation   CostCategory = "PER_RESERVATION"
)

func (c CostCategory) Valid() bool {
	switch c {
	case CostRecurringMonthly, CostRecurringDaily, CostPerReservation:
		return true
	}
	return false
}

type CostCalcType string

const (
	CostFixedAmount CostCalcType = "FIXED_AMOUNT"
	CostPercentage  CostCalcType = "PERCENTAGE"
)

func (c CostCalcType) Valid() bool {
	return c == CostFixedAmount || c == CostPercentage
}

// CostPayload is the versioned domain payload of a property cost.
// Percentage costs are commissions on revenue; fixed costs feed the
// floor-price calculation.
type CostPayload struct {
	Name     string          `json:"name"`
	Category CostCategory    `json:"category"`
	CalcType CostCalcType    `json:"calculation_type"`
	Value    decimal.Decimal `json:"value"`
}

const KindCost = "cost"

func (CostPayload) Kind() string { return KindCost }

func (p CostPayload) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if !p.Category.Valid() {
		return errors.New("unknown cost category")
	}
	if !p.CalcType.Valid() {
		return errors.New("unknown calculation type")
	}
	if !p.Value.IsPositive() {
		return errors.New("value must be greater than zero")
	}
	if p.CalcType == CostPercentage && p.Value.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("percentage value cannot exceed 100")
	}
	return nil
}

// =============================================================================
// BASE PRICE - Fact payload for the nightly gross price
// =============================================================================

// BasePricePayload is the versioned gross nightly price of a property.
type BasePricePayload struct {
	Value decimal.Decimal `json:"value"`
}

const KindBasePrice = "base_price"

func (BasePricePayload) Kind() string { return KindBasePrice }

func (p BasePricePayload) Validate() error {
	if !p.Value.IsPositive() {
		return errors.New("value must be greater than zero")
	}
	return nil
}

// Cost and BasePrice are the two concrete fact instances on the engine.
type (
	Cost      = temporal.Fact[CostPayload]
	BasePrice = temporal.Fact[BasePricePayload]
)

// =============================================================================
// PRICING RULE - Inclusive date range with a profitability percent
// =============================================================================

// PricingRule sets the profitability percentage for an inclusive date
// range: 0 sells at floor (zero profit), 100 at the full base price, and
// values above 100 are premium markup - not clamped.
type PricingRule struct {
	ID                   string
	PropertyID           string
	Name                 string
	Start                temporal.Date
	End                  temporal.Date // inclusive
	ProfitabilityPercent decimal.Decimal
	Priority             int
	CreatedAt            time.Time
}

// ActiveOn reports whether the rule covers the date (inclusive both ends).
func (r PricingRule) ActiveOn(d temporal.Date) bool {
	return r.Start.BeforeOrEqual(d) && r.End.AfterOrEqual(d)
}

// OverlapsRule tests inclusive range intersection with [start, end].
func (r PricingRule) OverlapsRule(start, end temporal.Date) bool {
	return r.Start.BeforeOrEqual(end) && r.End.AfterOrEqual(start)
}

func (r PricingRule) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.End.After(r.Start) {
		return errors.New("end date must be after start date")
	}
	if r.ProfitabilityPercent.IsNegative() {
		return errors.New("profitability percent cannot be negative")
	}
	return nil
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// RoundMoney rounds to 2 decimal places for currency display (half-up for
// the positive amounts money deals in). Aggregation keeps full precision
// and rounds at the output boundary only.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

var (
	hundred    = decimal.NewFromInt(100)
	thirtyDays = decimal.NewFromInt(30)
)
