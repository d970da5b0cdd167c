/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATE AND MONEY FORMAT:
  Calendar dates cross the wire as 'YYYY-MM-DD' strings. Monetary amounts
  cross as decimal strings ("84.50"), never JSON numbers, so clients with
  exact-decimal support lose nothing.

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run them
  through the shared validator before touching domain logic. Date strings
  are parsed (and rejected) separately because their validity depends on
  the calendar, not the shape.

SEE ALSO:
  - handlers.go: Uses these types
  - rental/types.go: The domain types these mirror
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/domu/rental-engine/rental"
	"github.com/domu/rental-engine/temporal"
)

// validate is the shared request validator.
var validate = validator.New()

// =============================================================================
// PROPERTY TYPES
// =============================================================================

// PropertyDTO represents a property in API responses.
type PropertyDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvgStayDays int    `json:"avg_stay_days"`
	BasePrice   string `json:"base_price"`
	Active      bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreatePropertyRequest is the request to create a property.
type CreatePropertyRequest struct {
	Name        string `json:"name" validate:"required"`
	AvgStayDays int    `json:"avg_stay_days" validate:"gte=0"`
	BasePrice   string `json:"base_price" validate:"required"`
}

// =============================================================================
// BOOKING TYPES
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	GuestName  string `json:"guest_name"`
	Summary    string `json:"summary,omitempty"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreateBookingRequest is the request to create a booking.
type CreateBookingRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
	GuestName  string `json:"guest_name"`
	Summary    string `json:"summary"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	Status     string `json:"status" validate:"omitempty,oneof=CONFIRMED TENTATIVE CANCELLED"`
}

// UpdateBookingRequest patches a booking. Absent fields stay unchanged.
type UpdateBookingRequest struct {
	GuestName *string `json:"guest_name,omitempty"`
	Summary   *string `json:"summary,omitempty"`
	CheckIn   *string `json:"check_in,omitempty"`
	CheckOut  *string `json:"check_out,omitempty"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=CONFIRMED TENTATIVE CANCELLED"`
}

// =============================================================================
// COST TYPES
// =============================================================================

// CostDTO represents one cost version in API responses.
type CostDTO struct {
	ID              string  `json:"id"`
	PropertyID      string  `json:"property_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	CalculationType string  `json:"calculation_type"`
	Value           string  `json:"value"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	RootID          string  `json:"root_id,omitempty"`
	Current         bool    `json:"is_current"`
	Active          bool    `json:"is_active"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// CreateCostRequest is the request to create a cost.
type CreateCostRequest struct {
	Name            string `json:"name" validate:"required"`
	Category        string `json:"category" validate:"required,oneof=RECURRING_MONTHLY RECURRING_DAILY PER_RESERVATION"`
	CalculationType string `json:"calculation_type" validate:"required,oneof=FIXED_AMOUNT PERCENTAGE"`
	Value           string `json:"value" validate:"required"`
}

// ModifyCostRequest is the request to apply a dated modification.
type ModifyCostRequest struct {
	StartDate       string `json:"start_date" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Category        string `json:"category" validate:"required,oneof=RECURRING_MONTHLY RECURRING_DAILY PER_RESERVATION"`
	CalculationType string `json:"calculation_type" validate:"required,oneof=FIXED_AMOUNT PERCENTAGE"`
	Value           string `json:"value" validate:"required"`
}

// =============================================================================
// BASE PRICE TYPES
// =============================================================================

// BasePriceDTO represents one base-price version in API responses.
type BasePriceDTO struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"property_id"`
	Value      string  `json:"value"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	Current    bool    `json:"is_current"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// ModifyBasePriceRequest is the request to apply a dated base-price change.
type ModifyBasePriceRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	Value     string `json:"value" validate:"required"`
}

// =============================================================================
// PRICING RULE TYPES
// =============================================================================

// PricingRuleDTO represents a pricing rule in API responses.
type PricingRuleDTO struct {
	ID                   string `json:"id"`
	PropertyID           string `json:"property_id"`
	Name                 string `json:"name"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	ProfitabilityPercent string `json:"profitability_percent"`
	Priority             int    `json:"priority"`
	CreatedAt            string `json:"created_at,omitempty"`
}

// CreatePricingRuleRequest is the request to create a pricing rule.
type CreatePricingRuleRequest struct {
	Name                 string  `json:"name" validate:"required"`
	StartDate            string  `json:"start_date" validate:"required"`
	EndDate              string  `json:"end_date" validate:"required"`
	ProfitabilityPercent *string `json:"profitability_percent,omitempty"`
	Priority             int     `json:"priority"`
}

// UpdatePricingRuleRequest patches a pricing rule.
type UpdatePricingRuleRequest struct {
	Name                 *string `json:"name,omitempty"`
	StartDate            *string `json:"start_date,omitempty"`
	EndDate              *string `json:"end_date,omitempty"`
	ProfitabilityPercent *string `json:"profitability_percent,omitempty"`
	Priority             *int    `json:"priority,omitempty"`
}

// =============================================================================
// CALENDAR AND FINANCE TYPES
// =============================================================================

// CalendarDayDTO is one priced night in a calendar response.
type CalendarDayDTO struct {
	Date                 string `json:"date"`
	Price                string `json:"price"`
	FloorPrice           string `json:"floor_price"`
	ProfitabilityPercent string `json:"profitability_percent"`
	RuleName             string `json:"rule_name,omitempty"`
	Status               string `json:"status"`
}

// BookingIncomeDTO is one booking's slice of a financial summary.
type BookingIncomeDTO struct {
	BookingID  string `json:"booking_id"`
	GuestName  string `json:"guest_name"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Nights     int    `json:"nights"`
	Income     string `json:"income"`
	Commission string `json:"commission"`
}

// FinancialSummaryDTO is the monthly profitability response.
type FinancialSummaryDTO struct {
	PropertyID          string             `json:"property_id"`
	Year                int                `json:"year"`
	Month               int                `json:"month"`
	Income              string             `json:"income"`
	RecurringCosts      string             `json:"recurring_costs"`
	ReservationCosts    string             `json:"reservation_costs"`
	Commissions         string             `json:"commissions"`
	NetProfit           string             `json:"net_profit"`
	ProfitMarginPercent string             `json:"profit_margin_percent"`
	OccupiedNights      int                `json:"occupied_nights"`
	DaysInMonth         int                `json:"days_in_month"`
	OccupancyRate       string             `json:"occupancy_rate"`
	Bookings            []BookingIncomeDTO `json:"bookings"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPropertyDTO(p rental.Property) PropertyDTO {
	return PropertyDTO{
		ID:          p.ID,
		Name:        p.Name,
		AvgStayDays: p.AvgStayDays,
		BasePrice:   p.BasePrice.String(),
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingDTO(b rental.Booking) BookingDTO {
	return BookingDTO{
		ID:         b.ID,
		PropertyID: b.PropertyID,
		GuestName:  b.GuestName,
		Summary:    b.Summary,
		CheckIn:    b.CheckIn.String(),
		CheckOut:   b.CheckOut.String(),
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

func toCostDTO(c rental.Cost) CostDTO {
	return CostDTO{
		ID:              c.ID,
		PropertyID:      c.PropertyID,
		Name:            c.Payload.Name,
		Category:        string(c.Payload.Category),
		CalculationType: string(c.Payload.CalcType),
		Value:           c.Payload.Value.String(),
		StartDate:       dateString(c.Start),
		EndDate:         dateString(c.End),
		RootID:          c.RootID,
		Current:         c.IsCurrent(),
		Active:          c.Active,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
}

func toCostDTOs(costs []rental.Cost) []CostDTO {
	dtos := make([]CostDTO, len(costs))
	for i, c := range costs {
		dtos[i] = toCostDTO(c)
	}
	return dtos
}

func toBasePriceDTO(b rental.BasePrice) BasePriceDTO {
	return BasePriceDTO{
		ID:         b.ID,
		PropertyID: b.PropertyID,
		Value:      b.Payload.Value.String(),
		StartDate:  dateString(b.Start),
		EndDate:    dateString(b.End),
		Current:    b.IsCurrent(),
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

func toRuleDTO(r rental.PricingRule) PricingRuleDTO {
	return PricingRuleDTO{
		ID:                   r.ID,
		PropertyID:           r.PropertyID,
		Name:                 r.Name,
		StartDate:            r.Start.String(),
		EndDate:              r.End.String(),
		ProfitabilityPercent: r.ProfitabilityPercent.String(),
		Priority:             r.Priority,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
	}
}

func dateString(d *temporal.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
