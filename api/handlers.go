/*
handlers.go - HTTP API handlers for the rental pricing engine

PURPOSE:
  Exposes the booking, cost, pricing and finance services via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Properties:
    GET    /api/properties                          List properties
    POST   /api/properties                          Create property
    GET    /api/properties/{id}                     Get property
    GET    /api/properties/{id}/bookings            List bookings
    GET    /api/properties/{id}/calendar            Priced calendar
    GET    /api/properties/{id}/financial-summary   Monthly ledger

  Bookings:
    POST   /api/bookings                            Create (interval guard)
    GET    /api/bookings/{id}                       Get
    PUT    /api/bookings/{id}                       Update (revalidates)
    POST   /api/bookings/{id}/accept                Tentative -> confirmed
    POST   /api/bookings/{id}/cancel                Cancel (soft)
    DELETE /api/bookings/{id}                       Hard delete

  Costs:
    POST   /api/properties/{id}/costs               Create chain
    GET    /api/properties/{id}/costs               Current versions
    POST   /api/costs/{id}/modify                   Dated modification
    POST   /api/costs/{id}/revert                   Undo last modify
    GET    /api/costs/{id}/history                  Chain versions
    DELETE /api/costs/{id}                          Soft delete

  Base price:
    POST   /api/properties/{id}/base-price/modify   Dated modification
    POST   /api/properties/{id}/base-price/revert   Undo last modify
    GET    /api/properties/{id}/base-price/history  Chain versions

  Pricing rules:
    POST   /api/properties/{id}/pricing-rules       Create
    GET    /api/properties/{id}/pricing-rules       List
    PUT    /api/pricing-rules/{id}                  Update
    DELETE /api/pricing-rules/{id}                  Delete

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid dates/periods, nothing to revert
  - 404: Resource not found
  - 409: Conflict (booking overlap, rule overlap, constraint violation)
  - 500: Internal errors

ACTOR HEADER:
  Writes read the X-Actor header and record it on the request log line.
  It is a pass-through for audit; authentication is out of scope here.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - rental/errors.go: The error taxonomy this maps to statuses
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/rental"
	"github.com/domu/rental-engine/temporal"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Properties *rental.PropertyService
	Bookings   *rental.BookingService
	Costs      *rental.CostService
	BasePrices *rental.BasePriceService
	Rules      *rental.RuleService
	Calculator *rental.Calculator
	Finance    *rental.Aggregator

	Log *logrus.Logger
}

// NewHandler wires the full service stack on top of the given store.
func NewHandler(store rental.TxStore, log *logrus.Logger) *Handler {
	basePrices := rental.NewBasePriceService(store, log)
	return &Handler{
		Properties: rental.NewPropertyService(store, basePrices, log),
		Bookings:   rental.NewBookingService(store, log),
		Costs:      rental.NewCostService(store, log),
		BasePrices: basePrices,
		Rules:      rental.NewRuleService(store, log),
		Calculator: rental.NewCalculator(store, log),
		Finance:    rental.NewAggregator(store, log),
		Log:        log,
	}
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns all properties.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Properties.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list properties", err)
		return
	}

	dtos := make([]PropertyDTO, len(properties))
	for i, p := range properties {
		dtos[i] = toPropertyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProperty returns a single property.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	property, err := h.Properties.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get property", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(property))
}

// CreateProperty creates a property and opens its base-price chain.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if !h.decode(w, r, &req) {
		return
	}

	basePrice, ok := h.parseDecimal(w, "base_price", req.BasePrice)
	if !ok {
		return
	}

	property, err := h.Properties.Create(r.Context(), rental.CreatePropertyInput{
		Name:        req.Name,
		AvgStayDays: req.AvgStayDays,
		BasePrice:   basePrice,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create property", err)
		return
	}

	h.logWrite(r, "property created", property.ID)
	writeJSON(w, http.StatusCreated, toPropertyDTO(property))
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// ListBookings returns all bookings of a property.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.ListByProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to list bookings", err)
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Bookings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// CreateBooking creates a booking, enforcing the non-overlap invariant.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	checkIn, ok := h.parseDate(w, "check_in", req.CheckIn)
	if !ok {
		return
	}
	checkOut, ok := h.parseDate(w, "check_out", req.CheckOut)
	if !ok {
		return
	}

	booking, err := h.Bookings.Create(r.Context(), rental.CreateBookingInput{
		PropertyID: req.PropertyID,
		GuestName:  req.GuestName,
		Summary:    req.Summary,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     rental.BookingStatus(req.Status),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create booking", err)
		return
	}

	h.logWrite(r, "booking created", booking.ID)
	writeJSON(w, http.StatusCreated, toBookingDTO(booking))
}

// UpdateBooking patches a booking, revalidating dates when they change.
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := rental.UpdateBookingInput{
		GuestName: req.GuestName,
		Summary:   req.Summary,
	}
	if req.CheckIn != nil {
		d, ok := h.parseDate(w, "check_in", *req.CheckIn)
		if !ok {
			return
		}
		in.CheckIn = &d
	}
	if req.CheckOut != nil {
		d, ok := h.parseDate(w, "check_out", *req.CheckOut)
		if !ok {
			return
		}
		in.CheckOut = &d
	}
	if req.Status != nil {
		status := rental.BookingStatus(*req.Status)
		in.Status = &status
	}

	booking, err := h.Bookings.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, "Failed to update booking", err)
		return
	}

	h.logWrite(r, "booking updated", booking.ID)
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// AcceptBooking confirms a tentative booking.
func (h *Handler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Bookings.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to accept booking", err)
		return
	}
	h.logWrite(r, "booking accepted", booking.ID)
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// CancelBooking cancels a booking; the row stays for audit.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Bookings.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to cancel booking", err)
		return
	}
	h.logWrite(r, "booking cancelled", booking.ID)
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// DeleteBooking removes a booking row outright.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Bookings.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete booking", err)
		return
	}
	h.logWrite(r, "booking deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COST HANDLERS
// =============================================================================

// ListCosts returns the current version of every active cost chain.
func (h *Handler) ListCosts(w http.ResponseWriter, r *http.Request) {
	costs, err := h.Costs.ListCurrent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to list costs", err)
		return
	}
	writeJSON(w, http.StatusOK, toCostDTOs(costs))
}

// CreateCost opens a new cost chain on the property.
func (h *Handler) CreateCost(w http.ResponseWriter, r *http.Request) {
	var req CreateCostRequest
	if !h.decode(w, r, &req) {
		return
	}

	value, ok := h.parseDecimal(w, "value", req.Value)
	if !ok {
		return
	}

	cost, err := h.Costs.Create(r.Context(), chi.URLParam(r, "id"), rental.CostPayload{
		Name:     req.Name,
		Category: rental.CostCategory(req.Category),
		CalcType: rental.CostCalcType(req.CalculationType),
		Value:    value,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create cost", err)
		return
	}

	h.logWrite(r, "cost created", cost.ID)
	writeJSON(w, http.StatusCreated, toCostDTO(cost))
}

// ModifyCost closes the current version and opens a dated successor.
func (h *Handler) ModifyCost(w http.ResponseWriter, r *http.Request) {
	var req ModifyCostRequest
	if !h.decode(w, r, &req) {
		return
	}

	startDate, ok := h.parseDate(w, "start_date", req.StartDate)
	if !ok {
		return
	}
	value, ok := h.parseDecimal(w, "value", req.Value)
	if !ok {
		return
	}

	cost, err := h.Costs.Modify(r.Context(), chi.URLParam(r, "id"), startDate, rental.CostPayload{
		Name:     req.Name,
		Category: rental.CostCategory(req.Category),
		CalcType: rental.CostCalcType(req.CalculationType),
		Value:    value,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to modify cost", err)
		return
	}

	h.logWrite(r, "cost modified", cost.ID)
	writeJSON(w, http.StatusCreated, toCostDTO(cost))
}

// RevertCost undoes the chain's most recent modification.
func (h *Handler) RevertCost(w http.ResponseWriter, r *http.Request) {
	cost, err := h.Costs.Revert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to revert cost", err)
		return
	}
	h.logWrite(r, "cost reverted", cost.ID)
	writeJSON(w, http.StatusOK, toCostDTO(cost))
}

// CostHistory returns every version of the chain, oldest first.
func (h *Handler) CostHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Costs.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get cost history", err)
		return
	}
	writeJSON(w, http.StatusOK, toCostDTOs(versions))
}

// DeleteCost soft-deletes the whole chain.
func (h *Handler) DeleteCost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Costs.Deactivate(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete cost", err)
		return
	}
	h.logWrite(r, "cost deactivated", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BASE PRICE HANDLERS
// =============================================================================

// ModifyBasePrice applies a dated base-price change.
func (h *Handler) ModifyBasePrice(w http.ResponseWriter, r *http.Request) {
	var req ModifyBasePriceRequest
	if !h.decode(w, r, &req) {
		return
	}

	startDate, ok := h.parseDate(w, "start_date", req.StartDate)
	if !ok {
		return
	}
	value, ok := h.parseDecimal(w, "value", req.Value)
	if !ok {
		return
	}

	version, err := h.BasePrices.Modify(r.Context(), chi.URLParam(r, "id"), startDate, value)
	if err != nil {
		h.writeDomainError(w, "Failed to modify base price", err)
		return
	}

	h.logWrite(r, "base price modified", version.ID)
	writeJSON(w, http.StatusCreated, toBasePriceDTO(version))
}

// RevertBasePrice undoes the latest base-price change.
func (h *Handler) RevertBasePrice(w http.ResponseWriter, r *http.Request) {
	version, err := h.BasePrices.Revert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to revert base price", err)
		return
	}
	h.logWrite(r, "base price reverted", version.ID)
	writeJSON(w, http.StatusOK, toBasePriceDTO(version))
}

// BasePriceHistory returns every version of the property's price chain.
func (h *Handler) BasePriceHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := h.BasePrices.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get base price history", err)
		return
	}

	dtos := make([]BasePriceDTO, len(versions))
	for i, v := range versions {
		dtos[i] = toBasePriceDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PRICING RULE HANDLERS
// =============================================================================

// ListPricingRules returns all rules of a property.
func (h *Handler) ListPricingRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Rules.ListByProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to list pricing rules", err)
		return
	}

	dtos := make([]PricingRuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePricingRule creates a rule, rejecting range overlap.
func (h *Handler) CreatePricingRule(w http.ResponseWriter, r *http.Request) {
	var req CreatePricingRuleRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, ok := h.parseDate(w, "start_date", req.StartDate)
	if !ok {
		return
	}
	end, ok := h.parseDate(w, "end_date", req.EndDate)
	if !ok {
		return
	}

	in := rental.CreateRuleInput{
		PropertyID: chi.URLParam(r, "id"),
		Name:       req.Name,
		Start:      start,
		End:        end,
		Priority:   req.Priority,
	}
	if req.ProfitabilityPercent != nil {
		percent, ok := h.parseDecimal(w, "profitability_percent", *req.ProfitabilityPercent)
		if !ok {
			return
		}
		in.ProfitabilityPercent = &percent
	}

	rule, err := h.Rules.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create pricing rule", err)
		return
	}

	h.logWrite(r, "pricing rule created", rule.ID)
	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

// UpdatePricingRule patches a rule, revalidating changed ranges.
func (h *Handler) UpdatePricingRule(w http.ResponseWriter, r *http.Request) {
	var req UpdatePricingRuleRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := rental.UpdateRuleInput{
		Name:     req.Name,
		Priority: req.Priority,
	}
	if req.StartDate != nil {
		d, ok := h.parseDate(w, "start_date", *req.StartDate)
		if !ok {
			return
		}
		in.Start = &d
	}
	if req.EndDate != nil {
		d, ok := h.parseDate(w, "end_date", *req.EndDate)
		if !ok {
			return
		}
		in.End = &d
	}
	if req.ProfitabilityPercent != nil {
		percent, ok := h.parseDecimal(w, "profitability_percent", *req.ProfitabilityPercent)
		if !ok {
			return
		}
		in.ProfitabilityPercent = &percent
	}

	rule, err := h.Rules.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, "Failed to update pricing rule", err)
		return
	}

	h.logWrite(r, "pricing rule updated", rule.ID)
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// DeletePricingRule removes a rule.
func (h *Handler) DeletePricingRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Rules.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete pricing rule", err)
		return
	}
	h.logWrite(r, "pricing rule deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CALENDAR AND FINANCE HANDLERS
// =============================================================================

// GetCalendar returns priced nights with occupancy for a date range.
// GET /api/properties/{id}/calendar?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	start, ok := h.parseDate(w, "start", r.URL.Query().Get("start"))
	if !ok {
		return
	}
	end, ok := h.parseDate(w, "end", r.URL.Query().Get("end"))
	if !ok {
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start", nil)
		return
	}

	quotes, err := h.Calculator.Calendar(r.Context(), chi.URLParam(r, "id"), temporal.NewSpan(start, end))
	if err != nil {
		h.writeDomainError(w, "Failed to build calendar", err)
		return
	}

	dtos := make([]CalendarDayDTO, len(quotes))
	for i, q := range quotes {
		dtos[i] = CalendarDayDTO{
			Date:                 q.Date.String(),
			Price:                q.Price.String(),
			FloorPrice:           q.FloorPrice.String(),
			ProfitabilityPercent: q.ProfitabilityPercent.String(),
			RuleName:             q.RuleName,
			Status:               string(q.Status),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetFinancialSummary returns the monthly profitability ledger.
// GET /api/properties/{id}/financial-summary?year=2026&month=7
func (h *Handler) GetFinancialSummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month (1-12)", err)
		return
	}

	summary, err := h.Finance.MonthlySummary(r.Context(), chi.URLParam(r, "id"), year, time.Month(month))
	if err != nil {
		h.writeDomainError(w, "Failed to build financial summary", err)
		return
	}

	bookings := make([]BookingIncomeDTO, len(summary.Bookings))
	for i, b := range summary.Bookings {
		bookings[i] = BookingIncomeDTO{
			BookingID:  b.BookingID,
			GuestName:  b.GuestName,
			CheckIn:    b.CheckIn.String(),
			CheckOut:   b.CheckOut.String(),
			Nights:     b.Nights,
			Income:     b.Income.String(),
			Commission: b.Commission.String(),
		}
	}

	writeJSON(w, http.StatusOK, FinancialSummaryDTO{
		PropertyID:          summary.PropertyID,
		Year:                summary.Year,
		Month:               int(summary.Month),
		Income:              summary.Income.String(),
		RecurringCosts:      summary.RecurringCosts.String(),
		ReservationCosts:    summary.ReservationCosts.String(),
		Commissions:         summary.Commissions.String(),
		NetProfit:           summary.NetProfit.String(),
		ProfitMarginPercent: summary.ProfitMarginPercent.String(),
		OccupiedNights:      summary.OccupiedNights,
		DaysInMonth:         summary.DaysInMonth,
		OccupancyRate:       summary.OccupancyRatePercent.String(),
		Bookings:            bookings,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes a 400 and
// returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func (h *Handler) parseDate(w http.ResponseWriter, field, value string) (temporal.Date, bool) {
	d, err := temporal.ParseDate(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+field+" (use YYYY-MM-DD)", err)
		return temporal.Date{}, false
	}
	return d, true
}

func (h *Handler) parseDecimal(w http.ResponseWriter, field, value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+field+" (decimal string)", err)
		return decimal.Decimal{}, false
	}
	return d, true
}

// writeDomainError maps the domain error taxonomy to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case rental.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case rental.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case rental.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// logWrite records a mutation with the pass-through actor header.
func (h *Handler) logWrite(r *http.Request, message, id string) {
	fields := logrus.Fields{"id": id}
	if actor := r.Header.Get("X-Actor"); actor != "" {
		fields["actor"] = actor
	}
	h.Log.WithFields(fields).Info(message)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
