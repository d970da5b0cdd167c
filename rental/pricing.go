/*
pricing.go - Nightly price resolution

PURPOSE:
  Computes the price of a single night and whole calendars of nights.
  Every input is resolved as of the night being priced: the base-price
  version active that day, the cost versions active that day and the
  pricing rule covering that day.

MODEL:
  floor  = sum(monthly/30) + sum(daily) + sum(perReservation/avgStay)
  price  = floor + (base - floor) * percent / 100

  The floor uses FIXED_AMOUNT costs only; PERCENTAGE costs (commissions)
  are withheld from payouts, not charged to guests. The per-reservation
  term amortizes over the property's average stay length and is skipped
  when that length is zero. percent comes from the winning pricing rule,
  100 when no rule covers the day. Values below 100 may price below the
  floor; nothing clamps.

ROUNDING:
  All arithmetic runs on exact decimals; rounding to cents happens once,
  on the way out.
*/
package rental

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/temporal"
)

// DayStatus tells whether a calendar night is taken.
type DayStatus string

const (
	DayAvailable DayStatus = "AVAILABLE"
	DayReserved  DayStatus = "RESERVED"
)

// NightPrice is a priced night together with the inputs that produced
// it: the cost floor, the applied margin percent and the winning rule's
// name (empty when no rule covers the night).
type NightPrice struct {
	Price                decimal.Decimal
	FloorPrice           decimal.Decimal
	ProfitabilityPercent decimal.Decimal
	RuleName             string
}

// DailyQuote is one calendar night: its price breakdown plus occupancy.
type DailyQuote struct {
	Date temporal.Date
	NightPrice
	Status DayStatus
}

// Calculator prices nights from versioned inputs.
type Calculator struct {
	store Store
	log   *logrus.Logger
}

func NewCalculator(store Store, log *logrus.Logger) *Calculator {
	return &Calculator{store: store, log: log}
}

// DailyPrice resolves all inputs as of day and prices the night, rounded
// to cents.
func (c *Calculator) DailyPrice(ctx context.Context, propertyID string, day temporal.Date) (NightPrice, error) {
	property, err := c.store.GetProperty(ctx, propertyID)
	if err != nil {
		return NightPrice{}, err
	}

	base, err := c.basePriceAt(ctx, property, day)
	if err != nil {
		return NightPrice{}, err
	}

	costChain := temporal.NewChain[CostPayload]()
	costs, err := costChain.ResolveAt(ctx, c.store, propertyID, day)
	if err != nil {
		return NightPrice{}, err
	}

	rules, err := c.store.RulesByProperty(ctx, propertyID)
	if err != nil {
		return NightPrice{}, err
	}

	return priceNight(base, costs, rules, property.AvgStayDays, day).rounded(), nil
}

// Calendar prices every night in [from, to] and marks occupancy from the
// property's blocking bookings. Inputs are fetched once for the whole
// range and resolved per day in memory.
func (c *Calculator) Calendar(ctx context.Context, propertyID string, span temporal.Span) ([]DailyQuote, error) {
	property, err := c.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	priceChain := temporal.NewChain[BasePricePayload]()
	baseFacts, err := priceChain.ResolveOverlapping(ctx, c.store, propertyID, span.Start, span.End)
	if err != nil {
		return nil, err
	}

	costChain := temporal.NewChain[CostPayload]()
	costFacts, err := costChain.ResolveOverlapping(ctx, c.store, propertyID, span.Start, span.End)
	if err != nil {
		return nil, err
	}

	rules, err := c.store.RulesByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	bookings, err := c.store.BookingsOverlapping(ctx, propertyID, span.Start, span.End)
	if err != nil {
		return nil, err
	}

	quotes := make([]DailyQuote, 0, span.Len())
	cacheFallback := false
	for _, day := range span.Days() {
		base, ok := basePriceOn(baseFacts, day)
		if !ok {
			base = property.BasePrice
			cacheFallback = true
		}
		costs := temporal.ActiveOn(costFacts, day)
		night := priceNight(base, costs, rules, property.AvgStayDays, day)

		status := DayAvailable
		for _, b := range bookings {
			if b.Blocking() && b.Occupies(day) {
				status = DayReserved
				break
			}
		}
		quotes = append(quotes, DailyQuote{Date: day, NightPrice: night.rounded(), Status: status})
	}
	if cacheFallback {
		// One line per request, not one per day.
		c.log.WithFields(logrus.Fields{
			"property_id": propertyID,
			"span":        span.String(),
		}).Warn("no base price version covers part of range, using cached property value")
	}
	return quotes, nil
}

// basePriceAt resolves the base-price version active on day, falling back
// to the cached value on the property row when the chain has no version
// covering the day.
func (c *Calculator) basePriceAt(ctx context.Context, property Property, day temporal.Date) (decimal.Decimal, error) {
	chain := temporal.NewChain[BasePricePayload]()
	facts, err := chain.ResolveAt(ctx, c.store, property.ID, day)
	if err != nil {
		return decimal.Zero, err
	}
	if len(facts) == 0 {
		c.warnCacheFallback(property.ID, day)
		return property.BasePrice, nil
	}
	return facts[0].Payload.Value, nil
}

func (c *Calculator) warnCacheFallback(propertyID string, day temporal.Date) {
	c.log.WithFields(logrus.Fields{
		"property_id": propertyID,
		"date":        day.String(),
	}).Warn("no base price version covers date, using cached property value")
}

func basePriceOn(facts []temporal.Fact[BasePricePayload], day temporal.Date) (decimal.Decimal, bool) {
	active := temporal.ActiveOn(facts, day)
	if len(active) == 0 {
		return decimal.Zero, false
	}
	return active[0].Payload.Value, true
}

// priceNight runs the pricing model on already-resolved inputs. The
// result is exact; round with NightPrice.rounded on the way out.
func priceNight(base decimal.Decimal, costs []Cost, rules []PricingRule, avgStayDays int, day temporal.Date) NightPrice {
	floor := costFloor(costs, avgStayDays)

	percent := hundred
	ruleName := ""
	if rule, ok := ResolveForDate(rules, day); ok {
		percent = rule.ProfitabilityPercent
		ruleName = rule.Name
	}

	margin := base.Sub(floor).Mul(percent).Div(hundred)
	return NightPrice{
		Price:                floor.Add(margin),
		FloorPrice:           floor,
		ProfitabilityPercent: percent,
		RuleName:             ruleName,
	}
}

// rounded returns the quote with its monetary fields rounded to cents.
func (n NightPrice) rounded() NightPrice {
	n.Price = RoundMoney(n.Price)
	n.FloorPrice = RoundMoney(n.FloorPrice)
	return n
}

// costFloor sums the per-night share of every fixed-amount cost.
func costFloor(costs []Cost, avgStayDays int) decimal.Decimal {
	floor := decimal.Zero
	for _, cost := range costs {
		if cost.Payload.CalcType != CostFixedAmount {
			continue
		}
		switch cost.Payload.Category {
		case CostRecurringMonthly:
			floor = floor.Add(cost.Payload.Value.Div(thirtyDays))
		case CostRecurringDaily:
			floor = floor.Add(cost.Payload.Value)
		case CostPerReservation:
			if avgStayDays > 0 {
				floor = floor.Add(cost.Payload.Value.Div(decimal.NewFromInt(int64(avgStayDays))))
			}
		}
	}
	return floor
}
