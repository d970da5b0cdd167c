/*
finance.go - Monthly profitability ledger

PURPOSE:
  Aggregates one property-month into income, costs, commissions and net
  profit. Bookings are clipped to the month: only nights inside it earn
  income, each priced with the inputs active on that night.

COST ATTRIBUTION:
  - RECURRING_MONTHLY: charged once, valued on the first of the month.
  - RECURRING_DAILY:   charged per occupied night, valued on that night.
  - PER_RESERVATION fixed amounts: charged once per booking, in the month
    of check-in, valued on the check-in date.
  - PERCENTAGE costs (platform commissions): withheld from each booking's
    in-month income at the rate active on the check-in date.

  Valuing at check-in keeps a booking's one-off charges stable even when
  the cost chain is rewritten mid-stay.
*/
package rental

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/temporal"
)

// BookingIncome is one booking's slice of a monthly summary.
type BookingIncome struct {
	BookingID  string
	GuestName  string
	CheckIn    temporal.Date
	CheckOut   temporal.Date
	Nights     int
	Income     decimal.Decimal
	Commission decimal.Decimal
}

// MonthlySummary is the profitability ledger of one property-month.
type MonthlySummary struct {
	PropertyID           string
	Year                 int
	Month                time.Month
	Income               decimal.Decimal
	RecurringCosts       decimal.Decimal
	ReservationCosts     decimal.Decimal
	Commissions          decimal.Decimal
	NetProfit            decimal.Decimal
	ProfitMarginPercent  decimal.Decimal
	OccupiedNights       int
	DaysInMonth          int
	OccupancyRatePercent decimal.Decimal
	Bookings             []BookingIncome
}

// Aggregator builds monthly summaries.
type Aggregator struct {
	store Store
	log   *logrus.Logger
}

func NewAggregator(store Store, log *logrus.Logger) *Aggregator {
	return &Aggregator{store: store, log: log}
}

// MonthlySummary aggregates the given property-month. All monetary
// fields are rounded to cents on the way out.
func (a *Aggregator) MonthlySummary(ctx context.Context, propertyID string, year int, month time.Month) (MonthlySummary, error) {
	property, err := a.store.GetProperty(ctx, propertyID)
	if err != nil {
		return MonthlySummary{}, err
	}

	span := temporal.MonthSpan(year, month)

	bookings, err := a.store.BookingsOverlapping(ctx, propertyID, span.Start, span.End)
	if err != nil {
		return MonthlySummary{}, err
	}

	priceChain := temporal.NewChain[BasePricePayload]()
	baseFacts, err := priceChain.ResolveOverlapping(ctx, a.store, propertyID, span.Start, span.End)
	if err != nil {
		return MonthlySummary{}, err
	}

	costChain := temporal.NewChain[CostPayload]()
	costFacts, err := costChain.ResolveOverlapping(ctx, a.store, propertyID, span.Start, span.End)
	if err != nil {
		return MonthlySummary{}, err
	}

	rules, err := a.store.RulesByProperty(ctx, propertyID)
	if err != nil {
		return MonthlySummary{}, err
	}

	summary := MonthlySummary{
		PropertyID:  propertyID,
		Year:        year,
		Month:       month,
		DaysInMonth: span.Len(),
		Bookings:    make([]BookingIncome, 0, len(bookings)),
	}

	income := decimal.Zero
	dailyCosts := decimal.Zero
	reservationCosts := decimal.Zero
	commissions := decimal.Zero

	for _, b := range bookings {
		if !b.Blocking() {
			continue
		}

		// Check-in valuations may fall before the prefetched window.
		checkinCosts, err := costChain.ResolveAt(ctx, a.store, propertyID, b.CheckIn)
		if err != nil {
			return MonthlySummary{}, err
		}

		bookingIncome := decimal.Zero
		nights := 0
		for _, day := range span.Days() {
			if !b.Occupies(day) {
				continue
			}
			nights++

			base, ok := basePriceOn(baseFacts, day)
			if !ok {
				base = property.BasePrice
			}
			dayCosts := temporal.ActiveOn(costFacts, day)
			bookingIncome = bookingIncome.Add(priceNight(base, dayCosts, rules, property.AvgStayDays, day).Price)

			for _, cost := range dayCosts {
				if cost.Payload.CalcType == CostFixedAmount && cost.Payload.Category == CostRecurringDaily {
					dailyCosts = dailyCosts.Add(cost.Payload.Value)
				}
			}
		}
		if nights == 0 {
			continue
		}

		if span.Contains(b.CheckIn) {
			for _, cost := range checkinCosts {
				if cost.Payload.CalcType == CostFixedAmount && cost.Payload.Category == CostPerReservation {
					reservationCosts = reservationCosts.Add(cost.Payload.Value)
				}
			}
		}

		commission := decimal.Zero
		for _, cost := range checkinCosts {
			if cost.Payload.CalcType == CostPercentage {
				commission = commission.Add(bookingIncome.Mul(cost.Payload.Value).Div(hundred))
			}
		}

		income = income.Add(bookingIncome)
		commissions = commissions.Add(commission)
		summary.OccupiedNights += nights
		summary.Bookings = append(summary.Bookings, BookingIncome{
			BookingID:  b.ID,
			GuestName:  b.GuestName,
			CheckIn:    b.CheckIn,
			CheckOut:   b.CheckOut,
			Nights:     nights,
			Income:     RoundMoney(bookingIncome),
			Commission: RoundMoney(commission),
		})
	}

	monthlyCosts := decimal.Zero
	firstOfMonth := temporal.ActiveOn(costFacts, span.Start)
	for _, cost := range firstOfMonth {
		if cost.Payload.CalcType == CostFixedAmount && cost.Payload.Category == CostRecurringMonthly {
			monthlyCosts = monthlyCosts.Add(cost.Payload.Value)
		}
	}

	recurring := monthlyCosts.Add(dailyCosts)
	net := income.Sub(recurring).Sub(reservationCosts).Sub(commissions)

	summary.Income = RoundMoney(income)
	summary.RecurringCosts = RoundMoney(recurring)
	summary.ReservationCosts = RoundMoney(reservationCosts)
	summary.Commissions = RoundMoney(commissions)
	summary.NetProfit = RoundMoney(net)
	if income.IsZero() {
		summary.ProfitMarginPercent = decimal.Zero
	} else {
		summary.ProfitMarginPercent = RoundMoney(net.Div(income).Mul(hundred))
	}
	summary.OccupancyRatePercent = RoundMoney(
		decimal.NewFromInt(int64(summary.OccupiedNights)).
			Div(decimal.NewFromInt(int64(summary.DaysInMonth))).
			Mul(hundred))
	return summary, nil
}
