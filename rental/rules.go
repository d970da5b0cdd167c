/*
rules.go - Seasonal pricing rules

PURPOSE:
  Pricing rules scale the profit margin over inclusive date ranges
  [start, end]. Per property, active rules must not overlap; the overlap
  check shares a transaction with the write. When resolving the rule for
  a date the winner is picked by priority desc, then created-at desc,
  then id asc.
*/
package rental

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/temporal"
)

// RuleService guards and mutates pricing rules.
type RuleService struct {
	store TxStore
	log   *logrus.Logger
}

func NewRuleService(store TxStore, log *logrus.Logger) *RuleService {
	return &RuleService{store: store, log: log}
}

// CreateRuleInput carries the fields of a new pricing rule.
// ProfitabilityPercent nil defaults to 100 (neutral).
type CreateRuleInput struct {
	PropertyID           string
	Name                 string
	Start                temporal.Date
	End                  temporal.Date
	ProfitabilityPercent *decimal.Decimal
	Priority             int
}

// Create validates the range, rejects overlap with existing rules of the
// property and inserts - one transaction.
func (s *RuleService) Create(ctx context.Context, in CreateRuleInput) (PricingRule, error) {
	percent := hundred
	if in.ProfitabilityPercent != nil {
		percent = *in.ProfitabilityPercent
	}
	rule := PricingRule{
		ID:                   uuid.NewString(),
		PropertyID:           in.PropertyID,
		Name:                 in.Name,
		Start:                in.Start,
		End:                  in.End,
		ProfitabilityPercent: percent,
		Priority:             in.Priority,
		CreatedAt:            time.Now().UTC(),
	}
	if err := rule.Validate(); err != nil {
		return PricingRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetProperty(ctx, in.PropertyID); err != nil {
			return err
		}
		overlapping, err := tx.RulesOverlapping(ctx, in.PropertyID, in.Start, in.End, "")
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return &RuleOverlapError{
				PropertyID: in.PropertyID,
				Start:      in.Start,
				End:        in.End,
				Overlaps:   overlapping,
			}
		}
		return tx.InsertRule(ctx, rule)
	})
	if err != nil {
		return PricingRule{}, err
	}

	s.log.WithFields(logrus.Fields{
		"rule_id":     rule.ID,
		"property_id": rule.PropertyID,
		"start":       rule.Start.String(),
		"end":         rule.End.String(),
	}).Info("pricing rule created")
	return rule, nil
}

// UpdateRuleInput patches a rule. Nil fields are left unchanged.
type UpdateRuleInput struct {
	Name                 *string
	Start                *temporal.Date
	End                  *temporal.Date
	ProfitabilityPercent *decimal.Decimal
	Priority             *int
}

// Update applies the patch, revalidating the merged range against the
// property's other rules when the dates change.
func (s *RuleService) Update(ctx context.Context, id string, in UpdateRuleInput) (PricingRule, error) {
	var updated PricingRule
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetRule(ctx, id)
		if err != nil {
			return err
		}

		merged := existing
		if in.Name != nil {
			merged.Name = *in.Name
		}
		if in.Start != nil {
			merged.Start = *in.Start
		}
		if in.End != nil {
			merged.End = *in.End
		}
		if in.ProfitabilityPercent != nil {
			merged.ProfitabilityPercent = *in.ProfitabilityPercent
		}
		if in.Priority != nil {
			merged.Priority = *in.Priority
		}
		if err := merged.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}

		if in.Start != nil || in.End != nil {
			overlapping, err := tx.RulesOverlapping(ctx, merged.PropertyID, merged.Start, merged.End, id)
			if err != nil {
				return err
			}
			if len(overlapping) > 0 {
				return &RuleOverlapError{
					PropertyID: merged.PropertyID,
					Start:      merged.Start,
					End:        merged.End,
					Overlaps:   overlapping,
				}
			}
		}

		if err := tx.UpdateRule(ctx, merged); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		return PricingRule{}, err
	}
	return updated, nil
}

// Delete removes the rule.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetRule(ctx, id); err != nil {
			return err
		}
		return tx.DeleteRule(ctx, id)
	})
}

// Get returns a rule by id.
func (s *RuleService) Get(ctx context.Context, id string) (PricingRule, error) {
	return s.store.GetRule(ctx, id)
}

// ListByProperty returns all rules of a property.
func (s *RuleService) ListByProperty(ctx context.Context, propertyID string) ([]PricingRule, error) {
	if _, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.store.RulesByProperty(ctx, propertyID)
}

// ResolveForDate picks the rule applying on d among the given rules:
// priority desc, created-at desc, id asc. Returns false when none apply.
// Non-overlap is enforced on writes, so ties only arise from legacy data;
// the ordering still makes the pick deterministic.
func ResolveForDate(rules []PricingRule, d temporal.Date) (PricingRule, bool) {
	matching := make([]PricingRule, 0, 1)
	for _, r := range rules {
		if r.ActiveOn(d) {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return PricingRule{}, false
	}
	sort.SliceStable(matching, func(i, j int) bool {
		a, b := matching[i], matching[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return matching[0], true
}
