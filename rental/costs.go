/*
costs.go - Versioned operating costs

PURPOSE:
  Cost definitions (cleaning fees, subscriptions, commissions) are
  bi-temporal version chains: each logical cost is a sequence of
  validity windows, and corrections rewrite history by closing the
  current window and opening a new one.

CHAIN RULES:
  - Create opens an initial version valid since always (start = end = nil).
  - Modify closes the current version the day before the new start and
    appends an open successor. The new start must be strictly after the
    current version's start.
  - Revert drops the newest version and reopens its predecessor. A chain
    with a single version cannot be reverted.

SEE ALSO:
  - temporal/chain.go: the generic chain operations
  - finance.go: how each cost category enters the monthly ledger
*/
package rental

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/temporal"
)

// CostService manages cost version chains for properties.
type CostService struct {
	store TxStore
	chain temporal.Chain[CostPayload]
	log   *logrus.Logger
}

func NewCostService(store TxStore, log *logrus.Logger) *CostService {
	return &CostService{
		store: store,
		chain: temporal.NewChain[CostPayload](),
		log:   log,
	}
}

// Create opens a new cost chain on the property. The initial version is
// valid since always.
func (s *CostService) Create(ctx context.Context, propertyID string, payload CostPayload) (Cost, error) {
	var created Cost
	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetProperty(ctx, propertyID); err != nil {
			return err
		}
		var err error
		created, err = s.chain.Create(ctx, tx, propertyID, payload)
		return err
	})
	if err != nil {
		return Cost{}, err
	}
	s.log.WithFields(logrus.Fields{
		"cost_id":     created.ID,
		"property_id": propertyID,
		"name":        payload.Name,
	}).Info("cost created")
	return created, nil
}

// Modify closes the chain's current version and opens a successor valid
// from newStart, carrying the new payload.
func (s *CostService) Modify(ctx context.Context, costID string, newStart temporal.Date, payload CostPayload) (Cost, error) {
	var next Cost
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		next, err = s.chain.Modify(ctx, tx, costID, payload, newStart)
		return err
	})
	if err != nil {
		return Cost{}, err
	}
	s.log.WithFields(logrus.Fields{
		"cost_id": costID,
		"from":    newStart.String(),
	}).Info("cost modified")
	return next, nil
}

// Revert undoes the most recent modification of the chain. Fails with
// ErrNoHistory when the chain only has its initial version.
func (s *CostService) Revert(ctx context.Context, costID string) (Cost, error) {
	var restored Cost
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		restored, err = s.chain.Revert(ctx, tx, costID)
		return err
	})
	if err != nil {
		return Cost{}, err
	}
	s.log.WithField("cost_id", costID).Info("cost reverted")
	return restored, nil
}

// History returns every version of the chain, oldest first.
func (s *CostService) History(ctx context.Context, costID string) ([]Cost, error) {
	return s.chain.History(ctx, s.store, costID)
}

// Get returns one cost version by id.
func (s *CostService) Get(ctx context.Context, costID string) (Cost, error) {
	return s.chain.Get(ctx, s.store, costID)
}

// ListCurrent returns the open version of every active cost chain on the
// property.
func (s *CostService) ListCurrent(ctx context.Context, propertyID string) ([]Cost, error) {
	if _, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.chain.Current(ctx, s.store, propertyID)
}

// Deactivate soft-deletes the whole chain. Each version keeps its data
// but stops contributing to pricing and finance.
func (s *CostService) Deactivate(ctx context.Context, costID string) error {
	err := s.store.WithTx(ctx, func(tx Store) error {
		return s.chain.Deactivate(ctx, tx, costID)
	})
	if err != nil {
		return err
	}
	s.log.WithField("cost_id", costID).Info("cost deactivated")
	return nil
}
