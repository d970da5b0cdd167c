/*
baseprice.go - Versioned nightly base price

PURPOSE:
  Each property has exactly one base-price chain following the same
  version rules as costs. The property row also carries a denormalized
  copy of the currently-open value so reads never need to walk the
  chain; every chain mutation refreshes that copy in the same
  transaction.
*/
package rental

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/temporal"
)

// BasePriceService manages the base-price chain of a property and keeps
// the cached value on the property row in sync.
type BasePriceService struct {
	store TxStore
	chain temporal.Chain[BasePricePayload]
	log   *logrus.Logger
}

func NewBasePriceService(store TxStore, log *logrus.Logger) *BasePriceService {
	return &BasePriceService{
		store: store,
		chain: temporal.NewChain[BasePricePayload](),
		log:   log,
	}
}

// Init opens the property's base-price chain with an initial version
// valid since always. Called once, at property creation.
func (s *BasePriceService) Init(ctx context.Context, tx Store, propertyID string, value decimal.Decimal) (BasePrice, error) {
	fact, err := s.chain.Create(ctx, tx, propertyID, BasePricePayload{Value: value})
	if err != nil {
		return BasePrice{}, err
	}
	if err := tx.SetPropertyBasePrice(ctx, propertyID, value); err != nil {
		return BasePrice{}, err
	}
	return fact, nil
}

// Modify closes the current price version and opens a successor from
// newStart, then refreshes the cached value - one transaction.
func (s *BasePriceService) Modify(ctx context.Context, propertyID string, newStart temporal.Date, value decimal.Decimal) (BasePrice, error) {
	var next BasePrice
	err := s.store.WithTx(ctx, func(tx Store) error {
		cur, err := s.currentFact(ctx, tx, propertyID)
		if err != nil {
			return err
		}
		next, err = s.chain.Modify(ctx, tx, cur.ID, BasePricePayload{Value: value}, newStart)
		if err != nil {
			return err
		}
		return tx.SetPropertyBasePrice(ctx, propertyID, value)
	})
	if err != nil {
		return BasePrice{}, err
	}
	s.log.WithFields(logrus.Fields{
		"property_id": propertyID,
		"from":        newStart.String(),
		"value":       value.String(),
	}).Info("base price modified")
	return next, nil
}

// Revert undoes the latest price change and restores the cached value to
// the reopened version.
func (s *BasePriceService) Revert(ctx context.Context, propertyID string) (BasePrice, error) {
	var restored BasePrice
	err := s.store.WithTx(ctx, func(tx Store) error {
		cur, err := s.currentFact(ctx, tx, propertyID)
		if err != nil {
			return err
		}
		restored, err = s.chain.Revert(ctx, tx, cur.ID)
		if err != nil {
			return err
		}
		return tx.SetPropertyBasePrice(ctx, propertyID, restored.Payload.Value)
	})
	if err != nil {
		return BasePrice{}, err
	}
	s.log.WithField("property_id", propertyID).Info("base price reverted")
	return restored, nil
}

// Current returns the open version of the property's base-price chain.
func (s *BasePriceService) Current(ctx context.Context, propertyID string) (BasePrice, error) {
	return s.currentFact(ctx, s.store, propertyID)
}

// History returns every version of the property's base-price chain,
// oldest first.
func (s *BasePriceService) History(ctx context.Context, propertyID string) ([]BasePrice, error) {
	cur, err := s.currentFact(ctx, s.store, propertyID)
	if err != nil {
		return nil, err
	}
	return s.chain.History(ctx, s.store, cur.ID)
}

func (s *BasePriceService) currentFact(ctx context.Context, st Store, propertyID string) (BasePrice, error) {
	if _, err := st.GetProperty(ctx, propertyID); err != nil {
		return BasePrice{}, err
	}
	facts, err := s.chain.Current(ctx, st, propertyID)
	if err != nil {
		return BasePrice{}, err
	}
	if len(facts) == 0 {
		return BasePrice{}, temporal.ErrFactNotFound
	}
	// One chain per property; CurrentOf returns at most one open version.
	return facts[0], nil
}
