/*
properties.go - Property registry

PURPOSE:
  Creating a property also opens its base-price chain, so the cached
  value on the row and the chain's initial version are born together in
  one transaction.
*/
package rental

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PropertyService creates and reads properties.
type PropertyService struct {
	store      TxStore
	basePrices *BasePriceService
	log        *logrus.Logger
}

func NewPropertyService(store TxStore, basePrices *BasePriceService, log *logrus.Logger) *PropertyService {
	return &PropertyService{store: store, basePrices: basePrices, log: log}
}

// CreatePropertyInput carries the fields of a new property.
type CreatePropertyInput struct {
	Name        string
	AvgStayDays int
	BasePrice   decimal.Decimal
}

// Create inserts the property and opens its base-price chain.
func (s *PropertyService) Create(ctx context.Context, in CreatePropertyInput) (Property, error) {
	property := Property{
		ID:          uuid.NewString(),
		Name:        in.Name,
		AvgStayDays: in.AvgStayDays,
		BasePrice:   in.BasePrice,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.InsertProperty(ctx, property); err != nil {
			return err
		}
		_, err := s.basePrices.Init(ctx, tx, property.ID, in.BasePrice)
		return err
	})
	if err != nil {
		return Property{}, err
	}
	s.log.WithFields(logrus.Fields{
		"property_id": property.ID,
		"name":        property.Name,
	}).Info("property created")
	return property, nil
}

// Get returns a property by id.
func (s *PropertyService) Get(ctx context.Context, id string) (Property, error) {
	return s.store.GetProperty(ctx, id)
}

// List returns all properties.
func (s *PropertyService) List(ctx context.Context) ([]Property, error) {
	return s.store.ListProperties(ctx)
}
