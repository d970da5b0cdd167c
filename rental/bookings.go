/*
bookings.go - Booking lifecycle with the non-overlap guard

PURPOSE:
  Enforces that, per property, no two non-cancelled bookings occupy
  overlapping date ranges. The conflict check and the write always share
  one transaction, so concurrent writers are serialized by the store
  rather than racing between "check" and "insert".

INVARIANT:
  For a fixed property, bookings with status != CANCELLED are pairwise
  disjoint under half-open semantics [check_in, check_out).

  Overlap test: existing.check_in < check_out AND
                existing.check_out > check_in

CANCELLATION:
  CANCELLED is terminal for the invariant: a cancelled booking stops
  blocking the range immediately but the row persists for audit until an
  explicit delete. Cancelling never retroactively invalidates bookings
  that co-existed with it.

SEE ALSO:
  - types.go: Booking, BookingStatus
  - store.go: BookingConflicts, WithTx
*/
package rental

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/domu/rental-engine/temporal"
)

// BookingService guards and mutates bookings.
type BookingService struct {
	store TxStore
	log   *logrus.Logger
}

func NewBookingService(store TxStore, log *logrus.Logger) *BookingService {
	return &BookingService{store: store, log: log}
}

// CreateBookingInput carries the fields of a new booking. Status defaults
// to CONFIRMED.
type CreateBookingInput struct {
	PropertyID string
	GuestName  string
	Summary    string
	CheckIn    temporal.Date
	CheckOut   temporal.Date
	Status     BookingStatus
}

// Create validates dates, checks for conflicts and inserts - all in one
// transaction. Returns BookingConflictError when the range is blocked.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (Booking, error) {
	if !in.CheckIn.Before(in.CheckOut) {
		return Booking{}, ErrInvalidDates
	}
	status := in.Status
	if status == "" {
		status = BookingConfirmed
	}

	booking := Booking{
		ID:         uuid.NewString(),
		PropertyID: in.PropertyID,
		GuestName:  in.GuestName,
		Summary:    in.Summary,
		CheckIn:    in.CheckIn,
		CheckOut:   in.CheckOut,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetProperty(ctx, in.PropertyID); err != nil {
			return err
		}
		conflicts, err := tx.BookingConflicts(ctx, in.PropertyID, in.CheckIn, in.CheckOut, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &BookingConflictError{
				PropertyID: in.PropertyID,
				CheckIn:    in.CheckIn,
				CheckOut:   in.CheckOut,
				Conflicts:  conflicts,
			}
		}
		return tx.InsertBooking(ctx, booking)
	})
	if err != nil {
		return Booking{}, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"property_id": booking.PropertyID,
		"check_in":    booking.CheckIn.String(),
		"check_out":   booking.CheckOut.String(),
	}).Info("booking created")
	return booking, nil
}

// UpdateBookingInput patches a booking. Nil fields are left unchanged.
type UpdateBookingInput struct {
	GuestName *string
	Summary   *string
	CheckIn   *temporal.Date
	CheckOut  *temporal.Date
	Status    *BookingStatus
}

// Update applies the patch. When dates change, the merged range is
// revalidated against all other bookings of the property in the same
// transaction as the write.
func (s *BookingService) Update(ctx context.Context, id string, in UpdateBookingInput) (Booking, error) {
	var updated Booking
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}

		merged := existing
		if in.GuestName != nil {
			merged.GuestName = *in.GuestName
		}
		if in.Summary != nil {
			merged.Summary = *in.Summary
		}
		if in.CheckIn != nil {
			merged.CheckIn = *in.CheckIn
		}
		if in.CheckOut != nil {
			merged.CheckOut = *in.CheckOut
		}
		if in.Status != nil {
			merged.Status = *in.Status
		}

		if !merged.CheckIn.Before(merged.CheckOut) {
			return ErrInvalidDates
		}

		datesChanged := in.CheckIn != nil || in.CheckOut != nil
		becameBlocking := in.Status != nil && merged.Blocking() && !existing.Blocking()
		if (datesChanged || becameBlocking) && merged.Blocking() {
			conflicts, err := tx.BookingConflicts(ctx, merged.PropertyID, merged.CheckIn, merged.CheckOut, id)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &BookingConflictError{
					PropertyID: merged.PropertyID,
					CheckIn:    merged.CheckIn,
					CheckOut:   merged.CheckOut,
					Conflicts:  conflicts,
				}
			}
		}

		if err := tx.UpdateBooking(ctx, merged); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	return updated, nil
}

// Accept confirms a tentative booking.
func (s *BookingService) Accept(ctx context.Context, id string) (Booking, error) {
	confirmed := BookingConfirmed
	return s.Update(ctx, id, UpdateBookingInput{Status: &confirmed})
}

// Cancel marks the booking CANCELLED. The row stays for audit; the range
// it held opens up immediately.
func (s *BookingService) Cancel(ctx context.Context, id string) (Booking, error) {
	var cancelled Booking
	err := s.store.WithTx(ctx, func(tx Store) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		b.Status = BookingCancelled
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return Booking{}, err
	}
	s.log.WithField("booking_id", id).Info("booking cancelled")
	return cancelled, nil
}

// Delete removes the booking row outright.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetBooking(ctx, id); err != nil {
			return err
		}
		return tx.DeleteBooking(ctx, id)
	})
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// ListByProperty returns all bookings of a property, cancelled included.
func (s *BookingService) ListByProperty(ctx context.Context, propertyID string) ([]Booking, error) {
	if _, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.store.BookingsByProperty(ctx, propertyID)
}
