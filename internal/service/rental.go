package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
	"rentai-booking-backend/internal/utils"
)

type rentalService struct {
	store repository.Store
	cart  CartInvalidator
}

// NewRentalService wires the lifecycle operations to a storage backend. cart may be nil.
func NewRentalService(store repository.Store, cart CartInvalidator) RentalService {
	return &rentalService{store: store, cart: orNoop(cart)}
}

func (s *rentalService) Quote(ctx context.Context, itemID, startDate, endDate string) (*utils.Quote, error) {
	start, end, err := utils.ParseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	rate, err := s.store.GetDailyRate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	q, err := utils.QuoteForDates(rate, start, end)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *rentalService) CreateReservation(ctx context.Context, actor domain.Actor, in CreateReservationInput) (*domain.RentalTransaction, error) {
	const method = "RentalService.CreateReservation"
	logger.EnterMethod(method, "actor", actor.ID, "item_id", in.ItemID, "intent", in.Intent)

	if actor.IsZero() {
		err := &domain.OwnershipError{Reason: "reservation requires an authenticated renter"}
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	status, err := in.Intent.InitialStatus()
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	start, end, err := utils.ParseRange(in.StartDate, in.EndDate)
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	// The registry is read before the transaction; the memory store's lock is not reentrant.
	rate, err := s.store.GetDailyRate(ctx, in.ItemID)
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	ownerID, err := s.store.GetOwnerID(ctx, in.ItemID)
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	if ownerID == actor.ID {
		err := &domain.OwnershipError{ActorID: actor.ID, Reason: "owners cannot reserve their own item"}
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	quote, err := utils.QuoteForDates(rate, start, end)
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	rt := &domain.RentalTransaction{
		ItemID:     in.ItemID,
		RenterID:   actor.ID,
		OwnerID:    ownerID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: quote.GrandTotal,
		Status:     status,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.Rentals().LockItemTimeline(ctx, in.ItemID); err != nil {
			return err
		}
		conflict, other, err := NewAvailabilityChecker(tx.Rentals()).HasConflict(ctx, in.ItemID, start, end, blockingExclusions())
		if err != nil {
			return err
		}
		if conflict {
			return &domain.AvailabilityConflictError{ItemID: in.ItemID, Start: other.StartDate, End: other.EndDate, ConflictingID: other.ID}
		}
		return tx.Rentals().Create(ctx, rt)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	if rt.Status == domain.RentalStatusDraft {
		s.cart.Invalidate(ctx, rt.RenterID)
	}
	logger.Info("Reservation created", "rental_id", rt.ID, "item_id", rt.ItemID, "status", rt.Status, "total", rt.TotalPrice.StringFixed(2))
	logger.ExitMethod(method, "rental_id", rt.ID)
	return rt, nil
}

func (s *rentalService) Cancel(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
	return s.transition(ctx, "RentalService.Cancel", actor, rentalID, domain.RentalStatusCancelled, nil)
}

func (s *rentalService) Confirm(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
	return s.transition(ctx, "RentalService.Confirm", actor, rentalID, domain.RentalStatusConfirmed, nil)
}

// Reject is the owner declining a paid request. It differs from Cancel only in
// being restricted to the owner and to IN_REVIEW.
func (s *rentalService) Reject(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
	return s.transition(ctx, "RentalService.Reject", actor, rentalID, domain.RentalStatusCancelled, func(rt *domain.RentalTransaction, party domain.Party) error {
		if party != domain.PartyOwner {
			return &domain.OwnershipError{ActorID: actor.ID, RentalIDs: []string{rt.ID}, Reason: "only the owner can reject a request"}
		}
		if rt.Status != domain.RentalStatusInReview {
			return &domain.IllegalTransitionError{From: rt.Status, To: domain.RentalStatusCancelled}
		}
		return nil
	})
}

func (s *rentalService) StartFulfillment(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
	return s.transition(ctx, "RentalService.StartFulfillment", actor, rentalID, domain.RentalStatusInProgress, nil)
}

func (s *rentalService) Complete(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
	return s.transition(ctx, "RentalService.Complete", actor, rentalID, domain.RentalStatusCompleted, nil)
}

func (s *rentalService) UpdateStatus(ctx context.Context, actor domain.Actor, rentalID string, target domain.RentalStatus) (*domain.RentalTransaction, error) {
	if _, err := domain.ParseRentalStatus(string(target)); err != nil {
		return nil, err
	}
	if target == domain.RentalStatusInReview {
		// Entering review needs a payment token; only settlement can do it.
		return nil, domain.ErrMissingPaymentToken
	}
	return s.transition(ctx, "RentalService.UpdateStatus", actor, rentalID, target, nil)
}

type transitionGuard func(rt *domain.RentalTransaction, party domain.Party) error

func (s *rentalService) transition(ctx context.Context, method string, actor domain.Actor, rentalID string, to domain.RentalStatus, guard transitionGuard) (*domain.RentalTransaction, error) {
	logger.EnterMethod(method, "actor", actor.ID, "rental_id", rentalID, "to", to)

	var updated *domain.RentalTransaction
	var prev domain.RentalStatus
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		rt, err := tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}
		party := domain.PartyOf(actor, rt)
		if party == domain.PartyNone {
			return &domain.OwnershipError{ActorID: actor.ID, RentalIDs: []string{rentalID}}
		}
		if guard != nil {
			if err := guard(rt, party); err != nil {
				return err
			}
		}
		if err := domain.ValidateTransition(rt.Status, to, party); err != nil {
			var own *domain.OwnershipError
			if errors.As(err, &own) {
				own.ActorID = actor.ID
				own.RentalIDs = []string{rentalID}
			}
			return err
		}

		prev = rt.Status
		updated, err = tx.Rentals().UpdateStatus(ctx, rentalID, []domain.RentalStatus{prev}, to, nil)
		if err != nil {
			return err
		}

		eventType := domain.EventStatusChanged
		if to == domain.RentalStatusCancelled {
			eventType = domain.EventCancelled
		}
		ev, err := domain.NewRentalEvent(eventType, updated, prev, actor.ID, updated.UpdatedAt).Outbox()
		if err != nil {
			return fmt.Errorf("build %s event: %w", eventType, err)
		}
		return tx.Outbox().Append(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "rental_id", rentalID)
		return nil, err
	}

	if prev == domain.RentalStatusDraft {
		s.cart.Invalidate(ctx, updated.RenterID)
	}
	logger.Info("Rental status changed", "rental_id", rentalID, "from", prev, "to", to, "actor", actor.ID)
	logger.ExitMethod(method, "rental_id", rentalID)
	return updated, nil
}

func (s *rentalService) GetRental(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
	rt, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if domain.PartyOf(actor, rt) == domain.PartyNone {
		return nil, &domain.OwnershipError{ActorID: actor.ID, RentalIDs: []string{rentalID}}
	}
	return rt, nil
}

func (s *rentalService) ListRentals(ctx context.Context, actor domain.Actor, status domain.RentalStatus) ([]domain.RentalTransaction, error) {
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.store.Rentals().ListByRenter(ctx, actor.ID, filter)
}

func (s *rentalService) ListLendings(ctx context.Context, actor domain.Actor, status domain.RentalStatus) ([]domain.RentalTransaction, error) {
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.store.Rentals().ListByOwner(ctx, actor.ID, filter)
}

func statusFilter(status domain.RentalStatus) (repository.RentalFilter, error) {
	if strings.TrimSpace(string(status)) == "" {
		return repository.RentalFilter{}, nil
	}
	st, err := domain.ParseRentalStatus(string(status))
	if err != nil {
		return repository.RentalFilter{}, err
	}
	return repository.RentalFilter{Include: domain.NewStatusSet(st)}, nil
}
