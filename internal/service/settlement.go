package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
)

type settlementService struct {
	store repository.Store
	cart  CartInvalidator
}

func NewSettlementService(store repository.Store, cart CartInvalidator) SettlementService {
	return &settlementService{store: store, cart: orNoop(cart)}
}

func (s *settlementService) SettleOne(ctx context.Context, payer domain.Actor, rentalID, paymentToken string) (*SettlementResult, error) {
	return s.Settle(ctx, payer, []string{rentalID}, paymentToken)
}

// Settle moves every named rental to IN_REVIEW under one payment token, or none
// of them. The gateway has already charged the combined amount, so a partial
// outcome is never acceptable.
func (s *settlementService) Settle(ctx context.Context, payer domain.Actor, rentalIDs []string, paymentToken string) (*SettlementResult, error) {
	const method = "SettlementService.Settle"
	logger.EnterMethod(method, "payer", payer.ID, "count", len(rentalIDs))

	ids := dedupe(rentalIDs)
	if len(ids) == 0 {
		err := &domain.EmptyBatchError{}
		logger.ExitMethodWithError(method, err, "payer", payer.ID)
		return nil, err
	}
	token := strings.TrimSpace(paymentToken)
	if token == "" {
		logger.ExitMethodWithError(method, domain.ErrMissingPaymentToken, "payer", payer.ID)
		return nil, domain.ErrMissingPaymentToken
	}

	result := &SettlementResult{PaymentToken: token, Total: decimal.Zero}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Rentals().GetByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.RentalTransaction, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		var offenders []string
		for _, id := range ids {
			rt, ok := byID[id]
			if !ok || payer.IsZero() || rt.RenterID != payer.ID {
				offenders = append(offenders, id)
			}
		}
		if len(offenders) > 0 {
			return &domain.OwnershipError{ActorID: payer.ID, RentalIDs: offenders, Reason: "rentals are missing or not rented by the payer"}
		}

		for _, id := range ids {
			if err := domain.ValidateTransition(byID[id].Status, domain.RentalStatusInReview, domain.PartyRenter); err != nil {
				return err
			}
		}

		if err := lockItems(ctx, tx.Rentals(), locked); err != nil {
			return err
		}

		// Rentals are promoted one at a time so a later one sees the earlier
		// ones as blocking. Two drafts of the same item in one cart cannot both win.
		checker := NewAvailabilityChecker(tx.Rentals())
		for _, id := range ids {
			rt := byID[id]
			conflict, other, err := checker.HasConflict(ctx, rt.ItemID, rt.StartDate, rt.EndDate, blockingExclusions(), rt.ID)
			if err != nil {
				return err
			}
			if conflict {
				return &domain.AvailabilityConflictError{ItemID: rt.ItemID, Start: other.StartDate, End: other.EndDate, ConflictingID: other.ID}
			}

			updated, err := tx.Rentals().UpdateStatus(ctx, id, []domain.RentalStatus{domain.RentalStatusDraft, domain.RentalStatusPendingPayment}, domain.RentalStatusInReview, &token)
			if err != nil {
				return withWindow(err, rt)
			}

			ev := domain.NewRentalEvent(domain.EventPaymentConfirmed, updated, rt.Status, payer.ID, updated.UpdatedAt)
			row, err := ev.Outbox()
			if err != nil {
				return fmt.Errorf("build payment event: %w", err)
			}
			if err := tx.Outbox().Append(ctx, row); err != nil {
				return err
			}

			result.Rentals = append(result.Rentals, *updated)
			result.Events = append(result.Events, ev)
			result.Total = result.Total.Add(updated.TotalPrice)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "payer", payer.ID)
		return nil, err
	}

	s.cart.Invalidate(ctx, payer.ID)
	logger.Info("Payment settled", "payer", payer.ID, "rentals", len(result.Rentals), "total", result.Total.StringFixed(2))
	logger.ExitMethod(method, "payer", payer.ID)
	return result, nil
}

// lockItems takes the timeline lock of every distinct item in a stable order.
func lockItems(ctx context.Context, rentals repository.RentalRepository, batch []domain.RentalTransaction) error {
	seen := make(map[string]struct{}, len(batch))
	items := make([]string, 0, len(batch))
	for _, rt := range batch {
		if _, ok := seen[rt.ItemID]; ok {
			continue
		}
		seen[rt.ItemID] = struct{}{}
		items = append(items, rt.ItemID)
	}
	sort.Strings(items)
	for _, itemID := range items {
		if err := rentals.LockItemTimeline(ctx, itemID); err != nil {
			return err
		}
	}
	return nil
}

// withWindow fills in the item and window when the storage constraint, not the
// checker, reported the overlap.
func withWindow(err error, rt *domain.RentalTransaction) error {
	var conflict *domain.AvailabilityConflictError
	if errors.As(err, &conflict) && conflict.ItemID == "" {
		return &domain.AvailabilityConflictError{ItemID: rt.ItemID, Start: rt.StartDate, End: rt.EndDate}
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
