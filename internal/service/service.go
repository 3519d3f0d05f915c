package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/utils"
)

type AvailabilityChecker interface {
	// HasConflict reports the first rental of the item whose window overlaps
	// [start, end]. CANCELLED rentals never conflict; exclude names further
	// statuses to ignore and ignoreIDs names rentals to skip.
	HasConflict(ctx context.Context, itemID string, start, end time.Time, exclude domain.StatusSet, ignoreIDs ...string) (bool, *domain.RentalTransaction, error)
}

type CreateReservationInput struct {
	ItemID    string        `json:"item_id"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Intent    domain.Intent `json:"intent"`
}

type RentalService interface {
	Quote(ctx context.Context, itemID, startDate, endDate string) (*utils.Quote, error)
	CreateReservation(ctx context.Context, actor domain.Actor, in CreateReservationInput) (*domain.RentalTransaction, error)
	Cancel(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	Confirm(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	Reject(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	StartFulfillment(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	Complete(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	// UpdateStatus routes an arbitrary target status through the transition table.
	UpdateStatus(ctx context.Context, actor domain.Actor, rentalID string, target domain.RentalStatus) (*domain.RentalTransaction, error)
	GetRental(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	ListRentals(ctx context.Context, actor domain.Actor, status domain.RentalStatus) ([]domain.RentalTransaction, error)
	ListLendings(ctx context.Context, actor domain.Actor, status domain.RentalStatus) ([]domain.RentalTransaction, error)
}

// SettlementResult is what a successful payment confirmation produced.
type SettlementResult struct {
	PaymentToken string                     `json:"payment_token"`
	Rentals      []domain.RentalTransaction `json:"rentals"`
	Events       []domain.RentalEvent       `json:"events"`
	Total        decimal.Decimal            `json:"total"`
}

type SettlementService interface {
	Settle(ctx context.Context, payer domain.Actor, rentalIDs []string, paymentToken string) (*SettlementResult, error)
	SettleOne(ctx context.Context, payer domain.Actor, rentalID, paymentToken string) (*SettlementResult, error)
}

type CartService interface {
	ListDraftRentals(ctx context.Context, renterID string) (*domain.CartView, error)
	ListActiveRentals(ctx context.Context, renterID string) ([]domain.RentalTransaction, error)
	CartInvalidator
}

// CartInvalidator is told after every commit that changed a renter's drafts.
type CartInvalidator interface {
	Invalidate(ctx context.Context, renterID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}

func orNoop(c CartInvalidator) CartInvalidator {
	if c == nil {
		return noopInvalidator{}
	}
	return c
}
