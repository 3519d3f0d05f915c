package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
)

// RentalFilter narrows listing queries. Empty sets mean "any status".
type RentalFilter struct {
	Include domain.StatusSet
	Exclude domain.StatusSet
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.RentalTransaction) error
	GetByID(ctx context.Context, id string) (*domain.RentalTransaction, error)
	// GetByIDsForUpdate returns the rentals that exist, row-locked until the
	// surrounding transaction ends. Missing ids are simply absent from the result.
	GetByIDsForUpdate(ctx context.Context, ids []string) ([]domain.RentalTransaction, error)
	// ListOverlapping returns rentals of the item whose window intersects
	// [start, end] and whose status is not in exclude.
	ListOverlapping(ctx context.Context, itemID string, start, end time.Time, exclude domain.StatusSet) ([]domain.RentalTransaction, error)
	// UpdateStatus is a conditional write: it succeeds only while the row is in one
	// of the expected statuses (and, when a token is supplied, has none yet).
	// It returns domain.ErrStaleState when no row matched.
	UpdateStatus(ctx context.Context, id string, expected []domain.RentalStatus, to domain.RentalStatus, paymentToken *string) (*domain.RentalTransaction, error)
	ListByRenter(ctx context.Context, renterID string, filter RentalFilter) ([]domain.RentalTransaction, error)
	ListByOwner(ctx context.Context, ownerID string, filter RentalFilter) ([]domain.RentalTransaction, error)
	CountStale(ctx context.Context, status domain.RentalStatus, olderThan time.Time) (int64, error)
	// LockItemTimeline serializes writers on one item's reservation timeline
	// until the surrounding transaction ends.
	LockItemTimeline(ctx context.Context, itemID string) error
}

type OutboxRepository interface {
	Append(ctx context.Context, event *domain.OutboxEvent) error
	ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}

// ItemRegistry is the read-only view of the listing catalog.
type ItemRegistry interface {
	GetDailyRate(ctx context.Context, itemID string) (decimal.Decimal, error)
	GetOwnerID(ctx context.Context, itemID string) (string, error)
}

// Tx exposes the repositories bound to one storage transaction.
type Tx interface {
	Rentals() RentalRepository
	Outbox() OutboxRepository
}

type TxManager interface {
	// WithinTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is everything the services need from a storage backend.
type Store interface {
	TxManager
	Tx
	ItemRegistry
}
