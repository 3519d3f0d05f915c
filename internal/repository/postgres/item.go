package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
)

type itemRegistry struct {
	db DBTX
}

func NewItemRegistry(db DBTX) repository.ItemRegistry {
	return &itemRegistry{db: db}
}

func (r *itemRegistry) GetDailyRate(ctx context.Context, itemID string) (decimal.Decimal, error) {
	query := `SELECT price_per_day FROM items WHERE id = $1`
	logger.DatabaseCall("items.get_rate", query, "item_id", itemID)
	var rate decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	if err != nil {
		logger.DatabaseResult("items.get_rate", 0, err)
		return decimal.Zero, fmt.Errorf("get item rate: %w", err)
	}
	return rate, nil
}

func (r *itemRegistry) GetOwnerID(ctx context.Context, itemID string) (string, error) {
	query := `SELECT owner_id FROM items WHERE id = $1`
	logger.DatabaseCall("items.get_owner", query, "item_id", itemID)
	var ownerID string
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	if err != nil {
		logger.DatabaseResult("items.get_owner", 0, err)
		return "", fmt.Errorf("get item owner: %w", err)
	}
	return ownerID, nil
}

// UpsertItem registers or updates a listing. Used by seeding and integration tests.
func UpsertItem(ctx context.Context, db DBTX, item domain.Item) error {
	query := `INSERT INTO items (id, owner_id, title, price_per_day, available)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, title = EXCLUDED.title,
	              price_per_day = EXCLUDED.price_per_day, available = EXCLUDED.available, updated_at = now()`
	logger.DatabaseCall("items.upsert", query, "item_id", item.ID)
	if _, err := db.ExecContext(ctx, query, item.ID, item.OwnerID, item.Title, item.PricePerDay, item.Available); err != nil {
		logger.DatabaseResult("items.upsert", 0, err)
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}
