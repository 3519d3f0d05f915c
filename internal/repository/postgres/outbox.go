package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
)

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Append(ctx context.Context, ev *domain.OutboxEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`
	logger.DatabaseCall("outbox.append", query, "event_type", ev.EventType, "aggregate_id", ev.AggregateID)
	if _, err := r.db.ExecContext(ctx, query, ev.ID, ev.AggregateID, ev.EventType, []byte(ev.Payload), ev.CreatedAt); err != nil {
		logger.DatabaseResult("outbox.append", 0, err)
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at FROM outbox_events
	          WHERE published_at IS NULL ORDER BY created_at, id LIMIT $1`
	logger.DatabaseCall("outbox.list_unpublished", query, "limit", limit)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		logger.DatabaseResult("outbox.list_unpublished", 0, err)
		return nil, fmt.Errorf("list outbox events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("outbox.list_unpublished", int64(len(events)), nil)
	return events, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE outbox_events SET published_at = $1 WHERE id = $2 AND published_at IS NULL`
	logger.DatabaseCall("outbox.mark_published", query, "event_id", id)
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		logger.DatabaseResult("outbox.mark_published", 0, err)
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("outbox.mark_published", n, nil)
	return nil
}
