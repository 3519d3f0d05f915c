package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
)

const rentalColumns = `id, item_id, renter_id, owner_id, start_date, end_date, total_price, status, payment_token, created_at, updated_at`

type rentalRepository struct {
	db DBTX
}

func NewRentalRepository(db DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*domain.RentalTransaction, error) {
	rt := &domain.RentalTransaction{}
	var token sql.NullString
	err := row.Scan(&rt.ID, &rt.ItemID, &rt.RenterID, &rt.OwnerID, &rt.StartDate, &rt.EndDate, &rt.TotalPrice, &rt.Status, &token, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if token.Valid {
		rt.PaymentToken = &token.String
	}
	rt.StartDate = calendarDay(rt.StartDate)
	rt.EndDate = calendarDay(rt.EndDate)
	return rt, nil
}

func scanRentals(rows *sql.Rows) ([]domain.RentalTransaction, error) {
	defer rows.Close()
	var rentals []domain.RentalTransaction
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

// calendarDay drops whatever zone the driver attached to a DATE column.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func statusStrings(statuses []domain.RentalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.RentalTransaction) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = now
	}
	rt.UpdatedAt = rt.CreatedAt

	query := `INSERT INTO rentals (` + rentalColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	logger.DatabaseCall("rentals.create", query, "item_id", rt.ItemID, "status", rt.Status)
	res, err := r.db.ExecContext(ctx, query, rt.ID, rt.ItemID, rt.RenterID, rt.OwnerID, rt.StartDate, rt.EndDate, rt.TotalPrice, rt.Status, rt.PaymentToken, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("rentals.create", 0, err)
		switch pqCode(err) {
		case pqExclusionViolation:
			return &domain.AvailabilityConflictError{ItemID: rt.ItemID, Start: rt.StartDate, End: rt.EndDate}
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, rt.ItemID)
		}
		return fmt.Errorf("insert rental: %w", err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("rentals.create", n, nil, "rental_id", rt.ID)
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.RentalTransaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrRentalNotFound
	}
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	logger.DatabaseCall("rentals.get", query, "rental_id", id)
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRentalNotFound
	}
	if err != nil {
		logger.DatabaseResult("rentals.get", 0, err)
		return nil, fmt.Errorf("get rental: %w", err)
	}
	return rt, nil
}

func (r *rentalRepository) GetByIDsForUpdate(ctx context.Context, ids []string) ([]domain.RentalTransaction, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	// Ordered locking keeps two overlapping batches from deadlocking.
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
	logger.DatabaseCall("rentals.lock_batch", query, "count", len(valid))
	rows, err := r.db.QueryContext(ctx, query, pq.Array(valid))
	if err != nil {
		logger.DatabaseResult("rentals.lock_batch", 0, err)
		return nil, fmt.Errorf("lock rentals: %w", err)
	}
	rentals, err := scanRentals(rows)
	logger.DatabaseResult("rentals.lock_batch", int64(len(rentals)), err)
	return rentals, err
}

func (r *rentalRepository) ListOverlapping(ctx context.Context, itemID string, start, end time.Time, exclude domain.StatusSet) ([]domain.RentalTransaction, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE item_id = $1 AND start_date <= $3 AND $2 <= end_date AND status <> ALL($4)
	          ORDER BY start_date, id`
	logger.DatabaseCall("rentals.list_overlapping", query, "item_id", itemID)
	rows, err := r.db.QueryContext(ctx, query, itemID, start, end, pq.Array(exclude.Strings()))
	if err != nil {
		logger.DatabaseResult("rentals.list_overlapping", 0, err)
		return nil, fmt.Errorf("list overlapping rentals: %w", err)
	}
	return scanRentals(rows)
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, id string, expected []domain.RentalStatus, to domain.RentalStatus, paymentToken *string) (*domain.RentalTransaction, error) {
	query := `UPDATE rentals SET status = $1, payment_token = COALESCE($2, payment_token), updated_at = $3
	          WHERE id = $4 AND status = ANY($5)`
	if paymentToken != nil {
		query += ` AND payment_token IS NULL`
	}
	query += ` RETURNING ` + rentalColumns

	logger.DatabaseCall("rentals.update_status", query, "rental_id", id, "to", to)
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, to, paymentToken, time.Now().UTC(), id, pq.Array(statusStrings(expected))))
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("rentals.update_status", 0, nil, "rental_id", id)
		return nil, &domain.StaleStateError{RentalID: id, Expected: expected}
	}
	if err != nil {
		logger.DatabaseResult("rentals.update_status", 0, err)
		if pqCode(err) == pqExclusionViolation {
			// The caller knows the window; it fills in the details.
			return nil, &domain.AvailabilityConflictError{}
		}
		return nil, fmt.Errorf("update rental status: %w", err)
	}
	logger.DatabaseResult("rentals.update_status", 1, nil, "rental_id", id)
	return rt, nil
}

func (r *rentalRepository) ListByRenter(ctx context.Context, renterID string, filter repository.RentalFilter) ([]domain.RentalTransaction, error) {
	return r.listByParty(ctx, "renter_id", renterID, filter)
}

func (r *rentalRepository) ListByOwner(ctx context.Context, ownerID string, filter repository.RentalFilter) ([]domain.RentalTransaction, error) {
	return r.listByParty(ctx, "owner_id", ownerID, filter)
}

func (r *rentalRepository) listByParty(ctx context.Context, column, partyID string, filter repository.RentalFilter) ([]domain.RentalTransaction, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE ` + column + ` = $1
	            AND (cardinality($2::text[]) = 0 OR status = ANY($2))
	            AND status <> ALL($3)
	          ORDER BY created_at DESC, id ASC`
	op := "rentals.list_by_" + column
	logger.DatabaseCall(op, query, column, partyID)
	rows, err := r.db.QueryContext(ctx, query, partyID, pq.Array(filter.Include.Strings()), pq.Array(filter.Exclude.Strings()))
	if err != nil {
		logger.DatabaseResult(op, 0, err)
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	rentals, err := scanRentals(rows)
	logger.DatabaseResult(op, int64(len(rentals)), err)
	return rentals, err
}

func (r *rentalRepository) CountStale(ctx context.Context, status domain.RentalStatus, olderThan time.Time) (int64, error) {
	query := `SELECT count(*) FROM rentals WHERE status = $1 AND updated_at < $2`
	logger.DatabaseCall("rentals.count_stale", query, "status", status)
	var n int64
	if err := r.db.QueryRowContext(ctx, query, status, olderThan).Scan(&n); err != nil {
		logger.DatabaseResult("rentals.count_stale", 0, err)
		return 0, fmt.Errorf("count stale rentals: %w", err)
	}
	return n, nil
}

func (r *rentalRepository) LockItemTimeline(ctx context.Context, itemID string) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	logger.DatabaseCall("rentals.lock_item", query, "item_id", itemID)
	if _, err := r.db.ExecContext(ctx, query, itemID); err != nil {
		logger.DatabaseResult("rentals.lock_item", 0, err)
		return fmt.Errorf("lock item timeline: %w", err)
	}
	return nil
}
