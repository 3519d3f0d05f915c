//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/repository"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("booking"),
		tcpostgres.WithUsername("booking"),
		tcpostgres.WithPassword("booking"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))

	require.NoError(t, UpsertItem(ctx, db, domain.Item{
		ID: "drill-1", OwnerID: "owner-1", Title: "Cordless drill",
		PricePerDay: decimal.RequireFromString("25.00"), Available: true,
	}))

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return db, cleanup
}

func newRental(renter string, start, end time.Time, status domain.RentalStatus) *domain.RentalTransaction {
	return &domain.RentalTransaction{
		ItemID: "drill-1", RenterID: renter, OwnerID: "owner-1",
		StartDate: start, EndDate: end,
		TotalPrice: decimal.RequireFromString("90.00"), Status: status,
	}
}

func TestIntegration_ConcurrentOverlappingCreates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	ctx := context.Background()
	start, end := day("2024-07-01"), day("2024-07-03")
	blocking := domain.NewStatusSet(domain.RentalStatusDraft, domain.RentalStatusCancelled)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WithinTx(ctx, func(tx repository.Tx) error {
				if err := tx.Rentals().LockItemTimeline(ctx, "drill-1"); err != nil {
					return err
				}
				existing, err := tx.Rentals().ListOverlapping(ctx, "drill-1", start, end, blocking)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return &domain.AvailabilityConflictError{ItemID: "drill-1", Start: start, End: end, ConflictingID: existing[0].ID}
				}
				return tx.Rentals().Create(ctx, newRental("renter", start, end, domain.RentalStatusPendingPayment))
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
	}
	assert.Equal(t, 1, succeeded)
}

func TestIntegration_ExclusionConstraintBackstop(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRental("a", day("2024-08-01"), day("2024-08-05"), domain.RentalStatusInReview)))

	// Drafts never hold the window.
	require.NoError(t, repo.Create(ctx, newRental("b", day("2024-08-03"), day("2024-08-04"), domain.RentalStatusDraft)))

	err := repo.Create(ctx, newRental("c", day("2024-08-05"), day("2024-08-06"), domain.RentalStatusPendingPayment))
	assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)

	require.NoError(t, repo.Create(ctx, newRental("d", day("2024-08-06"), day("2024-08-07"), domain.RentalStatusPendingPayment)))
}

func TestIntegration_ConditionalStatusUpdate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRentalRepository(db)
	ctx := context.Background()

	rt := newRental("a", day("2024-09-01"), day("2024-09-02"), domain.RentalStatusPendingPayment)
	require.NoError(t, repo.Create(ctx, rt))

	token := "tok_1"
	expected := []domain.RentalStatus{domain.RentalStatusDraft, domain.RentalStatusPendingPayment}
	updated, err := repo.UpdateStatus(ctx, rt.ID, expected, domain.RentalStatusInReview, &token)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusInReview, updated.Status)
	assert.Equal(t, day("2024-09-01"), updated.StartDate)

	_, err = repo.UpdateStatus(ctx, rt.ID, expected, domain.RentalStatusInReview, &token)
	assert.ErrorIs(t, err, domain.ErrStaleState)

	listed, err := repo.ListByOwner(ctx, "owner-1", repository.RentalFilter{Include: domain.NewStatusSet(domain.RentalStatusInReview)})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, rt.ID, listed[0].ID)
}
