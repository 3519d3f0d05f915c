package jobs

import (
	"context"
	"time"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
)

// ReportStaleReservations counts reservations that have waited for payment
// longer than the configured age. It only reports; nothing is expired.
func (jr *JobRunner) ReportStaleReservations() {
	jr.runWithRecovery("ReportStaleReservations", func(ctx context.Context) error {
		_, err := jr.reportStale(ctx)
		return err
	})
}

func (jr *JobRunner) reportStale(ctx context.Context) (map[domain.RentalStatus]int64, error) {
	cutoff := jr.now().Add(-time.Duration(jr.config.Booking.StaleAfterHours) * time.Hour)

	counts := make(map[domain.RentalStatus]int64, 2)
	for _, status := range []domain.RentalStatus{domain.RentalStatusDraft, domain.RentalStatusPendingPayment} {
		n, err := jr.store.Rentals().CountStale(ctx, status, cutoff)
		if err != nil {
			return nil, err
		}
		counts[status] = n
		if n > 0 {
			logger.Warn("Stale reservations awaiting payment",
				"status", status,
				"count", n,
				"older_than", cutoff.Format(time.RFC3339))
		}
	}
	return counts, nil
}
