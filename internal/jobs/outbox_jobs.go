package jobs

import (
	"context"
	"errors"

	"rentai-booking-backend/internal/events"
	"rentai-booking-backend/internal/logger"
)

// RelayOutboxEvents publishes committed lifecycle events that have not been
// delivered yet. Delivery is at least once: an event published but not marked
// is sent again on the next run.
func (jr *JobRunner) RelayOutboxEvents() {
	jr.runWithRecovery("RelayOutboxEvents", func(ctx context.Context) error {
		_, err := jr.relayOutbox(ctx)
		return err
	})
}

func (jr *JobRunner) relayOutbox(ctx context.Context) (int, error) {
	pending, err := jr.store.Outbox().ListUnpublished(ctx, jr.config.Kafka.RelayBatchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sent := 0
	for _, ev := range pending {
		if err := jr.publisher.Publish(ctx, ev); err != nil {
			if errors.Is(err, events.ErrUnavailable) {
				logger.Warn("Event publisher unavailable, deferring relay", "pending", len(pending)-sent)
				break
			}
			// Keep order per aggregate: stop at the first failure and retry later.
			logger.Error("Failed to publish outbox event", "event_id", ev.ID, "event_type", ev.EventType, "error", err)
			break
		}
		if err := jr.store.Outbox().MarkPublished(ctx, ev.ID, jr.now()); err != nil {
			return sent, err
		}
		sent++
	}

	logger.Info("Relayed outbox events", "published", sent, "batch", len(pending))
	return sent, nil
}
