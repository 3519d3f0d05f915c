package service

import (
	"context"
	"time"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/repository"
)

type availabilityChecker struct {
	rentals repository.RentalRepository
}

// NewAvailabilityChecker reads through rentals. Pass a transaction-bound
// repository to check against the same snapshot that will be written.
func NewAvailabilityChecker(rentals repository.RentalRepository) AvailabilityChecker {
	return &availabilityChecker{rentals: rentals}
}

func (c *availabilityChecker) HasConflict(ctx context.Context, itemID string, start, end time.Time, exclude domain.StatusSet, ignoreIDs ...string) (bool, *domain.RentalTransaction, error) {
	skip := domain.NewStatusSet(domain.RentalStatusCancelled)
	for st := range exclude {
		skip[st] = struct{}{}
	}

	overlapping, err := c.rentals.ListOverlapping(ctx, itemID, start, end, skip)
	if err != nil {
		return false, nil, err
	}
	for i := range overlapping {
		rt := &overlapping[i]
		if contains(ignoreIDs, rt.ID) || skip.Contains(rt.Status) || !rt.OverlapsRange(start, end) {
			continue
		}
		return true, rt, nil
	}
	return false, nil, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// blockingExclusions is the set ignored when deciding whether a window is taken:
// drafts are advisory and never block.
func blockingExclusions() domain.StatusSet {
	return domain.NewStatusSet(domain.RentalStatusDraft)
}
