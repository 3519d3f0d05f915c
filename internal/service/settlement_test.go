package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentai-booking-backend/internal/domain"
)

func statusOf(t *testing.T, f *fixture, id string) domain.RentalStatus {
	t.Helper()
	rt, err := f.store.Rentals().GetByID(context.Background(), id)
	require.NoError(t, err)
	return rt.Status
}

func TestSettlementService_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("Bulk checkout of drafts", func(t *testing.T) {
		f := newFixture(t)
		a := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-01", domain.IntentDraft)
		b := f.reserve(t, renter, "tent", "2024-06-01", "2024-06-01", domain.IntentDraft)

		res, err := f.settlement.Settle(ctx, renter, []string{a.ID, b.ID, a.ID}, "tok_bulk")
		require.NoError(t, err)
		assert.Equal(t, "tok_bulk", res.PaymentToken)
		require.Len(t, res.Rentals, 2)
		require.Len(t, res.Events, 2)
		assert.True(t, decimal.RequireFromString("170").Equal(res.Total))

		for _, rt := range res.Rentals {
			assert.Equal(t, domain.RentalStatusInReview, rt.Status)
			require.NotNil(t, rt.PaymentToken)
			assert.Equal(t, "tok_bulk", *rt.PaymentToken)
		}
		ev := res.Events[0]
		assert.Equal(t, domain.EventPaymentConfirmed, ev.Type)
		assert.Equal(t, a.ID, ev.RentalID)
		assert.Equal(t, domain.RentalStatusInReview, ev.Status)
		assert.True(t, a.TotalPrice.Equal(ev.Amount))

		outbox, err := f.store.Outbox().ListUnpublished(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, outbox, 2)
	})

	t.Run("Single settlement uses the same path", func(t *testing.T) {
		f := newFixture(t)
		rt := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-02", domain.IntentCheckout)

		res, err := f.settlement.SettleOne(ctx, renter, rt.ID, "tok_1")
		require.NoError(t, err)
		require.Len(t, res.Rentals, 1)
		assert.True(t, rt.TotalPrice.Equal(res.Total))
	})

	t.Run("Empty batch", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.settlement.Settle(ctx, renter, nil, "tok")
		assert.ErrorIs(t, err, domain.ErrEmptyBatch)
		_, err = f.settlement.Settle(ctx, renter, []string{" ", ""}, "tok")
		assert.ErrorIs(t, err, domain.ErrEmptyBatch)
	})

	t.Run("Blank token", func(t *testing.T) {
		f := newFixture(t)
		rt := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-02", domain.IntentCheckout)
		_, err := f.settlement.SettleOne(ctx, renter, rt.ID, "  ")
		assert.ErrorIs(t, err, domain.ErrMissingPaymentToken)
	})

	t.Run("One foreign rental fails the whole batch", func(t *testing.T) {
		f := newFixture(t)
		t1 := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-01", domain.IntentDraft)
		t2 := f.reserve(t, renter, "tent", "2024-06-01", "2024-06-01", domain.IntentDraft)
		t3 := f.reserve(t, renter2, "tent", "2024-06-05", "2024-06-05", domain.IntentDraft)

		_, err := f.settlement.Settle(ctx, renter, []string{t1.ID, t2.ID, t3.ID}, "tok")
		var own *domain.OwnershipError
		require.ErrorAs(t, err, &own)
		assert.Equal(t, []string{t3.ID}, own.RentalIDs)

		for _, id := range []string{t1.ID, t2.ID, t3.ID} {
			assert.Equal(t, domain.RentalStatusDraft, statusOf(t, f, id))
		}
	})

	t.Run("Missing id is an ownership failure", func(t *testing.T) {
		f := newFixture(t)
		t1 := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-01", domain.IntentDraft)

		_, err := f.settlement.Settle(ctx, renter, []string{t1.ID, "does-not-exist"}, "tok")
		assert.ErrorIs(t, err, domain.ErrOwnership)
		assert.Equal(t, domain.RentalStatusDraft, statusOf(t, f, t1.ID))
	})

	t.Run("Already settled row fails the batch", func(t *testing.T) {
		f := newFixture(t)
		t1 := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-01", domain.IntentDraft)
		t2 := f.reserve(t, renter, "tent", "2024-06-01", "2024-06-01", domain.IntentCheckout)
		_, err := f.settlement.SettleOne(ctx, renter, t2.ID, "first")
		require.NoError(t, err)

		_, err = f.settlement.Settle(ctx, renter, []string{t1.ID, t2.ID}, "second")
		var illegal *domain.IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, domain.RentalStatusInReview, illegal.From)
		assert.Equal(t, domain.RentalStatusDraft, statusOf(t, f, t1.ID))

		rt, err := f.store.Rentals().GetByID(ctx, t2.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", *rt.PaymentToken)
	})

	t.Run("Draft loses to a booking made after it was carted", func(t *testing.T) {
		f := newFixture(t)
		draft := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-05", domain.IntentDraft)
		other := f.reserve(t, renter, "tent", "2024-06-01", "2024-06-05", domain.IntentDraft)
		f.confirmed(t, "camera", "2024-06-04", "2024-06-08")

		_, err := f.settlement.Settle(ctx, renter, []string{other.ID, draft.ID}, "tok")
		var conflict *domain.AvailabilityConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "camera", conflict.ItemID)

		assert.Equal(t, domain.RentalStatusDraft, statusOf(t, f, draft.ID))
		assert.Equal(t, domain.RentalStatusDraft, statusOf(t, f, other.ID))
	})

	t.Run("Overlapping drafts in one cart cannot both settle", func(t *testing.T) {
		f := newFixture(t)
		a := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-03", domain.IntentDraft)
		b := f.reserve(t, renter, "camera", "2024-06-03", "2024-06-04", domain.IntentDraft)

		_, err := f.settlement.Settle(ctx, renter, []string{a.ID, b.ID}, "tok")
		assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
		assert.Equal(t, domain.RentalStatusDraft, statusOf(t, f, a.ID))
	})
}

func TestSettlementService_ConcurrentSettlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.reserve(t, renter, "camera", "2024-06-01", "2024-06-01", domain.IntentDraft)
	b := f.reserve(t, renter, "tent", "2024-06-01", "2024-06-01", domain.IntentDraft)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, batch := range [][]string{{a.ID, b.ID}, {b.ID}} {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()
			_, errs[i] = f.settlement.Settle(ctx, renter, batch, "tok")
		}(i, batch)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		}
	}
	assert.Equal(t, 1, failures)

	events, err := f.store.Outbox().ListUnpublished(ctx, 0)
	require.NoError(t, err)
	paidB := 0
	for _, ev := range events {
		if ev.AggregateID == b.ID {
			paidB++
		}
	}
	assert.Equal(t, 1, paidB)
}
