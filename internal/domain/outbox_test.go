package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRentalEvent_RefundFlag(t *testing.T) {
	token := "tok_1"
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rt := &RentalTransaction{
		ID: "r1", ItemID: "i1", RenterID: "u1", OwnerID: "o1",
		TotalPrice: decimal.RequireFromString("120"), Status: RentalStatusCancelled, PaymentToken: &token,
	}

	ev := NewRentalEvent(EventCancelled, rt, RentalStatusConfirmed, "o1", at)
	assert.True(t, ev.RefundRequired)
	assert.Equal(t, "tok_1", ev.PaymentToken)

	rt.PaymentToken = nil
	ev = NewRentalEvent(EventCancelled, rt, RentalStatusDraft, "u1", at)
	assert.False(t, ev.RefundRequired)
}

func TestRentalEvent_Outbox(t *testing.T) {
	rt := &RentalTransaction{ID: "r1", TotalPrice: decimal.RequireFromString("330"), Status: RentalStatusInReview}
	ev := NewRentalEvent(EventPaymentConfirmed, rt, RentalStatusDraft, "u1", time.Now().UTC())

	row, err := ev.Outbox()
	require.NoError(t, err)
	assert.Equal(t, "r1", row.AggregateID)
	assert.Equal(t, EventPaymentConfirmed, row.EventType)
	assert.NotEmpty(t, row.ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(row.Payload, &decoded))
	assert.Equal(t, "r1", decoded["rental_id"])
	assert.Equal(t, "IN_REVIEW", decoded["status"])
	assert.Equal(t, "330", decoded["amount"])
}

func TestNewCartView_Total(t *testing.T) {
	view := NewCartView("u1", []RentalTransaction{
		{TotalPrice: decimal.RequireFromString("120")},
		{TotalPrice: decimal.RequireFromString("50.01")},
	})
	assert.True(t, decimal.RequireFromString("170.01").Equal(view.Total))

	empty := NewCartView("u1", nil)
	assert.NotNil(t, empty.Rentals)
	assert.True(t, empty.Total.IsZero())
}
