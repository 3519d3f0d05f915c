package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  RentalStatus
		to    RentalStatus
		party Party
		want  error
	}{
		{"renter removes draft", RentalStatusDraft, RentalStatusCancelled, PartyRenter, nil},
		{"owner cannot remove draft", RentalStatusDraft, RentalStatusCancelled, PartyOwner, ErrOwnership},
		{"draft settles", RentalStatusDraft, RentalStatusInReview, PartyRenter, nil},
		{"pending settles", RentalStatusPendingPayment, RentalStatusInReview, PartyRenter, nil},
		{"owner accepts", RentalStatusInReview, RentalStatusConfirmed, PartyOwner, nil},
		{"renter cannot accept", RentalStatusInReview, RentalStatusConfirmed, PartyRenter, ErrOwnership},
		{"owner rejects", RentalStatusInReview, RentalStatusCancelled, PartyOwner, nil},
		{"renter withdraws review", RentalStatusInReview, RentalStatusCancelled, PartyRenter, nil},
		{"handover", RentalStatusConfirmed, RentalStatusInProgress, PartyOwner, nil},
		{"return", RentalStatusInProgress, RentalStatusCompleted, PartyOwner, nil},
		{"draft to completed", RentalStatusDraft, RentalStatusCompleted, PartyOwner, ErrIllegalTransition},
		{"same state", RentalStatusConfirmed, RentalStatusConfirmed, PartyOwner, ErrIllegalTransition},
		{"out of terminal", RentalStatusCancelled, RentalStatusDraft, PartyRenter, ErrIllegalTransition},
		{"completed cannot cancel", RentalStatusCompleted, RentalStatusCancelled, PartyOwner, ErrIllegalTransition},
		{"stranger", RentalStatusInReview, RentalStatusConfirmed, PartyNone, ErrOwnership},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to, tt.party)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIllegalTransitionCarriesPair(t *testing.T) {
	err := ValidateTransition(RentalStatusDraft, RentalStatusCompleted, PartyRenter)

	var illegal *IllegalTransitionError
	if assert.True(t, errors.As(err, &illegal)) {
		assert.Equal(t, RentalStatusDraft, illegal.From)
		assert.Equal(t, RentalStatusCompleted, illegal.To)
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, from := range []RentalStatus{RentalStatusCompleted, RentalStatusCancelled} {
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
		assert.True(t, from.IsTerminal())
	}
}

func TestOverlaps(t *testing.T) {
	d := func(s string) time.Time {
		v, _ := time.Parse("2006-01-02", s)
		return v
	}

	assert.True(t, Overlaps(d("2024-06-01"), d("2024-06-05"), d("2024-06-03"), d("2024-06-10")))
	assert.True(t, Overlaps(d("2024-06-01"), d("2024-06-05"), d("2024-06-05"), d("2024-06-05")), "shared endpoint")
	assert.True(t, Overlaps(d("2024-06-01"), d("2024-06-30"), d("2024-06-10"), d("2024-06-11")), "containment")
	assert.False(t, Overlaps(d("2024-06-01"), d("2024-06-05"), d("2024-06-06"), d("2024-06-10")), "adjacent day")
	assert.False(t, Overlaps(d("2024-06-06"), d("2024-06-10"), d("2024-06-01"), d("2024-06-05")))
}

func TestIntentInitialStatus(t *testing.T) {
	st, err := IntentDraft.InitialStatus()
	assert.NoError(t, err)
	assert.Equal(t, RentalStatusDraft, st)

	st, err = IntentCheckout.InitialStatus()
	assert.NoError(t, err)
	assert.Equal(t, RentalStatusPendingPayment, st)

	_, err = Intent("LATER").InitialStatus()
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseRentalStatus(t *testing.T) {
	st, err := ParseRentalStatus("IN_REVIEW")
	assert.NoError(t, err)
	assert.Equal(t, RentalStatusInReview, st)

	_, err = ParseRentalStatus("in_review")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
