package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusDraft          RentalStatus = "DRAFT"
	RentalStatusPendingPayment RentalStatus = "PENDING_PAYMENT"
	RentalStatusInReview       RentalStatus = "IN_REVIEW"
	RentalStatusConfirmed      RentalStatus = "CONFIRMED"
	RentalStatusInProgress     RentalStatus = "IN_PROGRESS"
	RentalStatusCompleted      RentalStatus = "COMPLETED"
	RentalStatusCancelled      RentalStatus = "CANCELLED"
)

var allStatuses = []RentalStatus{
	RentalStatusDraft,
	RentalStatusPendingPayment,
	RentalStatusInReview,
	RentalStatusConfirmed,
	RentalStatusInProgress,
	RentalStatusCompleted,
	RentalStatusCancelled,
}

// ParseRentalStatus maps a wire value onto the closed status set.
func ParseRentalStatus(s string) (RentalStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &InvalidStatusError{Value: s}
}

func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}

// IsSettleable reports whether a payment confirmation may move the rental to IN_REVIEW.
func (s RentalStatus) IsSettleable() bool {
	return s == RentalStatusDraft || s == RentalStatusPendingPayment
}

func (s RentalStatus) String() string {
	return string(s)
}

// Intent selects the initial status of a new reservation.
type Intent string

const (
	IntentDraft    Intent = "DRAFT"
	IntentCheckout Intent = "CHECKOUT"
)

// InitialStatus returns the status a reservation is created in for the intent.
func (i Intent) InitialStatus() (RentalStatus, error) {
	switch i {
	case IntentDraft:
		return RentalStatusDraft, nil
	case IntentCheckout, "":
		return RentalStatusPendingPayment, nil
	default:
		return "", &InvalidStatusError{Value: string(i)}
	}
}

type RentalTransaction struct {
	ID       string `json:"id"`
	ItemID   string `json:"item_id"`
	RenterID string `json:"renter_id"`
	OwnerID  string `json:"owner_id"`
	// Calendar dates at UTC midnight; the range includes both ends.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	// Grand total locked at creation. Never recomputed from the live daily rate.
	TotalPrice   decimal.Decimal `json:"total_price"`
	Status       RentalStatus    `json:"status"`
	PaymentToken *string         `json:"payment_token,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Overlaps applies the inclusive range test s1 <= e2 && s2 <= e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// OverlapsRange reports whether the rental's window intersects [start, end].
func (r *RentalTransaction) OverlapsRange(start, end time.Time) bool {
	return Overlaps(r.StartDate, r.EndDate, start, end)
}

// StatusSet is a small set of statuses used to filter availability and listings.
type StatusSet map[RentalStatus]struct{}

func NewStatusSet(statuses ...RentalStatus) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

func (s StatusSet) Contains(st RentalStatus) bool {
	_, ok := s[st]
	return ok
}

// Slice returns the members in canonical status order.
func (s StatusSet) Slice() []RentalStatus {
	out := make([]RentalStatus, 0, len(s))
	for _, st := range allStatuses {
		if s.Contains(st) {
			out = append(out, st)
		}
	}
	return out
}

// Strings is Slice rendered for SQL array parameters.
func (s StatusSet) Strings() []string {
	statuses := s.Slice()
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
