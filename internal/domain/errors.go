package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels for errors.Is. Each typed error below unwraps to one of them.
var (
	ErrInvalidRange         = errors.New("invalid date range")
	ErrAvailabilityConflict = errors.New("item is not available for the requested dates")
	ErrIllegalTransition    = errors.New("illegal rental status transition")
	ErrOwnership            = errors.New("actor is not authorized for this rental")
	ErrEmptyBatch           = errors.New("settlement batch is empty")
	ErrStaleState           = errors.New("rental status changed concurrently")
	ErrInvalidStatus        = errors.New("unknown rental status")

	ErrRentalNotFound      = errors.New("rental not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrInvalidRate         = errors.New("daily rate must be positive")
	ErrMissingPaymentToken = errors.New("payment token is required")
)

const dateLayout = "2006-01-02"

type InvalidRangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s]: %s", e.Start, e.End, e.Reason)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// AvailabilityConflictError names the window that blocks the request.
type AvailabilityConflictError struct {
	ItemID        string
	Start         time.Time
	End           time.Time
	ConflictingID string
}

func (e *AvailabilityConflictError) Error() string {
	return fmt.Sprintf("item %s is already booked from %s to %s", e.ItemID, e.Start.Format(dateLayout), e.End.Format(dateLayout))
}

func (e *AvailabilityConflictError) Unwrap() error { return ErrAvailabilityConflict }

type IllegalTransitionError struct {
	From RentalStatus
	To   RentalStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move rental from %s to %s", e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

type OwnershipError struct {
	ActorID   string
	RentalIDs []string
	Reason    string
}

func (e *OwnershipError) Error() string {
	msg := "not authorized"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.RentalIDs) > 0 {
		msg += " (rentals: " + strings.Join(e.RentalIDs, ", ") + ")"
	}
	return msg
}

func (e *OwnershipError) Unwrap() error { return ErrOwnership }

type EmptyBatchError struct{}

func (e *EmptyBatchError) Error() string { return "no rentals provided for settlement" }

func (e *EmptyBatchError) Unwrap() error { return ErrEmptyBatch }

// StaleStateError is returned when a conditional write finds the row no longer in
// the expected status. Callers should re-read and retry.
type StaleStateError struct {
	RentalID string
	Expected []RentalStatus
}

func (e *StaleStateError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}
	return fmt.Sprintf("rental %s is no longer in status %s", e.RentalID, strings.Join(expected, "/"))
}

func (e *StaleStateError) Unwrap() error { return ErrStaleState }

type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("unknown rental status %q", e.Value)
}

func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }
