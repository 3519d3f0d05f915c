package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPaymentConfirmed EventType = "rental.payment_confirmed"
	EventStatusChanged    EventType = "rental.status_changed"
	EventCancelled        EventType = "rental.cancelled"
)

// OutboxEvent is written in the same storage transaction as the state change it
// describes and relayed to the broker later.
type OutboxEvent struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   EventType       `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// RentalEvent is the payload consumed by notification and refund tooling.
type RentalEvent struct {
	Type           EventType       `json:"type"`
	RentalID       string          `json:"rental_id"`
	ItemID         string          `json:"item_id"`
	RenterID       string          `json:"renter_id"`
	OwnerID        string          `json:"owner_id"`
	PreviousStatus RentalStatus    `json:"previous_status"`
	Status         RentalStatus    `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentToken   string          `json:"payment_token,omitempty"`
	RefundRequired bool            `json:"refund_required,omitempty"`
	ActorID        string          `json:"actor_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewRentalEvent describes a rental that just moved from prev to its current status.
func NewRentalEvent(eventType EventType, rt *RentalTransaction, prev RentalStatus, actorID string, at time.Time) RentalEvent {
	ev := RentalEvent{
		Type:           eventType,
		RentalID:       rt.ID,
		ItemID:         rt.ItemID,
		RenterID:       rt.RenterID,
		OwnerID:        rt.OwnerID,
		PreviousStatus: prev,
		Status:         rt.Status,
		Amount:         rt.TotalPrice,
		ActorID:        actorID,
		OccurredAt:     at,
	}
	if rt.PaymentToken != nil {
		ev.PaymentToken = *rt.PaymentToken
	}
	if rt.Status == RentalStatusCancelled {
		ev.RefundRequired = RequiresRefund(prev) && rt.PaymentToken != nil
	}
	return ev
}

// Outbox wraps the event in a fresh outbox row.
func (e RentalEvent) Outbox() (*OutboxEvent, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: e.RentalID,
		EventType:   e.Type,
		Payload:     payload,
		CreatedAt:   e.OccurredAt,
	}, nil
}
