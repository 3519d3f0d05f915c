package grpc

import (
	"time"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/service"
	"rentai-booking-backend/internal/utils"
)

// Wire messages of rentals.booking.v1.BookingService. Money is a decimal
// string with two places; dates are yyyy-mm-dd.

type Rental struct {
	ID           string `json:"id"`
	ItemID       string `json:"item_id"`
	RenterID     string `json:"renter_id"`
	OwnerID      string `json:"owner_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	TotalPrice   string `json:"total_price"`
	Status       string `json:"status"`
	PaymentToken string `json:"payment_token,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type QuoteRequest struct {
	ItemID    string `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type QuoteResponse struct {
	ItemID      string `json:"item_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Days        int    `json:"days"`
	PricePerDay string `json:"price_per_day"`
	Subtotal    string `json:"subtotal"`
	ServiceFee  string `json:"service_fee"`
	Insurance   string `json:"insurance"`
	GrandTotal  string `json:"grand_total"`
}

type CreateReservationRequest struct {
	ItemID    string `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Intent    string `json:"intent,omitempty"`
}

type RentalRequest struct {
	RentalID string `json:"rental_id"`
}

type RentalResponse struct {
	Rental *Rental `json:"rental"`
}

type ListRentalsRequest struct {
	Status string `json:"status,omitempty"`
}

type ListRentalsResponse struct {
	Rentals []*Rental `json:"rentals"`
}

type UpdateStatusRequest struct {
	RentalID string `json:"rental_id"`
	Status   string `json:"status"`
}

type SettlePaymentRequest struct {
	RentalIDs    []string `json:"rental_ids"`
	PaymentToken string   `json:"payment_token"`
}

type SettlePaymentResponse struct {
	PaymentToken string    `json:"payment_token"`
	Rentals      []*Rental `json:"rentals"`
	Total        string    `json:"total"`
}

type GetCartRequest struct{}

type CartResponse struct {
	Rentals []*Rental `json:"rentals"`
	Total   string    `json:"total"`
}

func MapDomainRentalToWire(rt *domain.RentalTransaction) *Rental {
	if rt == nil {
		return nil
	}
	out := &Rental{
		ID:         rt.ID,
		ItemID:     rt.ItemID,
		RenterID:   rt.RenterID,
		OwnerID:    rt.OwnerID,
		StartDate:  rt.StartDate.Format(utils.DateLayout),
		EndDate:    rt.EndDate.Format(utils.DateLayout),
		TotalPrice: rt.TotalPrice.StringFixed(2),
		Status:     string(rt.Status),
		CreatedAt:  rt.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  rt.UpdatedAt.Format(time.RFC3339),
	}
	if rt.PaymentToken != nil {
		out.PaymentToken = *rt.PaymentToken
	}
	return out
}

func MapDomainRentalsToWire(rentals []domain.RentalTransaction) []*Rental {
	out := make([]*Rental, len(rentals))
	for i := range rentals {
		out[i] = MapDomainRentalToWire(&rentals[i])
	}
	return out
}

func MapQuoteToWire(itemID string, q *utils.Quote) *QuoteResponse {
	return &QuoteResponse{
		ItemID:      itemID,
		StartDate:   q.StartDate.Format(utils.DateLayout),
		EndDate:     q.EndDate.Format(utils.DateLayout),
		Days:        q.Days,
		PricePerDay: q.PricePerDay.StringFixed(2),
		Subtotal:    q.Subtotal.StringFixed(2),
		ServiceFee:  q.ServiceFee.StringFixed(2),
		Insurance:   q.Insurance.StringFixed(2),
		GrandTotal:  q.GrandTotal.StringFixed(2),
	}
}

func MapSettlementToWire(res *service.SettlementResult) *SettlePaymentResponse {
	return &SettlePaymentResponse{
		PaymentToken: res.PaymentToken,
		Rentals:      MapDomainRentalsToWire(res.Rentals),
		Total:        res.Total.StringFixed(2),
	}
}

func MapCartToWire(cart *domain.CartView) *CartResponse {
	return &CartResponse{
		Rentals: MapDomainRentalsToWire(cart.Rentals),
		Total:   cart.Total.StringFixed(2),
	}
}
