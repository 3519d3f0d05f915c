package grpc

import (
	"context"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/service"
)

type BookingHandler struct {
	rentalSvc     service.RentalService
	settlementSvc service.SettlementService
	cartSvc       service.CartService
}

func NewBookingHandler(rentalSvc service.RentalService, settlementSvc service.SettlementService, cartSvc service.CartService) *BookingHandler {
	return &BookingHandler{rentalSvc: rentalSvc, settlementSvc: settlementSvc, cartSvc: cartSvc}
}

var _ BookingServiceServer = (*BookingHandler)(nil)

func (h *BookingHandler) GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	q, err := h.rentalSvc.Quote(ctx, req.ItemID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, toStatus("GetQuote", err)
	}
	return MapQuoteToWire(req.ItemID, q), nil
}

func (h *BookingHandler) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*RentalResponse, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rt, err := h.rentalSvc.CreateReservation(ctx, actor, service.CreateReservationInput{
		ItemID:    req.ItemID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Intent:    domain.Intent(req.Intent),
	})
	if err != nil {
		return nil, toStatus("CreateReservation", err)
	}
	return &RentalResponse{Rental: MapDomainRentalToWire(rt)}, nil
}

func (h *BookingHandler) GetRental(ctx context.Context, req *RentalRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "GetRental", req.RentalID, h.rentalSvc.GetRental)
}

func (h *BookingHandler) ListMyRentals(ctx context.Context, req *ListRentalsRequest) (*ListRentalsResponse, error) {
	return h.listCall(ctx, "ListMyRentals", req.Status, h.rentalSvc.ListRentals)
}

func (h *BookingHandler) ListMyLendings(ctx context.Context, req *ListRentalsRequest) (*ListRentalsResponse, error) {
	return h.listCall(ctx, "ListMyLendings", req.Status, h.rentalSvc.ListLendings)
}

func (h *BookingHandler) CancelRental(ctx context.Context, req *RentalRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "CancelRental", req.RentalID, h.rentalSvc.Cancel)
}

func (h *BookingHandler) ConfirmRental(ctx context.Context, req *RentalRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "ConfirmRental", req.RentalID, h.rentalSvc.Confirm)
}

func (h *BookingHandler) RejectRental(ctx context.Context, req *RentalRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "RejectRental", req.RentalID, h.rentalSvc.Reject)
}

func (h *BookingHandler) StartRental(ctx context.Context, req *RentalRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "StartRental", req.RentalID, h.rentalSvc.StartFulfillment)
}

func (h *BookingHandler) CompleteRental(ctx context.Context, req *RentalRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "CompleteRental", req.RentalID, h.rentalSvc.Complete)
}

func (h *BookingHandler) UpdateStatus(ctx context.Context, req *UpdateStatusRequest) (*RentalResponse, error) {
	return h.rentalCall(ctx, "UpdateStatus", req.RentalID, func(ctx context.Context, actor domain.Actor, id string) (*domain.RentalTransaction, error) {
		return h.rentalSvc.UpdateStatus(ctx, actor, id, domain.RentalStatus(req.Status))
	})
}

func (h *BookingHandler) SettlePayment(ctx context.Context, req *SettlePaymentRequest) (*SettlePaymentResponse, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.settlementSvc.Settle(ctx, actor, req.RentalIDs, req.PaymentToken)
	if err != nil {
		return nil, toStatus("SettlePayment", err)
	}
	return MapSettlementToWire(res), nil
}

func (h *BookingHandler) GetCart(ctx context.Context, req *GetCartRequest) (*CartResponse, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := h.cartSvc.ListDraftRentals(ctx, actor.ID)
	if err != nil {
		return nil, toStatus("GetCart", err)
	}
	return MapCartToWire(cart), nil
}

func (h *BookingHandler) ListActiveRentals(ctx context.Context, req *ListRentalsRequest) (*ListRentalsResponse, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rentals, err := h.cartSvc.ListActiveRentals(ctx, actor.ID)
	if err != nil {
		return nil, toStatus("ListActiveRentals", err)
	}
	return &ListRentalsResponse{Rentals: MapDomainRentalsToWire(rentals)}, nil
}

type rentalFunc func(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)

func (h *BookingHandler) rentalCall(ctx context.Context, method, rentalID string, fn rentalFunc) (*RentalResponse, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rt, err := fn(ctx, actor, rentalID)
	if err != nil {
		return nil, toStatus(method, err)
	}
	return &RentalResponse{Rental: MapDomainRentalToWire(rt)}, nil
}

type listFunc func(ctx context.Context, actor domain.Actor, status domain.RentalStatus) ([]domain.RentalTransaction, error)

func (h *BookingHandler) listCall(ctx context.Context, method, status string, fn listFunc) (*ListRentalsResponse, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rentals, err := fn(ctx, actor, domain.RentalStatus(status))
	if err != nil {
		return nil, toStatus(method, err)
	}
	return &ListRentalsResponse{Rentals: MapDomainRentalsToWire(rentals)}, nil
}
