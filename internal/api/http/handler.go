package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/service"
)

// BookingHandler serves the REST surface of the booking engine.
type BookingHandler struct {
	rentalSvc     service.RentalService
	settlementSvc service.SettlementService
	cartSvc       service.CartService
}

func NewBookingHandler(rentalSvc service.RentalService, settlementSvc service.SettlementService, cartSvc service.CartService) *BookingHandler {
	return &BookingHandler{rentalSvc: rentalSvc, settlementSvc: settlementSvc, cartSvc: cartSvc}
}

type createRentalBody struct {
	ItemID    string `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Intent    string `json:"intent"`
}

type bulkPaymentBody struct {
	RentalIDs    []string `json:"rental_ids"`
	PaymentToken string   `json:"payment_token"`
}

type paymentBody struct {
	PaymentToken string `json:"payment_token"`
}

type statusBody struct {
	Status string `json:"status"`
}

type rentalsResponse struct {
	Rentals []domain.RentalTransaction `json:"rentals"`
}

type settlementResponse struct {
	PaymentToken string                     `json:"payment_token"`
	Rentals      []domain.RentalTransaction `json:"rentals"`
	Total        decimal.Decimal            `json:"total"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (h *BookingHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := h.rentalSvc.Quote(r.Context(), q.Get("item_id"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *BookingHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var body createRentalBody
	if !decode(w, r, &body) {
		return
	}
	actor, _ := ActorFromRequest(r)
	rt, err := h.rentalSvc.CreateReservation(r.Context(), actor, service.CreateReservationInput{
		ItemID:    body.ItemID,
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		Intent:    domain.Intent(body.Intent),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}

// ListMyRentals lists the caller's rentals as renter, or as owner with ?role=owner.
func (h *BookingHandler) ListMyRentals(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromRequest(r)
	status := domain.RentalStatus(r.URL.Query().Get("status"))

	list := h.rentalSvc.ListRentals
	switch r.URL.Query().Get("role") {
	case "", "renter":
	case "owner":
		list = h.rentalSvc.ListLendings
	default:
		writeBadRequest(w, "role must be renter or owner")
		return
	}

	rentals, err := list(r.Context(), actor, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentalsResponse{Rentals: nonNil(rentals)})
}

func (h *BookingHandler) ListActiveRentals(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromRequest(r)
	rentals, err := h.cartSvc.ListActiveRentals(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentalsResponse{Rentals: nonNil(rentals)})
}

func (h *BookingHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromRequest(r)
	cart, err := h.cartSvc.ListDraftRentals(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *BookingHandler) GetRental(w http.ResponseWriter, r *http.Request) {
	h.rentalAction(w, r, h.rentalSvc.GetRental)
}

func (h *BookingHandler) BulkPayment(w http.ResponseWriter, r *http.Request) {
	var body bulkPaymentBody
	if !decode(w, r, &body) {
		return
	}
	actor, _ := ActorFromRequest(r)
	h.writeSettlement(w, r, func() (*service.SettlementResult, error) {
		return h.settlementSvc.Settle(r.Context(), actor, body.RentalIDs, body.PaymentToken)
	})
}

func (h *BookingHandler) Payment(w http.ResponseWriter, r *http.Request) {
	var body paymentBody
	if !decode(w, r, &body) {
		return
	}
	actor, _ := ActorFromRequest(r)
	h.writeSettlement(w, r, func() (*service.SettlementResult, error) {
		return h.settlementSvc.SettleOne(r.Context(), actor, mux.Vars(r)["id"], body.PaymentToken)
	})
}

func (h *BookingHandler) writeSettlement(w http.ResponseWriter, r *http.Request, settle func() (*service.SettlementResult, error)) {
	res, err := settle()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse{PaymentToken: res.PaymentToken, Rentals: res.Rentals, Total: res.Total})
}

// Transition dispatches POST /rentals/{id}/{action}.
func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var fn func(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)
	switch mux.Vars(r)["action"] {
	case "cancel":
		fn = h.rentalSvc.Cancel
	case "confirm":
		fn = h.rentalSvc.Confirm
	case "reject":
		fn = h.rentalSvc.Reject
	case "start":
		fn = h.rentalSvc.StartFulfillment
	case "complete":
		fn = h.rentalSvc.Complete
	default:
		http.NotFound(w, r)
		return
	}
	h.rentalAction(w, r, fn)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decode(w, r, &body) {
		return
	}
	h.rentalAction(w, r, func(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error) {
		return h.rentalSvc.UpdateStatus(ctx, actor, rentalID, domain.RentalStatus(body.Status))
	})
}

func (h *BookingHandler) rentalAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor domain.Actor, rentalID string) (*domain.RentalTransaction, error)) {
	actor, _ := ActorFromRequest(r)
	rt, err := fn(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func nonNil(rentals []domain.RentalTransaction) []domain.RentalTransaction {
	if rentals == nil {
		return []domain.RentalTransaction{}
	}
	return rentals
}
