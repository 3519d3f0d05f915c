package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/security"
)

// ReadinessCheck reports whether the backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

// NewRouter registers the booking REST routes. Fixed paths are registered
// before /rentals/{id} so they are not captured as ids.
func NewRouter(h *BookingHandler, tm security.TokenManager, ready ReadinessCheck) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogging)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/quotes", h.GetQuote).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(requireAuth(tm))

	authed.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	authed.HandleFunc("/rentals", h.CreateRental).Methods(http.MethodPost)
	authed.HandleFunc("/rentals/my-rentals", h.ListMyRentals).Methods(http.MethodGet)
	authed.HandleFunc("/rentals/active", h.ListActiveRentals).Methods(http.MethodGet)
	authed.HandleFunc("/rentals/payment-bulk", h.BulkPayment).Methods(http.MethodPost)
	authed.HandleFunc("/rentals/{id}", h.GetRental).Methods(http.MethodGet)
	authed.HandleFunc("/rentals/{id}/payment", h.Payment).Methods(http.MethodPost)
	authed.HandleFunc("/rentals/{id}/status", h.UpdateStatus).Methods(http.MethodPut)
	authed.HandleFunc("/rentals/{id}/{action:cancel|confirm|reject|start|complete}", h.Transition).Methods(http.MethodPost)

	return router
}
