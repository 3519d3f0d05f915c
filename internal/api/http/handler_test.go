package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/repository/memory"
	"rentai-booking-backend/internal/security"
	"rentai-booking-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiHarness struct {
	router http.Handler
	tokens security.TokenManager
}

func newAPIHarness(t *testing.T, ready ReadinessCheck) *apiHarness {
	t.Helper()
	store := memory.NewStore()
	store.PutItem(domain.Item{ID: "camera", OwnerID: "owner-1", PricePerDay: decimal.NewFromInt(100)})
	store.PutItem(domain.Item{ID: "tent", OwnerID: "owner-1", PricePerDay: decimal.RequireFromString("33.33")})

	cart := service.NewCartService(store.Rentals(), nil)
	h := NewBookingHandler(service.NewRentalService(store, cart), service.NewSettlementService(store, cart), cart)
	tm := security.NewTokenManager(testSecret, time.Hour)
	return &apiHarness{router: NewRouter(h, tm, ready), tokens: tm}
}

func (a *apiHarness) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		tok, err := a.tokens.GenerateAccessToken(userID, domain.UserRoleRenter)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decodeBody[errorBody](t, rec).Error.Code
}

func TestQuote(t *testing.T) {
	a := newAPIHarness(t, nil)

	rec := a.do(t, http.MethodGet, "/api/v1/quotes?item_id=camera&start_date=2024-06-01&end_date=2024-06-03", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decodeBody[struct {
		Days       int             `json:"days"`
		GrandTotal decimal.Decimal `json:"grand_total"`
	}](t, rec)
	assert.Equal(t, 3, q.Days)
	assert.True(t, decimal.NewFromInt(330).Equal(q.GrandTotal))

	rec = a.do(t, http.MethodGet, "/api/v1/quotes?item_id=camera&start_date=2024-06-03&end_date=2024-06-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_range", errorCode(t, rec))
}

func TestAuthRequired(t *testing.T) {
	a := newAPIHarness(t, nil)

	rec := a.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRentalFlow(t *testing.T) {
	a := newAPIHarness(t, nil)

	rec := a.do(t, http.MethodPost, "/api/v1/rentals", "renter-1", createRentalBody{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-01", Intent: "DRAFT"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	camera := decodeBody[domain.RentalTransaction](t, rec)
	assert.Equal(t, domain.RentalStatusDraft, camera.Status)

	rec = a.do(t, http.MethodPost, "/api/v1/rentals", "renter-1", createRentalBody{ItemID: "tent", StartDate: "2024-06-01", EndDate: "2024-06-01", Intent: "DRAFT"})
	require.Equal(t, http.StatusCreated, rec.Code)
	tent := decodeBody[domain.RentalTransaction](t, rec)

	rec = a.do(t, http.MethodGet, "/api/v1/cart", "renter-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeBody[domain.CartView](t, rec)
	assert.Len(t, cart.Rentals, 2)
	assert.True(t, decimal.RequireFromString("170").Equal(cart.Total))

	rec = a.do(t, http.MethodPost, "/api/v1/rentals/payment-bulk", "renter-1", bulkPaymentBody{RentalIDs: []string{camera.ID, tent.ID}, PaymentToken: "pay_1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settled := decodeBody[settlementResponse](t, rec)
	assert.True(t, cart.Total.Equal(settled.Total))
	assert.Len(t, settled.Rentals, 2)

	rec = a.do(t, http.MethodPost, "/api/v1/rentals/"+camera.ID+"/confirm", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RentalStatusConfirmed, decodeBody[domain.RentalTransaction](t, rec).Status)

	rec = a.do(t, http.MethodPut, "/api/v1/rentals/"+camera.ID+"/status", "owner-1", statusBody{Status: "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/rentals/"+camera.ID+"/complete", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/rentals/"+tent.ID+"/cancel", "renter-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RentalStatusCancelled, decodeBody[domain.RentalTransaction](t, rec).Status)

	rec = a.do(t, http.MethodGet, "/api/v1/rentals/my-rentals?role=owner&status=COMPLETED", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lendings := decodeBody[rentalsResponse](t, rec)
	require.Len(t, lendings.Rentals, 1)
	assert.Equal(t, camera.ID, lendings.Rentals[0].ID)

	rec = a.do(t, http.MethodGet, "/api/v1/rentals/active", "renter-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[rentalsResponse](t, rec).Rentals, 2)

	rec = a.do(t, http.MethodGet, "/api/v1/rentals/"+camera.ID, "renter-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RentalStatusCompleted, decodeBody[domain.RentalTransaction](t, rec).Status)
}

func TestErrorMapping(t *testing.T) {
	a := newAPIHarness(t, nil)

	rec := a.do(t, http.MethodPost, "/api/v1/rentals", "renter-1", createRentalBody{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-03"})
	require.Equal(t, http.StatusCreated, rec.Code)
	booked := decodeBody[domain.RentalTransaction](t, rec)

	tests := []struct {
		name       string
		method     string
		path       string
		user       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"overlap", http.MethodPost, "/api/v1/rentals", "renter-2", createRentalBody{ItemID: "camera", StartDate: "2024-06-02", EndDate: "2024-06-02"}, http.StatusConflict, "availability_conflict"},
		{"unknown item", http.MethodPost, "/api/v1/rentals", "renter-2", createRentalBody{ItemID: "drone", StartDate: "2024-06-02", EndDate: "2024-06-02"}, http.StatusNotFound, "item_not_found"},
		{"stranger", http.MethodGet, "/api/v1/rentals/" + booked.ID, "renter-2", nil, http.StatusForbidden, "forbidden"},
		{"missing rental", http.MethodGet, "/api/v1/rentals/nope", "renter-1", nil, http.StatusNotFound, "rental_not_found"},
		{"illegal transition", http.MethodPost, "/api/v1/rentals/" + booked.ID + "/complete", "owner-1", nil, http.StatusUnprocessableEntity, "illegal_transition"},
		{"empty batch", http.MethodPost, "/api/v1/rentals/payment-bulk", "renter-1", bulkPaymentBody{PaymentToken: "tok"}, http.StatusBadRequest, "empty_batch"},
		{"missing token", http.MethodPost, "/api/v1/rentals/" + booked.ID + "/payment", "renter-1", paymentBody{}, http.StatusBadRequest, "missing_payment_token"},
		{"unknown status", http.MethodPut, "/api/v1/rentals/" + booked.ID + "/status", "renter-1", statusBody{Status: "LOST"}, http.StatusBadRequest, "invalid_status"},
		{"bad role", http.MethodGet, "/api/v1/rentals/my-rentals?role=admin", "renter-1", nil, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/api/v1/rentals", "renter-1", map[string]string{"tool_id": "x"}, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestSinglePayment(t *testing.T) {
	a := newAPIHarness(t, nil)

	rec := a.do(t, http.MethodPost, "/api/v1/rentals", "renter-1", createRentalBody{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-01"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rt := decodeBody[domain.RentalTransaction](t, rec)

	rec = a.do(t, http.MethodPost, "/api/v1/rentals/"+rt.ID+"/payment", "renter-1", paymentBody{PaymentToken: "pay_9"})
	require.Equal(t, http.StatusOK, rec.Code)
	settled := decodeBody[settlementResponse](t, rec)
	require.Len(t, settled.Rentals, 1)
	assert.Equal(t, domain.RentalStatusInReview, settled.Rentals[0].Status)

	rec = a.do(t, http.MethodPost, "/api/v1/rentals/"+rt.ID+"/payment", "renter-1", paymentBody{PaymentToken: "pay_10"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := newAPIHarness(t, nil).do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newAPIHarness(t, func(ctx context.Context) error { return errors.New("db down") })
	rec = down.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "db down")
}
