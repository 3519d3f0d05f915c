package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/repository/memory"
	"rentai-booking-backend/internal/security"
	"rentai-booking-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	client *BookingServiceClient
	conn   *grpc.ClientConn
	tokens security.TokenManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	store.PutItem(domain.Item{ID: "camera", OwnerID: "owner-1", PricePerDay: decimal.NewFromInt(100)})
	store.PutItem(domain.Item{ID: "tent", OwnerID: "owner-1", PricePerDay: decimal.RequireFromString("33.33")})

	cart := service.NewCartService(store.Rentals(), nil)
	handler := NewBookingHandler(
		service.NewRentalService(store, cart),
		service.NewSettlementService(store, cart),
		cart,
	)
	tm := security.NewTokenManager(testSecret, time.Hour)
	srv, _ := NewServer(handler, tm)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &harness{client: NewBookingServiceClient(conn), conn: conn, tokens: tm}
}

func (h *harness) as(t *testing.T, userID string) context.Context {
	t.Helper()
	tok, err := h.tokens.GenerateAccessToken(userID, domain.UserRoleRenter)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func TestBookingService_QuoteIsPublic(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.GetQuote(context.Background(), &QuoteRequest{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-03"})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Days)
	assert.Equal(t, "300.00", resp.Subtotal)
	assert.Equal(t, "15.00", resp.ServiceFee)
	assert.Equal(t, "330.00", resp.GrandTotal)
}

func TestBookingService_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.GetCart(context.Background(), &GetCartRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer garbage")
	_, err = h.client.GetCart(ctx, &GetCartRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestBookingService_SpoofedIdentityIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := metadata.AppendToOutgoingContext(h.as(t, "renter-1"), "user-id", "owner-1")

	resp, err := h.client.CreateReservation(ctx, &CreateReservationRequest{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-01"})
	require.NoError(t, err)
	assert.Equal(t, "renter-1", resp.Rental.RenterID)
}

func TestBookingService_Lifecycle(t *testing.T) {
	h := newHarness(t)
	renter := h.as(t, "renter-1")
	owner := h.as(t, "owner-1")

	a, err := h.client.CreateReservation(renter, &CreateReservationRequest{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-01", Intent: "DRAFT"})
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", a.Rental.Status)
	assert.Equal(t, "120.00", a.Rental.TotalPrice)

	b, err := h.client.CreateReservation(renter, &CreateReservationRequest{ItemID: "tent", StartDate: "2024-06-01", EndDate: "2024-06-01", Intent: "DRAFT"})
	require.NoError(t, err)

	cart, err := h.client.GetCart(renter, &GetCartRequest{})
	require.NoError(t, err)
	assert.Len(t, cart.Rentals, 2)

	settled, err := h.client.SettlePayment(renter, &SettlePaymentRequest{RentalIDs: []string{a.Rental.ID, b.Rental.ID}, PaymentToken: "pay_123"})
	require.NoError(t, err)
	require.Len(t, settled.Rentals, 2)
	assert.Equal(t, cart.Total, settled.Total)
	for _, rt := range settled.Rentals {
		assert.Equal(t, "IN_REVIEW", rt.Status)
		assert.Equal(t, "pay_123", rt.PaymentToken)
	}

	cart, err = h.client.GetCart(renter, &GetCartRequest{})
	require.NoError(t, err)
	assert.Empty(t, cart.Rentals)
	assert.Equal(t, "0.00", cart.Total)

	confirmed, err := h.client.ConfirmRental(owner, &RentalRequest{RentalID: a.Rental.ID})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Rental.Status)

	_, err = h.client.StartRental(owner, &RentalRequest{RentalID: a.Rental.ID})
	require.NoError(t, err)
	done, err := h.client.CompleteRental(owner, &RentalRequest{RentalID: a.Rental.ID})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", done.Rental.Status)

	rejected, err := h.client.RejectRental(owner, &RentalRequest{RentalID: b.Rental.ID})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", rejected.Rental.Status)

	lendings, err := h.client.ListMyLendings(owner, &ListRentalsRequest{Status: "COMPLETED"})
	require.NoError(t, err)
	require.Len(t, lendings.Rentals, 1)
	assert.Equal(t, a.Rental.ID, lendings.Rentals[0].ID)

	mine, err := h.client.ListMyRentals(renter, &ListRentalsRequest{})
	require.NoError(t, err)
	assert.Len(t, mine.Rentals, 2)

	active, err := h.client.ListActiveRentals(renter, &ListRentalsRequest{})
	require.NoError(t, err)
	assert.Len(t, active.Rentals, 2)
}

func TestBookingService_ErrorCodes(t *testing.T) {
	h := newHarness(t)
	renter := h.as(t, "renter-1")
	other := h.as(t, "renter-2")

	first, err := h.client.CreateReservation(renter, &CreateReservationRequest{ItemID: "camera", StartDate: "2024-06-01", EndDate: "2024-06-03"})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"inverted range", func() error {
			_, err := h.client.CreateReservation(renter, &CreateReservationRequest{ItemID: "camera", StartDate: "2024-06-05", EndDate: "2024-06-01"})
			return err
		}, codes.InvalidArgument},
		{"unknown item", func() error {
			_, err := h.client.GetQuote(context.Background(), &QuoteRequest{ItemID: "nope", StartDate: "2024-06-01", EndDate: "2024-06-01"})
			return err
		}, codes.NotFound},
		{"overlap", func() error {
			_, err := h.client.CreateReservation(other, &CreateReservationRequest{ItemID: "camera", StartDate: "2024-06-03", EndDate: "2024-06-04"})
			return err
		}, codes.AlreadyExists},
		{"stranger", func() error {
			_, err := h.client.GetRental(other, &RentalRequest{RentalID: first.Rental.ID})
			return err
		}, codes.PermissionDenied},
		{"illegal transition", func() error {
			_, err := h.client.CompleteRental(renter, &RentalRequest{RentalID: first.Rental.ID})
			return err
		}, codes.FailedPrecondition},
		{"empty batch", func() error {
			_, err := h.client.SettlePayment(renter, &SettlePaymentRequest{PaymentToken: "tok"})
			return err
		}, codes.InvalidArgument},
		{"bad status", func() error {
			_, err := h.client.UpdateStatus(renter, &UpdateStatusRequest{RentalID: first.Rental.ID, Status: "LOST"})
			return err
		}, codes.InvalidArgument},
		{"missing rental", func() error {
			_, err := h.client.CancelRental(renter, &RentalRequest{RentalID: "missing"})
			return err
		}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.call()))
		})
	}
}

func TestHealthService(t *testing.T) {
	h := newHarness(t)

	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: BookingServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
