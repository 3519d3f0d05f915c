package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"rentai-booking-backend/internal/api/grpc/interceptor"
	"rentai-booking-backend/internal/security"
)

// NewServer builds a gRPC server exposing BookingService and the standard
// health service, with logging and authentication interceptors installed.
func NewServer(handler BookingServiceServer, tm security.TokenManager) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.Logging(),
			interceptor.NewAuthInterceptor(tm).Unary(),
		),
	)

	RegisterBookingServiceServer(s, handler)

	hs := health.NewServer()
	hs.SetServingStatus(BookingServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return s, hs
}
