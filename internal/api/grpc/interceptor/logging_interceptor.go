package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentai-booking-backend/internal/logger"
)

// Logging tags each call with a request id and logs its outcome. It also turns
// handler panics into codes.Internal.
func Logging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		ctx = logger.WithAttrs(ctx, "request_id", uuid.NewString(), "grpc_method", info.FullMethod)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "Handler panicked", "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			if code == codes.OK || code == codes.NotFound {
				logger.DebugContext(ctx, "gRPC call", "code", code.String(), "elapsed", time.Since(start))
			} else {
				logger.InfoContext(ctx, "gRPC call", "code", code.String(), "elapsed", time.Since(start))
			}
		}()

		return handler(ctx, req)
	}
}
