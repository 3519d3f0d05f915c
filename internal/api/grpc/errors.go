package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
)

// toStatus converts a service error into a gRPC status.
func toStatus(method string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidRate),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrMissingPaymentToken),
		errors.Is(err, domain.ErrInvalidStatus):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrOwnership):
		code = codes.PermissionDenied
	case errors.Is(err, domain.ErrRentalNotFound), errors.Is(err, domain.ErrItemNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrAvailabilityConflict):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrStaleState):
		code = codes.Aborted
	case errors.Is(err, domain.ErrIllegalTransition):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		logger.Error("Unhandled error", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
