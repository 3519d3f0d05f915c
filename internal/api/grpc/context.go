package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rentai-booking-backend/internal/domain"
)

// ActorFromContext extracts the authenticated caller from the gRPC metadata.
// The auth interceptor overwrites the "user-id" and "user-role" headers after
// validating the access token.
func ActorFromContext(ctx context.Context) (domain.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get("user-id")
	if len(userIDs) == 0 || userIDs[0] == "" {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}

	actor := domain.Actor{ID: userIDs[0]}
	if roles := md.Get("user-role"); len(roles) > 0 {
		actor.Role = domain.UserRole(roles[0])
	}
	return actor, nil
}
