package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/security"
)

type actorKey struct{}

// ActorFromRequest returns the caller resolved by the auth middleware.
func ActorFromRequest(r *http.Request) (domain.Actor, bool) {
	actor, ok := r.Context().Value(actorKey{}).(domain.Actor)
	return actor, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogging tags the request with an id, recovers panics and logs the outcome.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithAttrs(r.Context(), "request_id", requestID, "http_method", r.Method, "path", r.URL.Path)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(ctx, "Handler panicked", "panic", p)
				writeJSON(rec, http.StatusInternalServerError, errorBody{Error: errorDetail{Code: "internal", Message: "internal error"}})
			}
			logger.DebugContext(ctx, "HTTP request", "status", rec.status, "elapsed", time.Since(start))
		}()
		next.ServeHTTP(rec, r)
	})
}

// requireAuth validates the bearer access token and stores the actor on the request.
func requireAuth(tm security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Code: "unauthenticated", Message: "authorization token is not provided"}})
				return
			}
			claims, err := tm.ValidateAccessToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Code: "unauthenticated", Message: err.Error()}})
				return
			}
			actor := claims.Actor()
			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			ctx = logger.WithAttrs(ctx, "actor_id", actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
