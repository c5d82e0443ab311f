package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "rentals/pkg/errors"
	httputil "rentals/pkg/http"
	"rentals/pkg/logger"
)

const ActorIDKey contextKey = "actor_id"

// ActorHeader carries the id of the already authenticated user.
const ActorHeader = "X-User-ID"

const maxActorIDLength = 128

// Actor places the caller's id from ActorHeader into the request context. Requests
// under /api/ without one are rejected.
func Actor(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(ActorHeader))

			if actorID == "" || len(actorID) > maxActorIDLength {
				if !strings.HasPrefix(r.URL.Path, "/api/") {
					next.ServeHTTP(w, r)
					return
				}
				log.Warn("Request without valid actor",
					"request_id", RequestIDFrom(r.Context()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Missing or invalid "+ActorHeader+" header"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actorID)))
		})
	}
}

func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// ActorFrom returns the actor id stored by Actor, or "" when absent.
func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ActorIDKey).(string); ok {
		return id
	}
	return ""
}
