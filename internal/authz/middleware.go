package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/batasku/periodgate/internal/platform/httpx"
)

type actorKey struct{}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor resolved by RequireActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// RequireActor rejects requests without a valid upstream session and
// injects the resolved actor into the request context.
func (r *Resolver) RequireActor(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			actor, ok, err := r.Resolve(req.Context(), SessionID(req))
			if err != nil {
				log.ErrorContext(req.Context(), "session resolution failed", slog.Any("error", err))
				httpx.RespondError(w, httpx.Upstream("could not verify session").Wrap(err))
				return
			}
			if !ok {
				httpx.RespondError(w, httpx.Unauthenticated("authentication required"))
				return
			}
			next.ServeHTTP(w, req.WithContext(WithActor(req.Context(), actor)))
		})
	}
}
