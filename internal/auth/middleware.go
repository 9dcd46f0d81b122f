package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
)

type contextKey struct{}

// identityKey stores the resolved identity on the request context.
var identityKey = contextKey{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached to the context, if any.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// Middleware is the plain-request adapter. It resolves the credential from
// the Authorization header or the token query parameter and attaches the
// identity to the request context. Requests with no resolvable credential
// pass through unauthenticated; handlers decide whether an identity is
// required. The query-parameter path exists for the privileged beacon action,
// which cannot set arbitrary headers during page unload.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.Resolve(r.Context(), raw)
			if err != nil {
				log.Debug().
					Err(err).
					Str("path", r.URL.Path).
					Msg("request credential did not resolve, passing through unauthenticated")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireIdentity returns the authenticated identity on the request context
// or an unauthenticated failure.
func RequireIdentity(r *http.Request) (models.Identity, error) {
	id, ok := IdentityFromContext(r.Context())
	if !ok || !id.Authenticated {
		return models.Identity{}, apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	return id, nil
}
