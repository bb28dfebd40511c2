// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/auth"
	"github.com/stillpoint/serenity/internal/httputil"
	"github.com/stillpoint/serenity/pkg/logger"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

// WithPrincipal attaches a principal to the context. Exposed for tests and
// the gateway, which authenticates out of band.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// AuthMiddleware verifies bearer tokens and attaches the principal to the
// request context.
type AuthMiddleware struct {
	tokens *auth.TokenService
	log    *logger.Logger
}

// NewAuthMiddleware creates an authentication middleware.
func NewAuthMiddleware(tokens *auth.TokenService, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthMiddleware{tokens: tokens, log: log}
}

// Require returns a handler that rejects unauthenticated requests.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, apperr.Unauthorized("no token provided"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.WriteError(w, apperr.Unauthorized("invalid token format"))
			return
		}

		principal, err := m.tokens.Verify(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				httputil.WriteError(w, apperr.Unauthorized("token expired"))
				return
			}
			httputil.WriteError(w, apperr.Unauthorized("invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin gates admin-only routes. It must be mounted inside Require.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			httputil.WriteError(w, apperr.Unauthorized("no token provided"))
			return
		}
		if !principal.IsAdmin {
			httputil.WriteError(w, apperr.Forbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OwnerResolver resolves the owning user id of the resource targeted by the
// request. A NotFound error yields 404.
type OwnerResolver func(ctx context.Context, r *http.Request) (string, error)

// RequireOwnerOrAdmin gates routes on resource ownership. Admins pass
// unconditionally; otherwise the resolved owner must match the principal.
// Resolver failures other than NotFound are logged and reported as Internal.
func (m *AuthMiddleware) RequireOwnerOrAdmin(resolve OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, apperr.Unauthorized("no token provided"))
				return
			}
			if principal.IsAdmin {
				next.ServeHTTP(w, r)
				return
			}

			ownerID, err := resolve(r.Context(), r)
			if err != nil {
				if apperr.IsNotFound(err) {
					httputil.WriteError(w, err)
					return
				}
				m.log.WithError(err).WithField("path", r.URL.Path).Error("owner resolution failed")
				httputil.WriteError(w, apperr.Internal("could not verify resource ownership", err))
				return
			}
			if ownerID != principal.UserID {
				httputil.WriteError(w, apperr.Forbidden("not the resource owner"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
