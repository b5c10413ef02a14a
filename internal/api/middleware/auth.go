package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// DefaultIdentityHeader carries the token identifier of the signed-in user.
// The gateway in front of the service verifies the session and sets it.
const DefaultIdentityHeader = "X-Identity-Token"

// IdentityMiddleware copies the caller identity from a trusted header into
// the request context.
type IdentityMiddleware struct {
	header string
}

// NewIdentityMiddleware creates a new identity middleware reading header.
func NewIdentityMiddleware(header string) *IdentityMiddleware {
	if header == "" {
		header = DefaultIdentityHeader
	}
	return &IdentityMiddleware{header: header}
}

// Attach stores the identity, if any, in the request context.
func (m *IdentityMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := strings.TrimSpace(r.Header.Get(m.header))
		if identity == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireIdentity rejects requests without an identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentityFromContext(r.Context()) == "" {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// GetIdentityFromContext retrieves the caller identity from the request context.
func GetIdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(IdentityContextKey).(string)
	return identity
}
