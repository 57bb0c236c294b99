package middleware

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/capsule/pkg/auth"
	"github.com/platinummonkey/capsule/pkg/contextkeys"
)

// AuthMiddleware provides session token authentication
type AuthMiddleware struct {
	codec    *auth.Codec
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware. With optional
// set, requests carrying no Authorization header pass through without an
// auth context; a header that is present but invalid is still rejected.
func NewAuthMiddleware(codec *auth.Codec, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		codec:    codec,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				// Continue without auth
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		claims, err := m.codec.Verify(parts[1])
		if err != nil {
			m.unauthorizedResponse(w, "invalid or expired token")
			return
		}

		authCtx := &auth.AuthContext{
			Subject:   claims.Subject,
			Name:      claims.Name,
			AvatarURL: claims.AvatarURL,
		}

		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		ctx = contextkeys.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	ctx := r.Context().Value(contextkeys.AuthKey)
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
