package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"librarysvc/internal/library"
)

type ctxKey struct{}

// FromContext returns the authenticated caller put there by Middleware.
func FromContext(ctx context.Context) (*library.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*library.User)
	return u, ok
}

// WithUser is for tests that bypass the middleware.
func WithUser(ctx context.Context, u *library.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// Middleware resolves the Authorization bearer token to a user and rejects
// the request with 401 when it cannot.
func Middleware(tokens TokenStore, users library.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			userID, err := tokens.UserForAccess(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}
			u, err := users.Get(r.Context(), userID)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin gates a route group to staff users. Must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := FromContext(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if !u.IsStaff {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "permission denied"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
