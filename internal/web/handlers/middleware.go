package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/foodbridge/foodbridge/internal/roles"
	"github.com/foodbridge/foodbridge/internal/token"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDContextKey stores the authenticated user's id in request context.
	UserIDContextKey contextKey = "userID"
)

// AuthMiddleware requires a valid bearer token. On success the verified user
// id is placed in the request context; handlers never read identity from the
// request body.
func AuthMiddleware(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				jsonError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware requires the authenticated user to hold the admin role.
// The role is re-read from the store on every request, so a stale token
// cannot outlive a revocation. MUST be used after AuthMiddleware.
func AdminMiddleware(roleService *roles.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok || userID == "" {
				jsonError(w, "Forbidden", http.StatusForbidden)
				return
			}

			isAdmin, err := roleService.IsAdmin(r.Context(), userID)
			if err != nil {
				log.Printf("Admin check failed for %s: %v", userID, err)
				jsonError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !isAdmin {
				jsonError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext extracts the authenticated user id from request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok
}
