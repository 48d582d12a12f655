package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserLookup loads the user an access token was issued for
type UserLookup func(ctx context.Context, id string) (*models.UserAuth, error)

// BearerToken reads the Authorization header, falling back to ?token= since
// browsers cannot set headers on WebSocket handshakes
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Split(h, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Identify returns the active user behind the request token, or nil
func Identify(r *http.Request, secret string, lookup UserLookup) *models.UserAuth {
	token := BearerToken(r)
	if token == "" {
		return nil
	}
	id, err := utils.AccessTokenUserID(token, secret)
	if err != nil {
		return nil
	}
	user, err := lookup(r.Context(), id)
	if err != nil || user == nil || !user.IsActive {
		return nil
	}
	return user
}

// AuthMiddleware verifies JWT tokens and stores the user in the request context
func AuthMiddleware(secret string, lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if BearerToken(r) == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			user := Identify(r, secret, lookup)
			if user == nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *models.UserAuth {
	user, _ := ctx.Value(UserContextKey).(*models.UserAuth)
	return user
}

// RequirePermission rejects requests whose user fails check with 403
func RequirePermission(check func(*models.UserAuth) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(UserFromContext(r.Context())) {
				http.Error(w, "Permission denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
