// Package middleware holds admin API middleware: bearer-token auth and
// JSON panic recovery.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jwren/castellan/internal/api/apierr"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/services/auth"
)

type contextKey string

const userContextKey contextKey = "user"

// Auth requires a valid bearer token and attaches the user to the
// request context
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			user, err := authService.ValidateToken(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManageNodes rejects users without the manage-nodes permission.
// Must be applied after Auth.
func RequireManageNodes(next http.Handler) http.Handler {
	return requirePermission(next, func(p model.Permissions) bool { return p.CanManageNodes })
}

// RequireManageGames rejects users without the manage-games permission.
// Must be applied after Auth.
func RequireManageGames(next http.Handler) http.Handler {
	return requirePermission(next, func(p model.Permissions) bool { return p.CanManageGames })
}

func requirePermission(next http.Handler, allowed func(model.Permissions) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil || !allowed(user.Permissions) {
			apierr.WriteError(w, model.ErrNotPermitted)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// GetUser returns the authenticated user from the request context
func GetUser(ctx context.Context) *model.UserDetails {
	user, _ := ctx.Value(userContextKey).(*model.UserDetails)
	return user
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.UserDetails {
	user := GetUser(ctx)
	if user == nil {
		panic("no user in context - auth middleware not applied?")
	}
	return user
}
