package user

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-user-accounts/internal/api"
	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// CurrentUserFromContext returns the authenticated user stored by the
// Authenticate middleware.
func CurrentUserFromContext(ctx context.Context) (*types.UserProfile, bool) {
	u, ok := ctx.Value(currentUserKey).(*types.UserProfile)
	return u, ok
}

// Authenticate is middleware that validates bearer tokens and rechecks the
// subject against live user state. The same 401 is returned for every
// failure mode so clients can't tell which check failed.
func Authenticate(userService UserService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.WarnContext(ctx, "Missing Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				l.WarnContext(ctx, "Invalid Authorization header format")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			currentUser, err := userService.AuthenticateToken(ctx, headerParts[1])
			if err != nil {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx = context.WithValue(ctx, currentUserKey, currentUser)
			l.DebugContext(ctx, "Authentication successful", slog.String("userID", currentUser.ID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
