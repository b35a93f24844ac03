package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lookatme/backend/internal/auth"
	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/repositories"
)

// TokenVerifier validates an access token and returns the user id it was issued to.
type TokenVerifier interface {
	Verify(accessToken string) (int64, error)
}

// UserLookup loads the current state of a user.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
}

// RequireUser rejects requests without a valid access token. The token is read from
// the Authorization bearer header or, failing that, the access token cookie.
func RequireUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("rejected access token", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			ctx = logging.With(ctx, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after RequireUser. It re-reads the user on every request so
// a revoked role takes effect immediately.
func RequireAdmin(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			userID, ok := auth.UserIDFromContext(ctx)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "authenticated user not found")
					return
				}
				logger.Error("admin lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "unable to verify permissions")
				return
			}

			if user.Role != models.RoleAdmin {
				logger.Warn("non-admin attempted admin access", "role", user.Role, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(auth.AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
