package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

const CookieName = "walletapp_session"

type contextKey string

const usernameKey contextKey = "session_username"

// PrincipalStore is what the middleware needs from the session store.
type PrincipalStore interface {
	Username(ctx context.Context, token string) (string, error)
}

// CurrentUser returns the authenticated username placed in the request
// context by Require. The second return is false on unguarded routes.
func CurrentUser(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}

// WithUser is exported for handler tests.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// Require gates a route on a valid session cookie. Unauthenticated
// browsers are redirected to the login page rather than handed an error
// payload.
func Require(store PrincipalStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			username, err := store.Username(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					logger.Error("Session lookup failed", zap.Error(err))
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
		})
	}
}
