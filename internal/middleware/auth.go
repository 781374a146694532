package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/drstein77/grocerystore/internal/auth"
)

type ctxKey int

const sessionKey ctxKey = iota

// SessionParser verifies bearer tokens and resolves the session's current role.
type SessionParser interface {
	Authorize(ctx context.Context, token string) (*auth.Session, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// session in the request context.
func Authenticate(tokens SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "authorization header is missing")
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}

			session, err := tokens.Authorize(r.Context(), strings.TrimSpace(token))
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			case err != nil:
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireAdmin lets only admin sessions through. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !session.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFrom(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*auth.Session)
	return s, ok && s != nil
}
