package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/session"
)

type SessionResolver interface {
	Current(ctx context.Context) (session.Session, error)
}

// RequireSession rejects requests while no shopper is logged in and stores the
// decoded session in the request context.
func RequireSession(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := resolver.Current(r.Context())
			if err != nil {
				status := http.StatusInternalServerError
				msg := "failed to read session"
				if errors.Is(err, session.ErrAuth) {
					status = http.StatusUnauthorized
					msg = "not logged in"
				}
				writeFailure(w, r, status, msg)
				return
			}

			ctx := context.WithValue(r.Context(), ctxSession, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSession(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(ctxSession).(session.Session)
	return s, ok
}
