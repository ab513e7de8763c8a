package api

import (
	"context"
	"net/http"
	"strings"

	"roastradar/internal/apperr"
	"roastradar/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// requireSession validates the bearer token once at the request boundary and
// injects the typed claims into the context for the wrapped handler.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, apperr.New(apperr.Unauthenticated, "not authenticated"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, apperr.New(apperr.Unauthenticated, "invalid authorization header"))
			return
		}
		claims, err := s.sessions.Validate(parts[1])
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, claims)))
	}
}

// currentSession returns the claims injected by requireSession.
func currentSession(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(sessionKey).(*session.Claims)
	return claims
}
