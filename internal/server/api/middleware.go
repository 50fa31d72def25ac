package api

import (
	"context"
	"net/http"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// userIDFromContext returns the authenticated user id stored by withSession.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// withSession validates the session token header and stores the caller's
// user id in the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(common.SessionTokenHeaderName)
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}
		userID, err := auth.GetUserIDFromToken(token, auth.KindSession, s.jwtSecret)
		if err != nil {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCSRF validates the anti-forgery header on mutating requests. The CSRF
// token must be valid and minted for the same user as the session.
func (s *Server) withCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(common.CSRFTokenHeaderName)
		if token == "" {
			http.Error(w, "missing csrf token", http.StatusForbidden)
			return
		}
		userID, err := auth.GetUserIDFromToken(token, auth.KindCSRF, s.jwtSecret)
		if err != nil || userID != userIDFromContext(r.Context()) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
