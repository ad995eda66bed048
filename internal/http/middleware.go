package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

type contextKey string

const userContextKey contextKey = "user"

// withUser authenticates the Bearer token and loads the account into the
// request context. Expired and malformed tokens both come back as 401, they
// differ only in the logs.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(w, r, http.StatusUnauthorized, "authorization required")
			return
		}

		userID, err := s.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			slog.WarnContext(r.Context(), "Token rejected", "error", err)
			respondError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := s.repo.GetUserByID(r.Context(), userID)
		if err != nil {
			if err == storage.ErrNotFound {
				respondError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			respondInternalError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

func userFrom(r *http.Request) *core.User {
	u, _ := r.Context().Value(userContextKey).(*core.User)
	return u
}
