package http

import (
	"log/slog"
	"net/http"
	"strings"

	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

type authResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		respondError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	if err := core.ValidateEmail(req.Email); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := core.ValidatePassword(req.Password); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	user, err := s.repo.CreateUser(r.Context(), req.Username, core.NormalizeEmail(req.Email), hash)
	if err != nil {
		if err == storage.ErrDuplicateEmail {
			respondError(w, r, http.StatusBadRequest, "email already registered")
			return
		}
		respondInternalError(w, r, err)
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, authResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	// Unknown email and wrong password answer identically.
	user, err := s.repo.GetUserByEmail(r.Context(), core.NormalizeEmail(req.Email))
	if err != nil {
		if err == storage.ErrNotFound {
			respondError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		respondInternalError(w, r, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)

	respondJSON(w, r, http.StatusOK, authResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	public := user.Public()
	public.ProfilePictureURL = absoluteURL(r, public.ProfilePictureURL)

	respondJSON(w, r, http.StatusOK, map[string]any{"user": public})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		respondError(w, r, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}
	if err := core.ValidatePassword(req.NewPassword); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		respondError(w, r, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}
	if err := s.repo.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		respondInternalError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Password updated", "user_id", user.ID)
	respondJSON(w, r, http.StatusOK, messageResponse{Message: "password updated"})
}

// absoluteURL resolves a stored relative path against the request's host so
// clients can load the image directly.
func absoluteURL(r *http.Request, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
