package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/uploads"
)

func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := core.ValidateEmail(req.Email); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := core.NormalizeEmail(req.Email)

	taken, err := s.repo.EmailTakenByOther(r.Context(), email, user.ID)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}
	if taken {
		respondError(w, r, http.StatusBadRequest, "email already registered")
		return
	}

	if err := s.repo.UpdateUserEmail(r.Context(), user.ID, email); err != nil {
		respondInternalError(w, r, err)
		return
	}

	user.Email = email
	public := user.Public()
	public.ProfilePictureURL = absoluteURL(r, public.ProfilePictureURL)
	respondJSON(w, r, http.StatusOK, map[string]any{"user": public})
}

func (s *Server) handleUpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("profilePicture")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(w, r, http.StatusBadRequest, "profilePicture file is required")
			return
		}
		respondError(w, r, http.StatusBadRequest, "invalid profile picture upload")
		return
	}
	defer file.Close()

	url, err := s.files.Save(r.Context(), file, header, uploads.ProfilePicturesDir, "profilePicture", uploads.MaxProfilePictureSize)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}

	oldURL := user.ProfilePictureURL
	if err := s.repo.UpdateUserProfilePicture(r.Context(), user.ID, url); err != nil {
		s.files.Remove(r.Context(), url)
		respondInternalError(w, r, err)
		return
	}

	// The replaced picture is cleaned up best effort.
	if oldURL != "" {
		s.files.Remove(r.Context(), oldURL)
	}

	slog.InfoContext(r.Context(), "Profile picture updated", "user_id", user.ID)

	user.ProfilePictureURL = url
	public := user.Public()
	public.ProfilePictureURL = absoluteURL(r, public.ProfilePictureURL)
	respondJSON(w, r, http.StatusOK, map[string]any{"user": public})
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req struct {
		Currency string `json:"currency"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := core.ValidateCurrency(req.Currency); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	if err := s.repo.UpdateUserCurrency(r.Context(), user.ID, currency); err != nil {
		respondInternalError(w, r, err)
		return
	}

	user.Currency = currency
	public := user.Public()
	public.ProfilePictureURL = absoluteURL(r, public.ProfilePictureURL)
	respondJSON(w, r, http.StatusOK, map[string]any{"user": public})
}
