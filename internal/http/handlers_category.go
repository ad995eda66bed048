package http

import (
	"net/http"
	"strconv"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

type categoryJSON struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	cats, err := s.repo.ListCategories(r.Context(), user.ID)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryJSON(c))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := (core.Category{Name: req.Name}).Validate(); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.repo.CreateCategory(r.Context(), user.ID, req.Name)
	if err != nil {
		if err == storage.ErrDuplicateCategory {
			respondError(w, r, http.StatusBadRequest, "category already exists")
			return
		}
		respondInternalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toCategoryJSON(*created))
}

// loadOwnedCategory fetches a category and enforces ownership: missing is a
// 404, someone else's record is a 401.
func (s *Server) loadOwnedCategory(w http.ResponseWriter, r *http.Request) (*core.Category, bool) {
	user := userFrom(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "category not found")
		return nil, false
	}

	cat, err := s.repo.GetCategory(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			respondError(w, r, http.StatusNotFound, "category not found")
			return nil, false
		}
		respondInternalError(w, r, err)
		return nil, false
	}
	if cat.UserID != user.ID {
		respondError(w, r, http.StatusUnauthorized, "not authorized")
		return nil, false
	}
	return cat, true
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.loadOwnedCategory(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := (core.Category{Name: req.Name}).Validate(); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Renaming to the same spelling (modulo case) of another category is a
	// duplicate; renaming itself is fine.
	taken, err := s.repo.CategoryNameExists(r.Context(), cat.UserID, req.Name, cat.ID)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}
	if taken {
		respondError(w, r, http.StatusBadRequest, "category already exists")
		return
	}

	updated, err := s.repo.RenameCategory(r.Context(), cat.ID, req.Name)
	if err != nil {
		// A concurrent create can slip past the pre-check, the unique index
		// still catches it.
		if err == storage.ErrDuplicateCategory {
			respondError(w, r, http.StatusBadRequest, "category already exists")
			return
		}
		respondInternalError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCategoryJSON(*updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.loadOwnedCategory(w, r)
	if !ok {
		return
	}

	if err := s.repo.DeleteCategory(r.Context(), cat.ID); err != nil {
		respondInternalError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, messageResponse{Message: "category removed"})
}
