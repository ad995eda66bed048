package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/uploads"
)

// multipart parse memory ceiling, larger parts spill to temp files
const maxUploadMemory = 8 << 20

type expenseJSON struct {
	ID        int64      `json:"id"`
	Amount    core.Money `json:"amount"`
	Category  string     `json:"category"`
	Date      string     `json:"date"`
	Note      string     `json:"note,omitempty"`
	Receipt   string     `json:"receipt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:        e.ID,
		Amount:    e.Amount,
		Category:  e.Category,
		Date:      e.Date.Format("2006-01-02"),
		Note:      e.Note,
		Receipt:   e.Receipt,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func parseExpenseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	expenses, err := s.repo.ListExpenses(r.Context(), user.ID)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// expenseForm carries the fields of a create or update request, from either
// a JSON body or a multipart form. Pointers distinguish absent from empty.
type expenseForm struct {
	Amount   *core.Money
	Category *string
	Date     *string
	Note     *string
	Receipt  string // stored URL of a freshly uploaded file, if any
}

// parseExpenseRequest reads the request in either encoding. A non-nil error
// has already been written to the client.
func (s *Server) parseExpenseRequest(w http.ResponseWriter, r *http.Request) (*expenseForm, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return s.parseExpenseMultipart(w, r)
	}

	var req struct {
		Amount   *core.Money `json:"amount"`
		Category *string     `json:"category"`
		Date     *string     `json:"date"`
		Note     *string     `json:"note"`
	}
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	return &expenseForm{Amount: req.Amount, Category: req.Category, Date: req.Date, Note: req.Note}, true
}

func (s *Server) parseExpenseMultipart(w http.ResponseWriter, r *http.Request) (*expenseForm, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	form := &expenseForm{}
	formValue := func(key string) *string {
		if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}

	if v := formValue("amount"); v != nil {
		cents, err := core.ParseDecimalToCents(*v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid amount")
			return nil, false
		}
		form.Amount = &core.Money{Cents: cents}
	}
	form.Category = formValue("category")
	form.Date = formValue("date")
	form.Note = formValue("note")

	file, header, err := r.FormFile("receipt")
	if err == nil {
		defer file.Close()
		url, err := s.files.Save(r.Context(), file, header, uploads.ReceiptsDir, "receipt", uploads.MaxReceiptSize)
		if err != nil {
			writeUploadError(w, r, err)
			return nil, false
		}
		form.Receipt = url
	} else if !errors.Is(err, http.ErrMissingFile) {
		respondError(w, r, http.StatusBadRequest, "invalid receipt upload")
		return nil, false
	}

	return form, true
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, uploads.ErrFileTooLarge):
		respondError(w, r, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, uploads.ErrUnsupportedType):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		respondInternalError(w, r, err)
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	form, ok := s.parseExpenseRequest(w, r)
	if !ok {
		return
	}

	// A stored upload must not survive a rejected request.
	fail := func(status int, msg string) {
		if form.Receipt != "" {
			s.files.Remove(r.Context(), form.Receipt)
		}
		respondError(w, r, status, msg)
	}

	if form.Amount == nil || form.Category == nil || form.Date == nil {
		fail(http.StatusBadRequest, "amount, category and date are required")
		return
	}

	date, err := parseExpenseDate(*form.Date)
	if err != nil {
		fail(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	e := &core.Expense{
		UserID:   user.ID,
		Amount:   *form.Amount,
		Category: strings.TrimSpace(*form.Category),
		Date:     date,
		Receipt:  form.Receipt,
	}
	if form.Note != nil {
		e.Note = strings.TrimSpace(*form.Note)
	}

	if err := e.Validate(); err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		if form.Receipt != "" {
			s.files.Remove(r.Context(), form.Receipt)
		}
		respondInternalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toExpenseJSON(*created))
}

func (s *Server) loadOwnedExpense(w http.ResponseWriter, r *http.Request) (*core.Expense, bool) {
	user := userFrom(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "expense not found")
		return nil, false
	}

	e, err := s.repo.GetExpense(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			respondError(w, r, http.StatusNotFound, "expense not found")
			return nil, false
		}
		respondInternalError(w, r, err)
		return nil, false
	}
	if e.UserID != user.ID {
		respondError(w, r, http.StatusUnauthorized, "not authorized")
		return nil, false
	}
	return e, true
}

// handleUpdateExpense applies a partial replacement. Absent or falsy fields
// keep their stored values: an empty category or date and a zero amount mean
// "unchanged". Only the note can be cleared. A new receipt upload replaces
// the old file.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadOwnedExpense(w, r)
	if !ok {
		return
	}

	form, ok := s.parseExpenseRequest(w, r)
	if !ok {
		return
	}

	oldReceipt := e.Receipt

	if form.Amount != nil && form.Amount.Cents != 0 {
		e.Amount = *form.Amount
	}
	if form.Category != nil {
		if name := strings.TrimSpace(*form.Category); name != "" {
			e.Category = name
		}
	}
	if form.Date != nil && strings.TrimSpace(*form.Date) != "" {
		date, err := parseExpenseDate(*form.Date)
		if err != nil {
			if form.Receipt != "" {
				s.files.Remove(r.Context(), form.Receipt)
			}
			respondError(w, r, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		e.Date = date
	}
	if form.Note != nil {
		e.Note = strings.TrimSpace(*form.Note)
	}
	if form.Receipt != "" {
		e.Receipt = form.Receipt
	}

	if err := e.Validate(); err != nil {
		if form.Receipt != "" {
			s.files.Remove(r.Context(), form.Receipt)
		}
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.expenses.UpdateExpense(r.Context(), e, oldReceipt)
	if err != nil {
		if form.Receipt != "" {
			s.files.Remove(r.Context(), form.Receipt)
		}
		respondInternalError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toExpenseJSON(*updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadOwnedExpense(w, r)
	if !ok {
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), e); err != nil {
		respondInternalError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, messageResponse{Message: "expense removed"})
}
