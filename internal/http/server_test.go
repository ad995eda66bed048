package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/insights"
	"budgetbuddy/internal/services"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/uploads"
)

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

type testEnv struct {
	server *Server
	repo   *storage.SQLiteRepository
	files  *uploads.Store
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	files, err := uploads.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create uploads store: %v", err)
	}

	cfg := &config.Config{Port: "0"}
	tokens := auth.NewTokenService("test-secret", time.Hour)
	expenses := services.NewExpenseService(repo, files, nil)
	analyzer := insights.NewAnalyzer(nil)

	srv := NewServer(cfg, repo, tokens, files, expenses, analyzer)
	t.Cleanup(func() {
		ctx, cancel := testContext()
		defer cancel()
		srv.Shutdown(ctx)
	})
	return &testEnv{server: srv, repo: repo, files: files}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) register(t *testing.T, email string) (token string, userID int64) {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "tester",
		"email":    email,
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.Token, resp.ID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestServer(t)

	token, id := env.register(t, "Alice@Example.com")
	if token == "" || id == 0 {
		t.Fatal("expected token and id")
	}

	// Duplicate registration fails with 400, regardless of case.
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "other", "email": "alice@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}

	// Login with the lowercased address works.
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Wrong password and unknown email answer the same way.
	wrong := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope22",
	})
	unknown := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "hunter22",
	})
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("credential failures must be indistinguishable: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short password", map[string]string{"username": "u", "email": "a@b.co", "password": "12345"}},
		{"bad email", map[string]string{"username": "u", "email": "not-an-email", "password": "123456"}},
		{"missing username", map[string]string{"email": "a@b.co", "password": "123456"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestServer(t)

	if rec := env.do(t, http.MethodGet, "/api/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/auth/me", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}

	token, _ := env.register(t, "me@example.com")
	rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		User struct {
			Email    string `json:"email"`
			Currency string `json:"currency"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.User.Email != "me@example.com" || resp.User.Currency != "USD" {
		t.Fatalf("unexpected profile: %+v", resp.User)
	}
}

func TestUpdatePassword(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "pw@example.com")

	rec := env.do(t, http.MethodPut, "/api/auth/updatepassword", token, map[string]string{
		"currentPassword": "wrong22", "newPassword": "newpass22",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current: expected 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/auth/updatepassword", token, map[string]string{
		"currentPassword": "hunter22", "newPassword": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak new password: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/auth/updatepassword", token, map[string]string{
		"currentPassword": "hunter22", "newPassword": "newpass22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "pw@example.com", "password": "newpass22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rec.Code)
	}
}

func TestCategoryCRUD(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "cat@example.com")

	rec := env.do(t, http.MethodPost, "/api/categories", token, map[string]string{"name": "  Groceries  "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created categoryJSON
	decodeBody(t, rec, &created)
	if created.Name != "Groceries" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}

	// Case-insensitive duplicate.
	if rec := env.do(t, http.MethodPost, "/api/categories", token, map[string]string{"name": "groceries"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/categories/%d", created.ID), token, map[string]string{"name": "Food"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: expected 404, got %d", rec.Code)
	}
}

func TestCategoryOwnership(t *testing.T) {
	env := newTestServer(t)
	aliceToken, _ := env.register(t, "alice@example.com")
	bobToken, _ := env.register(t, "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/categories", aliceToken, map[string]string{"name": "Private"})
	var created categoryJSON
	decodeBody(t, rec, &created)

	// Someone else's record is a 401, a missing record a 404.
	if rec := env.do(t, http.MethodPut, fmt.Sprintf("/api/categories/%d", created.ID), bobToken, map[string]string{"name": "Stolen"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-owner update: expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/categories/99999", bobToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing delete: expected 404, got %d", rec.Code)
	}
}

func TestExpenseCRUDJSON(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "exp@example.com")

	rec := env.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 12.34, "category": "Groceries", "date": "2026-03-10", "note": "weekly shop",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created expenseJSON
	decodeBody(t, rec, &created)
	if created.Amount.Cents != 1234 || created.Date != "2026-03-10" {
		t.Fatalf("unexpected expense: %+v", created)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("receipt")) {
		t.Fatalf("receipt field should be absent without upload: %s", rec.Body.String())
	}

	// Partial update: only the note changes, then clears.
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), token, map[string]any{"note": "updated"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated expenseJSON
	decodeBody(t, rec, &updated)
	if updated.Note != "updated" || updated.Amount.Cents != 1234 || updated.Category != "Groceries" {
		t.Fatalf("partial update changed too much: %+v", updated)
	}

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), token, map[string]any{"note": ""})
	decodeBody(t, rec, &updated)
	if updated.Note != "" {
		t.Fatalf("expected note cleared, got %q", updated.Note)
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
}

func TestUpdateExpenseFalsyFieldsKeepStored(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "falsy@example.com")

	rec := env.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 12.34, "category": "Groceries", "date": "2026-03-10", "note": "weekly",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created expenseJSON
	decodeBody(t, rec, &created)

	// An explicitly empty category keeps the stored one.
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), token, map[string]any{"category": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("empty category: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated expenseJSON
	decodeBody(t, rec, &updated)
	if updated.Category != "Groceries" {
		t.Fatalf("expected category retained, got %q", updated.Category)
	}

	// Zero amount and empty date are "unchanged" too; the absent note stays.
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), token, map[string]any{
		"amount": 0, "date": "", "category": "",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("falsy fields: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &updated)
	if updated.Amount.Cents != 1234 || updated.Date != "2026-03-10" || updated.Category != "Groceries" || updated.Note != "weekly" {
		t.Fatalf("falsy fields must keep stored values: %+v", updated)
	}
}

func TestExpenseValidation(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "val@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"amount": 0, "category": "A", "date": "2026-01-01"}},
		{"negative amount", map[string]any{"amount": -5, "category": "A", "date": "2026-01-01"}},
		{"missing category", map[string]any{"amount": 10, "date": "2026-01-01"}},
		{"bad date", map[string]any{"amount": 10, "category": "A", "date": "01/01/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/expenses", token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestExpenseListNewestFirst(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "list@example.com")

	for _, date := range []string{"2026-01-05", "2026-02-14", "2026-01-20"} {
		rec := env.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
			"amount": 10, "category": "Misc", "date": date,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d", rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/expenses", token, nil)
	var list []expenseJSON
	decodeBody(t, rec, &list)
	if len(list) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(list))
	}
	want := []string{"2026-02-14", "2026-01-20", "2026-01-05"}
	for i, date := range want {
		if list[i].Date != date {
			t.Fatalf("position %d: expected %s, got %s", i, date, list[i].Date)
		}
	}
}

func multipartExpense(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(content)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestExpenseMultipartWithReceipt(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "receipt@example.com")

	body, contentType := multipartExpense(t, map[string]string{
		"amount": "45.50", "category": "Dining Out", "date": "2026-04-01",
	}, "receipt", "scan.jpg", []byte("jpeg bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created expenseJSON
	decodeBody(t, rec, &created)
	if created.Receipt == "" || created.Amount.Cents != 4550 {
		t.Fatalf("unexpected expense: %+v", created)
	}

	onDisk := filepath.Join(env.files.Root(), uploads.ReceiptsDir, filepath.Base(created.Receipt))
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("receipt file missing: %v", err)
	}

	// Deleting the expense removes the file too.
	env.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("expected receipt removed, stat err: %v", err)
	}
}

func TestExpenseMultipartRejectionCleansUpload(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "cleanup@example.com")

	// Valid file but missing amount: the stored upload must be removed.
	body, contentType := multipartExpense(t, map[string]string{
		"category": "Misc", "date": "2026-04-01",
	}, "receipt", "scan.png", []byte("png bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	entries, err := os.ReadDir(filepath.Join(env.files.Root(), uploads.ReceiptsDir))
	if err != nil {
		t.Fatalf("read receipts dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no orphan files, found %d", len(entries))
	}
}

func TestExpenseRejectsNonImageReceipt(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "pdf@example.com")

	body, contentType := multipartExpense(t, map[string]string{
		"amount": "10", "category": "Misc", "date": "2026-04-01",
	}, "receipt", "doc.pdf", []byte("%PDF"))

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExpenseOwnership(t *testing.T) {
	env := newTestServer(t)
	aliceToken, _ := env.register(t, "alice2@example.com")
	bobToken, _ := env.register(t, "bob2@example.com")

	rec := env.do(t, http.MethodPost, "/api/expenses", aliceToken, map[string]any{
		"amount": 10, "category": "Misc", "date": "2026-01-01",
	})
	var created expenseJSON
	decodeBody(t, rec, &created)

	if rec := env.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), bobToken, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-owner delete: expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/expenses", bobToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("bob list: expected 200, got %d", rec.Code)
	} else {
		var list []expenseJSON
		decodeBody(t, rec, &list)
		if len(list) != 0 {
			t.Fatalf("bob sees alice's expenses: %+v", list)
		}
	}
}

func TestUpdateEmail(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "old@example.com")
	env.register(t, "taken@example.com")

	if rec := env.do(t, http.MethodPut, "/api/user/email", token, map[string]string{"email": "taken@example.com"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("taken email: expected 400, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPut, "/api/user/email", token, map[string]string{"email": "NEW@Example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.User.Email != "new@example.com" {
		t.Fatalf("expected lowercased email, got %q", resp.User.Email)
	}
}

func TestUpdatePreferences(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "prefs@example.com")

	if rec := env.do(t, http.MethodPut, "/api/user/preferences", token, map[string]string{"currency": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty currency: expected 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/user/preferences", token, map[string]string{"currency": "toolong"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("long currency: expected 400, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPut, "/api/user/preferences", token, map[string]string{"currency": "eur"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		User struct {
			Currency string `json:"currency"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.User.Currency != "EUR" {
		t.Fatalf("expected uppercased currency, got %q", resp.User.Currency)
	}
}

func TestProfilePictureUpload(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "pic@example.com")

	body, contentType := multipartExpense(t, nil, "profilePicture", "avatar.png", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPut, "/api/user/profile-picture", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User struct {
			ProfilePictureURL string `json:"profilePictureUrl"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.User.ProfilePictureURL == "" {
		t.Fatal("expected profile picture url")
	}
	if !bytes.Contains([]byte(resp.User.ProfilePictureURL), []byte("http://")) {
		t.Fatalf("expected absolute url, got %q", resp.User.ProfilePictureURL)
	}
}

func TestUserUpdatesResolvePictureURL(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "absolute@example.com")

	body, contentType := multipartExpense(t, nil, "profilePicture", "avatar.png", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPut, "/api/user/profile-picture", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			ProfilePictureURL string `json:"profilePictureUrl"`
		} `json:"user"`
	}

	// Email and preferences updates answer with the same absolute URL shape
	// as the upload itself.
	out := env.do(t, http.MethodPut, "/api/user/email", token, map[string]string{"email": "absolute2@example.com"})
	decodeBody(t, out, &resp)
	if !strings.HasPrefix(resp.User.ProfilePictureURL, "http://") {
		t.Fatalf("email update: expected absolute picture url, got %q", resp.User.ProfilePictureURL)
	}

	out = env.do(t, http.MethodPut, "/api/user/preferences", token, map[string]string{"currency": "EUR"})
	decodeBody(t, out, &resp)
	if !strings.HasPrefix(resp.User.ProfilePictureURL, "http://") {
		t.Fatalf("preferences update: expected absolute picture url, got %q", resp.User.ProfilePictureURL)
	}
}

func TestInsightsEndpoints(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "insights@example.com")

	paths := []string{
		"/api/predictions/spending",
		"/api/predictions/anomaly-detection",
		"/api/predictions/budget-optimization",
		"/api/predictions/behavioral-nudges",
		"/api/predictions/benchmarking",
	}
	for _, path := range paths {
		if rec := env.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", path, rec.Code)
		}
		rec := env.do(t, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
		}
		// Cached second call returns the identical payload.
		again := env.do(t, http.MethodGet, path, token, nil)
		if !bytes.Equal(rec.Body.Bytes(), again.Body.Bytes()) {
			t.Fatalf("%s: expected cached identical response", path)
		}
	}
}

func TestChatbotQuery(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.register(t, "chat@example.com")

	if rec := env.do(t, http.MethodPost, "/api/chatbot/query", token, map[string]any{"message": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message: expected 400, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/chatbot/query", token, map[string]any{"message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Reply string `json:"reply"`
	}
	decodeBody(t, rec, &resp)
	if resp.Reply == "" {
		t.Fatal("expected a reply")
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestServer(t)

	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestServer(t)

	// Warm the counters with one request before reading them.
	env.do(t, http.MethodGet, "/healthz", "", nil)

	rec := env.do(t, http.MethodGet, "/api/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status        string `json:"status"`
		TotalRequests int64  `json:"total_requests"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	}
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.TotalRequests < 2 {
		t.Fatalf("expected at least 2 counted requests, got %d", resp.TotalRequests)
	}
	if resp.UptimeSeconds < 0 {
		t.Fatalf("negative uptime: %d", resp.UptimeSeconds)
	}
}
