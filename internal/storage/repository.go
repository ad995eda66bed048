package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetbuddy/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateCategory = errors.New("category already exists for this user")
)

// Sync states for the Sheets export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Users ---

const userColumns = "id, username, email, password_hash, profile_picture_url, currency, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePictureURL, &u.Currency, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		username, email, passwordHash,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "email", email)
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// EmailTakenByOther reports whether another user already owns the address.
func (r *SQLiteRepository) EmailTakenByOther(ctx context.Context, email string, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ? AND id != ?", email, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) UpdateUserEmail(ctx context.Context, userID int64, email string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET email = ?, updated_at = ? WHERE id = ?", email, time.Now().UTC(), userID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("update user email: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", passwordHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserProfilePicture(ctx context.Context, userID int64, url string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET profile_picture_url = ?, updated_at = ? WHERE id = ?", url, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserCurrency(ctx context.Context, userID int64, currency string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET currency = ?, updated_at = ? WHERE id = ?", currency, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update currency: %w", err)
	}
	return nil
}

// --- Categories ---

const categoryColumns = "id, user_id, name, created_at, updated_at"

func scanCategory(row interface{ Scan(...any) error }) (*core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

// ListCategories returns a user's categories ordered alphabetically,
// case-insensitively.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}

// CategoryNameExists reports whether the user already has a category with
// this name (case-insensitive). excludeID skips the record being renamed;
// pass 0 for creates.
func (r *SQLiteRepository) CategoryNameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE user_id = ? AND lower(name) = lower(?) AND id != ?",
		userID, strings.TrimSpace(name), excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID int64, name string) (*core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (user_id, name) VALUES (?, ?)", userID, strings.TrimSpace(name),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateCategory
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetCategory(ctx, id)
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	return scanCategory(row)
}

func (r *SQLiteRepository) RenameCategory(ctx context.Context, id int64, name string) (*core.Category, error) {
	_, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, updated_at = ? WHERE id = ?", strings.TrimSpace(name), time.Now().UTC(), id,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateCategory
	}
	if err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}
	return r.GetCategory(ctx, id)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Expenses ---

const expenseColumns = "id, user_id, amount_cents, category, date, note, receipt, version, created_at, updated_at"

func scanExpense(row interface{ Scan(...any) error }) (*core.Expense, error) {
	var e core.Expense
	err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Date, &e.Note, &e.Receipt, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	return &e, nil
}

// ListExpenses returns a user's expenses newest date first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) (*core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, date, note, receipt)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, strings.TrimSpace(e.Category), e.Date.UTC(), e.Note, e.Receipt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return r.GetExpense(ctx, id)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	return scanExpense(row)
}

// UpdateExpense replaces the mutable fields and re-queues the record for the
// Sheets export.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e *core.Expense) (*core.Expense, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET amount_cents = ?, category = ?, date = ?, note = ?, receipt = ?,
		     sync_status = ?, version = version + 1, updated_at = ?
		 WHERE id = ?`,
		e.Amount.Cents, strings.TrimSpace(e.Category), e.Date.UTC(), e.Note, e.Receipt,
		SyncPending, time.Now().UTC(), e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Sync pipeline ---

// PendingSyncExpense carries the minimal data a sync queue message needs.
type PendingSyncExpense struct {
	ID      int64
	Version int64
}

func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, version FROM expenses WHERE sync_status = ? ORDER BY id ASC LIMIT ?",
		SyncPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncExpense
	for rows.Next() {
		var p PendingSyncExpense
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET sync_status = ? WHERE id = ?", SyncDone, id,
	); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "expense_id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET sync_status = ? WHERE id = ?", SyncError, id,
	); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "expense_id", id)
	return nil
}
