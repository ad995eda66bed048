package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

type fakeAppender struct {
	appended []core.Expense
	fail     bool
}

func (f *fakeAppender) Append(_ context.Context, e core.Expense) (string, error) {
	if f.fail {
		return "", errors.New("sheets unavailable")
	}
	f.appended = append(f.appended, e)
	return "Expenses!A2:E2", nil
}

func setup(t *testing.T) (*storage.SQLiteRepository, *core.Expense) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	u, err := repo.CreateUser(ctx, "tester", "worker@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	e, err := repo.CreateExpense(ctx, &core.Expense{
		UserID:   u.ID,
		Amount:   core.Money{Cents: 999},
		Category: "Groceries",
		Date:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return repo, e
}

func TestHandleSyncMessage(t *testing.T) {
	repo, e := setup(t)
	appender := &fakeAppender{}
	w := NewSyncWorker(repo, appender, 10)
	ctx := context.Background()

	if err := w.HandleSyncMessage(ctx, amqp.NewExpenseSyncMessage(e.ID, 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(appender.appended) != 1 || appender.appended[0].ID != e.ID {
		t.Fatalf("expected one appended expense, got %+v", appender.appended)
	}

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected expense marked synced, still pending: %+v", pending)
	}
}

func TestHandleSyncMessageAppendFailure(t *testing.T) {
	repo, e := setup(t)
	w := NewSyncWorker(repo, &fakeAppender{fail: true}, 10)
	ctx := context.Background()

	if err := w.HandleSyncMessage(ctx, amqp.NewExpenseSyncMessage(e.ID, 1)); err == nil {
		t.Fatal("expected error from failing appender")
	}

	// Record should be parked in error state, not left pending forever.
	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending after sync error, got %+v", pending)
	}
}

func TestStartupSyncCheckDrainsQueue(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	u, _ := repo.GetUserByEmail(ctx, "worker@example.com")
	for i := 0; i < 3; i++ {
		if _, err := repo.CreateExpense(ctx, &core.Expense{
			UserID:   u.ID,
			Amount:   core.Money{Cents: 100},
			Category: "Misc",
			Date:     time.Now().UTC(),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	appender := &fakeAppender{}
	w := NewSyncWorker(repo, appender, 2)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if len(appender.appended) != 4 {
		t.Fatalf("expected 4 exported expenses, got %d", len(appender.appended))
	}
}
