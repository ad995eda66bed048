// Package worker exports pending expenses to a spreadsheet. It consumes
// sync messages from AMQP and sweeps the pending queue as a backstop for
// lost messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/sheets"
	"budgetbuddy/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.ExpenseAppender
	batchSize int
}

func NewSyncWorker(repo *storage.SQLiteRepository, appender sheets.ExpenseAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports the expense referenced by one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)
	return w.exportExpense(ctx, msg.ID)
}

// ProcessPendingExpenses sweeps one batch of the pending queue. This is a
// backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense", "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains pending expenses left over from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense during startup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *SyncWorker) exportExpense(ctx context.Context, id int64) error {
	expense, err := w.storage.GetExpense(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.appender.Append(ctx, *expense)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The export itself worked, only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Expense exported",
		"id", id,
		"sheets_ref", ref,
		"amount_cents", expense.Amount.Cents)

	return nil
}
