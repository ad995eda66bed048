// Package services orchestrates expense operations across storage, uploaded
// files, and the optional sync pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/uploads"
)

// ExpenseService ties expense CRUD to receipt files and sync publishing.
// amqpClient may be nil, in which case sync messages are skipped.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	files      *uploads.Store
	amqpClient *amqp.Client
}

func NewExpenseService(repo *storage.SQLiteRepository, files *uploads.Store, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		storage:    repo,
		files:      files,
		amqpClient: amqpClient,
	}
}

// CreateExpense saves the expense and queues it for spreadsheet export.
func (s *ExpenseService) CreateExpense(ctx context.Context, e *core.Expense) (*core.Expense, error) {
	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}

	s.publishSyncMessage(ctx, created.ID, 1)
	return created, nil
}

// UpdateExpense replaces the stored record. When the receipt changed, the
// old file is removed best effort after the database write succeeds.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e *core.Expense, oldReceipt string) (*core.Expense, error) {
	updated, err := s.storage.UpdateExpense(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	if oldReceipt != "" && oldReceipt != updated.Receipt {
		s.files.Remove(ctx, oldReceipt)
	}

	s.publishSyncMessage(ctx, updated.ID, 0)
	return updated, nil
}

// DeleteExpense removes the record and its receipt file, if any.
func (s *ExpenseService) DeleteExpense(ctx context.Context, e *core.Expense) error {
	if err := s.storage.DeleteExpense(ctx, e.ID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	if e.Receipt != "" {
		s.files.Remove(ctx, e.Receipt)
	}
	return nil
}

func (s *ExpenseService) publishSyncMessage(ctx context.Context, id, version int64) {
	if s.amqpClient == nil {
		return
	}
	if version == 0 {
		// Look the current version up, the update already bumped it.
		e, err := s.storage.GetExpense(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load expense for sync message", "id", id, "error", err)
			return
		}
		version = e.Version
	}
	// Publish failures never fail the request, the expense is saved locally
	// and the pending sweep picks it up later.
	if err := s.amqpClient.PublishExpenseSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}
