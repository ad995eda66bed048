package sheets

import (
	"context"

	"budgetbuddy/internal/core"
)

// ExpenseAppender is the outbound port for the spreadsheet export.
type ExpenseAppender interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
