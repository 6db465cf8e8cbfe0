package repositories

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// ExpenseReader defines read operations for the expense ledger
type ExpenseReader interface {
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseRecord, error)

	// ListExpensesByProject returns every record, superseded and rejected included.
	ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseRecord, error)

	// ListExpensesByProjectPage returns records ordered by date then creation time,
	// starting after nextToken, and a token for the following page.
	ListExpensesByProjectPage(ctx context.Context, projectID string, limit int, nextToken *string) ([]domain.ExpenseRecord, *string, error)
}

// ExpenseWriter defines write operations for the expense ledger. Records are
// never deleted.
type ExpenseWriter interface {
	SaveExpense(ctx context.Context, expense domain.ExpenseRecord) error
}

// ExpenseRepositoryFacade combines all expense-related repository interfaces
type ExpenseRepositoryFacade interface {
	ExpenseReader
	ExpenseWriter
}
