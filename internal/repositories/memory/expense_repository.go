package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	"github.com/SscSPs/fundflow_engine/internal/utils/pagination"
)

type expenseRepository struct {
	store *Store
}

var _ portsrepo.ExpenseRepositoryFacade = (*expenseRepository)(nil)

func (r *expenseRepository) FindExpenseByID(_ context.Context, expenseID string) (*domain.ExpenseRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
	}
	out := cloneExpense(e)
	return &out, nil
}

func (r *expenseRepository) ListExpensesByProject(_ context.Context, projectID string) ([]domain.ExpenseRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.sortedForProject(projectID), nil
}

func (r *expenseRepository) ListExpensesByProjectPage(_ context.Context, projectID string, limit int, nextToken *string) ([]domain.ExpenseRecord, *string, error) {
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		cursor = &c
	}

	r.store.mu.RLock()
	all := r.sortedForProject(projectID)
	r.store.mu.RUnlock()

	page := make([]domain.ExpenseRecord, 0, limit)
	hasMore := false
	for _, e := range all {
		if cursor != nil && !cursor.After(e.Date, e.CreatedAt, e.ExpenseID) {
			continue
		}
		if len(page) == limit {
			hasMore = true
			break
		}
		page = append(page, e)
	}

	if !hasMore || len(page) == 0 {
		return page, nil, nil
	}
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.Date, last.CreatedAt, last.ExpenseID)
	return page, &token, nil
}

func (r *expenseRepository) SaveExpense(ctx context.Context, expense domain.ExpenseRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recordUndo(ctx, r.store.expenses, expense.ExpenseID)
	r.store.expenses[expense.ExpenseID] = cloneExpense(expense)
	return nil
}

// sortedForProject must be called with the read lock held.
func (r *expenseRepository) sortedForProject(projectID string) []domain.ExpenseRecord {
	out := make([]domain.ExpenseRecord, 0)
	for _, e := range r.store.expenses {
		if e.ProjectID == projectID {
			out = append(out, cloneExpense(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ExpenseID < b.ExpenseID
	})
	return out
}
