package pgsql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	"github.com/SscSPs/fundflow_engine/internal/models"
	"github.com/SscSPs/fundflow_engine/internal/utils/mapping"
	"github.com/SscSPs/fundflow_engine/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

const expenseColumns = `
	expense_id, project_id, stage_id, category, title, description, amount, expense_date,
	receipt_ref, verification_status, verification_kind, reviewer_id, reviewed_at,
	over_budget, stage_over_budget, warnings, supersedes_id, superseded_by_id,
	created_at, created_by, last_updated_at, last_updated_by, version`

// Ordering is crucial and must be stable: the cursor compares on the same tuple.
const expenseOrder = `ORDER BY expense_date, created_at, expense_id`

type PgxExpenseRepository struct {
	BaseRepository
}

func newPgxExpenseRepository(base BaseRepository) portsrepo.ExpenseRepositoryFacade {
	return &PgxExpenseRepository{BaseRepository: base}
}

var _ portsrepo.ExpenseRepositoryFacade = (*PgxExpenseRepository)(nil)

func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExpenseRecord, error) {
	query := `SELECT ` + expenseColumns + ` FROM expense_records WHERE expense_id = $1;`

	e, err := scanExpense(r.db(ctx).QueryRow(ctx, query, expenseID))
	if err != nil {
		return nil, notFound(err, "expense "+expenseID)
	}
	return &e, nil
}

func (r *PgxExpenseRepository) ListExpensesByProject(ctx context.Context, projectID string) ([]domain.ExpenseRecord, error) {
	query := `SELECT ` + expenseColumns + ` FROM expense_records WHERE project_id = $1 ` + expenseOrder + `;`
	return r.queryExpenses(ctx, projectID, query, projectID)
}

// ListExpensesByProjectPage fetches one row beyond limit to detect a following page.
func (r *PgxExpenseRepository) ListExpensesByProjectPage(ctx context.Context, projectID string, limit int, nextToken *string) ([]domain.ExpenseRecord, *string, error) {
	if limit <= 0 {
		limit = 50
	}
	fetchLimit := limit + 1

	query := `SELECT ` + expenseColumns + ` FROM expense_records WHERE project_id = $1`
	args := []any{projectID}

	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		// Tuple comparison is concise and efficient in Postgres
		query += ` AND (expense_date, created_at, expense_id) > ($2, $3, $4)`
		args = append(args, cursor.Date, cursor.CreatedAt, cursor.ID)
	}
	query += " " + expenseOrder + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	expenses, err := r.queryExpenses(ctx, projectID, query, args...)
	if err != nil {
		return nil, nil, err
	}
	if len(expenses) <= limit {
		return expenses, nil, nil
	}

	page := expenses[:limit]
	last := page[limit-1]
	token := pagination.EncodeToken(last.Date, last.CreatedAt, last.ExpenseID)
	return page, &token, nil
}

// SaveExpense upserts a ledger row. Only review and supersession columns change
// after insert.
func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense domain.ExpenseRecord) error {
	m := mapping.ToModelExpense(expense)
	query := `
		INSERT INTO expense_records (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (expense_id) DO UPDATE SET
			verification_status = EXCLUDED.verification_status,
			verification_kind = EXCLUDED.verification_kind,
			reviewer_id = EXCLUDED.reviewer_id,
			reviewed_at = EXCLUDED.reviewed_at,
			superseded_by_id = EXCLUDED.superseded_by_id,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by,
			version = expense_records.version + 1;`

	_, err := r.db(ctx).Exec(ctx, query,
		m.ExpenseID, m.ProjectID, m.StageID, m.Category, m.Title, m.Description, m.Amount, m.ExpenseDate,
		m.ReceiptRef, m.VerificationStatus, m.VerificationKind, m.ReviewerID, m.ReviewedAt,
		m.OverBudget, m.StageOverBudget, m.Warnings, m.SupersedesID, m.SupersededByID,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", m.ExpenseID, err)
	}
	return nil
}

func (r *PgxExpenseRepository) queryExpenses(ctx context.Context, projectID, query string, args ...any) ([]domain.ExpenseRecord, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses for project %s: %w", projectID, err)
	}
	defer rows.Close()

	expenses := make([]domain.ExpenseRecord, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense row for project %s: %w", projectID, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows for project %s: %w", projectID, err)
	}
	return expenses, nil
}

func scanExpense(row pgx.Row) (domain.ExpenseRecord, error) {
	var m models.ExpenseRecord
	err := row.Scan(
		&m.ExpenseID,
		&m.ProjectID,
		&m.StageID,
		&m.Category,
		&m.Title,
		&m.Description,
		&m.Amount,
		&m.ExpenseDate,
		&m.ReceiptRef,
		&m.VerificationStatus,
		&m.VerificationKind,
		&m.ReviewerID,
		&m.ReviewedAt,
		&m.OverBudget,
		&m.StageOverBudget,
		&m.Warnings,
		&m.SupersedesID,
		&m.SupersededByID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		return domain.ExpenseRecord{}, err
	}
	return mapping.ToDomainExpense(m), nil
}
