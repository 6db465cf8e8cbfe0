package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	"github.com/SscSPs/fundflow_engine/internal/models"
	"github.com/SscSPs/fundflow_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

const projectColumns = `
	project_id, creator_id, title, goal_amount, current_amount, status, total_budget,
	start_date, end_date, stages_completed_at, status_history,
	created_at, created_by, last_updated_at, last_updated_by, version`

type PgxProjectRepository struct {
	BaseRepository
}

func newPgxProjectRepository(base BaseRepository) portsrepo.ProjectRepositoryFacade {
	return &PgxProjectRepository{BaseRepository: base}
}

// Ensure PgxProjectRepository implements portsrepo.ProjectRepositoryFacade
var _ portsrepo.ProjectRepositoryFacade = (*PgxProjectRepository)(nil)

// FindProjectByID retrieves a project by its ID.
func (r *PgxProjectRepository) FindProjectByID(ctx context.Context, projectID string) (*domain.FundingProject, error) {
	query := `SELECT ` + projectColumns + ` FROM funding_projects WHERE project_id = $1;`

	project, err := scanProject(r.db(ctx).QueryRow(ctx, query, projectID))
	if err != nil {
		return nil, notFound(err, "project "+projectID)
	}
	return &project, nil
}

// ListProjectsByStatus retrieves all projects in status, ordered by id.
func (r *PgxProjectRepository) ListProjectsByStatus(ctx context.Context, status domain.ProjectStatus) ([]domain.FundingProject, error) {
	query := `SELECT ` + projectColumns + ` FROM funding_projects WHERE status = $1 ORDER BY project_id;`

	rows, err := r.db(ctx).Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query projects with status %s: %w", status, err)
	}
	defer rows.Close()

	projects := make([]domain.FundingProject, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

// SaveProject inserts a new project (version 0) or updates an existing one
// only if its stored version still matches.
func (r *PgxProjectRepository) SaveProject(ctx context.Context, project *domain.FundingProject) error {
	m, err := mapping.ToModelProject(*project)
	if err != nil {
		return err
	}

	var query string
	if m.Version == 0 {
		query = `
			INSERT INTO funding_projects (` + projectColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
			ON CONFLICT (project_id) DO NOTHING;`
	} else {
		query = `
			UPDATE funding_projects SET
				creator_id = $2, title = $3, goal_amount = $4, current_amount = $5, status = $6,
				total_budget = $7, start_date = $8, end_date = $9, stages_completed_at = $10,
				status_history = $11, created_at = $12, created_by = $13,
				last_updated_at = $14, last_updated_by = $15, version = version + 1
			WHERE project_id = $1 AND version = $16;`
	}

	args := []any{
		m.ProjectID, m.CreatorID, m.Title, m.GoalAmount, m.CurrentAmount, m.Status,
		m.TotalBudget, m.StartDate, m.EndDate, m.StagesCompletedAt, m.StatusHistory,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	}
	if m.Version != 0 {
		args = append(args, m.Version)
	}

	tag, err := r.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", m.ProjectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s changed since version %d: %w", m.ProjectID, m.Version, apperrors.ErrVersionConflict)
	}

	project.Version++
	return nil
}

func scanProject(row pgx.Row) (domain.FundingProject, error) {
	var m models.FundingProject
	err := row.Scan(
		&m.ProjectID,
		&m.CreatorID,
		&m.Title,
		&m.GoalAmount,
		&m.CurrentAmount,
		&m.Status,
		&m.TotalBudget,
		&m.StartDate,
		&m.EndDate,
		&m.StagesCompletedAt,
		&m.StatusHistory,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		return domain.FundingProject{}, err
	}
	return mapping.ToDomainProject(m)
}
