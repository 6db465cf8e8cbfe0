package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	"github.com/SscSPs/fundflow_engine/internal/models"
	"github.com/SscSPs/fundflow_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

const stageColumns = `
	stage_id, project_id, name, sequence, budget, status, progress_percent, start_date, end_date,
	created_at, created_by, last_updated_at, last_updated_by, version`

type PgxStageRepository struct {
	BaseRepository
}

func newPgxStageRepository(base BaseRepository) portsrepo.StageRepositoryFacade {
	return &PgxStageRepository{BaseRepository: base}
}

var _ portsrepo.StageRepositoryFacade = (*PgxStageRepository)(nil)

func (r *PgxStageRepository) FindStageByID(ctx context.Context, stageID string) (*domain.ExecutionStage, error) {
	query := `SELECT ` + stageColumns + ` FROM execution_stages WHERE stage_id = $1;`

	stage, err := scanStage(r.db(ctx).QueryRow(ctx, query, stageID))
	if err != nil {
		return nil, notFound(err, "stage "+stageID)
	}
	return &stage, nil
}

func (r *PgxStageRepository) ListStagesByProject(ctx context.Context, projectID string) ([]domain.ExecutionStage, error) {
	query := `SELECT ` + stageColumns + ` FROM execution_stages WHERE project_id = $1 ORDER BY sequence, stage_id;`

	rows, err := r.db(ctx).Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages for project %s: %w", projectID, err)
	}
	defer rows.Close()

	stages := make([]domain.ExecutionStage, 0)
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage row for project %s: %w", projectID, err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage rows for project %s: %w", projectID, err)
	}
	return stages, nil
}

// SaveStage upserts a stage. Stage writes are serialized by the project lock,
// so no version predicate is applied.
func (r *PgxStageRepository) SaveStage(ctx context.Context, stage domain.ExecutionStage) error {
	m := mapping.ToModelStage(stage)
	query := `
		INSERT INTO execution_stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (stage_id) DO UPDATE SET
			name = EXCLUDED.name,
			sequence = EXCLUDED.sequence,
			budget = EXCLUDED.budget,
			status = EXCLUDED.status,
			progress_percent = EXCLUDED.progress_percent,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by,
			version = execution_stages.version + 1;`

	_, err := r.db(ctx).Exec(ctx, query,
		m.StageID, m.ProjectID, m.Name, m.Sequence, m.Budget, m.Status, m.ProgressPercent,
		m.StartDate, m.EndDate, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save stage %s: %w", m.StageID, err)
	}
	return nil
}

func scanStage(row pgx.Row) (domain.ExecutionStage, error) {
	var m models.ExecutionStage
	err := row.Scan(
		&m.StageID,
		&m.ProjectID,
		&m.Name,
		&m.Sequence,
		&m.Budget,
		&m.Status,
		&m.ProgressPercent,
		&m.StartDate,
		&m.EndDate,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		return domain.ExecutionStage{}, err
	}
	return mapping.ToDomainStage(m), nil
}
