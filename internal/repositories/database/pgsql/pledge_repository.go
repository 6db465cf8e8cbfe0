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

const pledgeColumns = `
	pledge_id, project_id, backer_id, amount, pledged_at, status, payment_ref, counted, refund_requested_at,
	created_at, created_by, last_updated_at, last_updated_by, version`

type PgxPledgeRepository struct {
	BaseRepository
}

func newPgxPledgeRepository(base BaseRepository) portsrepo.PledgeRepositoryFacade {
	return &PgxPledgeRepository{BaseRepository: base}
}

var _ portsrepo.PledgeRepositoryFacade = (*PgxPledgeRepository)(nil)

func (r *PgxPledgeRepository) FindPledgeByID(ctx context.Context, pledgeID string) (*domain.Pledge, error) {
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE pledge_id = $1;`

	p, err := scanPledge(r.db(ctx).QueryRow(ctx, query, pledgeID))
	if err != nil {
		return nil, notFound(err, "pledge "+pledgeID)
	}
	return &p, nil
}

func (r *PgxPledgeRepository) ListPledgesByProject(ctx context.Context, projectID string) ([]domain.Pledge, error) {
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE project_id = $1 ORDER BY pledged_at, pledge_id;`

	rows, err := r.db(ctx).Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pledges for project %s: %w", projectID, err)
	}
	defer rows.Close()

	pledges := make([]domain.Pledge, 0)
	for rows.Next() {
		p, err := scanPledge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pledge row for project %s: %w", projectID, err)
		}
		pledges = append(pledges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pledge rows for project %s: %w", projectID, err)
	}
	return pledges, nil
}

func (r *PgxPledgeRepository) SavePledge(ctx context.Context, pledge domain.Pledge) error {
	m := mapping.ToModelPledge(pledge)
	query := `
		INSERT INTO pledges (` + pledgeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (pledge_id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_ref = EXCLUDED.payment_ref,
			counted = EXCLUDED.counted,
			refund_requested_at = EXCLUDED.refund_requested_at,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by,
			version = pledges.version + 1;`

	_, err := r.db(ctx).Exec(ctx, query,
		m.PledgeID, m.ProjectID, m.BackerID, m.Amount, m.PledgedAt, m.Status, m.PaymentRef, m.Counted,
		m.RefundRequestedAt, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save pledge %s: %w", m.PledgeID, err)
	}
	return nil
}

func scanPledge(row pgx.Row) (domain.Pledge, error) {
	var m models.Pledge
	err := row.Scan(
		&m.PledgeID,
		&m.ProjectID,
		&m.BackerID,
		&m.Amount,
		&m.PledgedAt,
		&m.Status,
		&m.PaymentRef,
		&m.Counted,
		&m.RefundRequestedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		return domain.Pledge{}, err
	}
	return mapping.ToDomainPledge(m), nil
}
