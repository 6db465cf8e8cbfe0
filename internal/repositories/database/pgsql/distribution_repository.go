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

const planColumns = `
	plan_id, project_id, plan_version, status, total_revenue,
	platform_fee_percent, artist_share_percent, backer_share_percent,
	platform_fee_amount, artist_share_amount, backer_pool_amount,
	manual_review, review_reason, supersedes_plan_id,
	created_at, created_by, last_updated_at, last_updated_by, version`

const entryColumns = `
	entry_id, plan_id, backer_id, original_pledge_amount, distributed_amount,
	profit_share_percent, status, payout_ref, failure_reason, position`

type PgxDistributionRepository struct {
	BaseRepository
}

func newPgxDistributionRepository(base BaseRepository) portsrepo.DistributionRepositoryFacade {
	return &PgxDistributionRepository{BaseRepository: base}
}

var _ portsrepo.DistributionRepositoryFacade = (*PgxDistributionRepository)(nil)

func (r *PgxDistributionRepository) FindPlanByID(ctx context.Context, planID string) (*domain.RevenueDistributionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM distribution_plans WHERE plan_id = $1;`
	return r.findOne(ctx, "distribution plan "+planID, query, planID)
}

func (r *PgxDistributionRepository) FindActivePlanByProject(ctx context.Context, projectID string) (*domain.RevenueDistributionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM distribution_plans WHERE project_id = $1 AND status = $2;`
	return r.findOne(ctx, "active distribution plan for project "+projectID, query, projectID, string(domain.PlanActive))
}

func (r *PgxDistributionRepository) ListPlansByProject(ctx context.Context, projectID string) ([]domain.RevenueDistributionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM distribution_plans WHERE project_id = $1 ORDER BY plan_version;`

	rows, err := r.db(ctx).Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans for project %s: %w", projectID, err)
	}
	headers := make([]models.DistributionPlan, 0)
	for rows.Next() {
		h, err := scanPlanHeader(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan plan row for project %s: %w", projectID, err)
		}
		headers = append(headers, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan rows for project %s: %w", projectID, err)
	}

	plans := make([]domain.RevenueDistributionPlan, 0, len(headers))
	for _, h := range headers {
		plan, err := r.withEntries(ctx, h)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// SavePlan upserts the header and every entry in one transaction. A second
// ACTIVE plan for the same project violates a partial unique index.
func (r *PgxDistributionRepository) SavePlan(ctx context.Context, plan domain.RevenueDistributionPlan) error {
	header, entries := mapping.ToModelPlan(plan)

	return r.withinTx(ctx, func(ctx context.Context) error {
		headerQuery := `
			INSERT INTO distribution_plans (` + planColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (plan_id) DO UPDATE SET
				status = EXCLUDED.status,
				manual_review = EXCLUDED.manual_review,
				review_reason = EXCLUDED.review_reason,
				last_updated_at = EXCLUDED.last_updated_at,
				last_updated_by = EXCLUDED.last_updated_by,
				version = distribution_plans.version + 1;`

		_, err := r.db(ctx).Exec(ctx, headerQuery,
			header.PlanID, header.ProjectID, header.PlanVersion, header.Status, header.TotalRevenue,
			header.PlatformFeePercent, header.ArtistSharePercent, header.BackerSharePercent,
			header.PlatformFeeAmount, header.ArtistShareAmount, header.BackerPoolAmount,
			header.ManualReview, header.ReviewReason, header.SupersedesPlanID,
			header.CreatedAt, header.CreatedBy, header.LastUpdatedAt, header.LastUpdatedBy, header.Version,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("project %s already has an active plan: %w", header.ProjectID, apperrors.ErrDuplicate)
			}
			return fmt.Errorf("failed to save plan %s: %w", header.PlanID, err)
		}

		if len(entries) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		entryQuery := `
			INSERT INTO distribution_entries (` + entryColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (entry_id) DO UPDATE SET
				status = EXCLUDED.status,
				payout_ref = EXCLUDED.payout_ref,
				failure_reason = EXCLUDED.failure_reason;`
		for _, e := range entries {
			batch.Queue(entryQuery,
				e.EntryID, e.PlanID, e.BackerID, e.OriginalPledgeAmount, e.DistributedAmount,
				e.ProfitSharePercent, e.Status, e.PayoutRef, e.FailureReason, e.Position,
			)
		}

		// Close the batch results to surface the first failing command
		if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save entries of plan %s: %w", header.PlanID, err)
		}
		return nil
	})
}

func (r *PgxDistributionRepository) findOne(ctx context.Context, what, query string, args ...any) (*domain.RevenueDistributionPlan, error) {
	header, err := scanPlanHeader(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, what)
	}
	plan, err := r.withEntries(ctx, header)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PgxDistributionRepository) withEntries(ctx context.Context, header models.DistributionPlan) (domain.RevenueDistributionPlan, error) {
	query := `SELECT ` + entryColumns + ` FROM distribution_entries WHERE plan_id = $1 ORDER BY position;`

	rows, err := r.db(ctx).Query(ctx, query, header.PlanID)
	if err != nil {
		return domain.RevenueDistributionPlan{}, fmt.Errorf("failed to query entries of plan %s: %w", header.PlanID, err)
	}
	defer rows.Close()

	entries := make([]models.DistributionEntry, 0)
	for rows.Next() {
		var e models.DistributionEntry
		if err := rows.Scan(
			&e.EntryID,
			&e.PlanID,
			&e.BackerID,
			&e.OriginalPledgeAmount,
			&e.DistributedAmount,
			&e.ProfitSharePercent,
			&e.Status,
			&e.PayoutRef,
			&e.FailureReason,
			&e.Position,
		); err != nil {
			return domain.RevenueDistributionPlan{}, fmt.Errorf("failed to scan entry of plan %s: %w", header.PlanID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.RevenueDistributionPlan{}, fmt.Errorf("error iterating entries of plan %s: %w", header.PlanID, err)
	}
	return mapping.ToDomainPlan(header, entries)
}

func scanPlanHeader(row pgx.Row) (models.DistributionPlan, error) {
	var m models.DistributionPlan
	err := row.Scan(
		&m.PlanID,
		&m.ProjectID,
		&m.PlanVersion,
		&m.Status,
		&m.TotalRevenue,
		&m.PlatformFeePercent,
		&m.ArtistSharePercent,
		&m.BackerSharePercent,
		&m.PlatformFeeAmount,
		&m.ArtistShareAmount,
		&m.BackerPoolAmount,
		&m.ManualReview,
		&m.ReviewReason,
		&m.SupersedesPlanID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	return m, err
}
