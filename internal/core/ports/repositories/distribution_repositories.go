package repositories

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// DistributionReader defines read operations for revenue distribution plans
type DistributionReader interface {
	FindPlanByID(ctx context.Context, planID string) (*domain.RevenueDistributionPlan, error)

	// FindActivePlanByProject returns apperrors.ErrNotFound when no plan is active.
	FindActivePlanByProject(ctx context.Context, projectID string) (*domain.RevenueDistributionPlan, error)

	// ListPlansByProject returns every version, oldest first.
	ListPlansByProject(ctx context.Context, projectID string) ([]domain.RevenueDistributionPlan, error)
}

// DistributionWriter defines write operations for revenue distribution plans
type DistributionWriter interface {
	// SavePlan upserts the plan header and all of its entries.
	SavePlan(ctx context.Context, plan domain.RevenueDistributionPlan) error
}

// DistributionRepositoryFacade combines all distribution-related repository interfaces
type DistributionRepositoryFacade interface {
	DistributionReader
	DistributionWriter
}
