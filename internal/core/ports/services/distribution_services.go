package services

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

// DistributionSvc computes and pays out revenue distribution plans.
type DistributionSvc interface {
	// CreateDistributionPlan computes the first plan for a project.
	CreateDistributionPlan(ctx context.Context, actor domain.Actor, projectID string, req dto.CreateDistributionRequest) (*domain.RevenueDistributionPlan, error)

	// ReviseDistributionPlan supersedes the active plan with a new version.
	ReviseDistributionPlan(ctx context.Context, actor domain.Actor, projectID string, req dto.CreateDistributionRequest) (*domain.RevenueDistributionPlan, error)

	// StartPayouts dispatches payouts for pending and failed entries of the active plan.
	StartPayouts(ctx context.Context, actor domain.Actor, projectID string) (*domain.RevenueDistributionPlan, error)

	GetActivePlan(ctx context.Context, projectID string) (*domain.RevenueDistributionPlan, error)
}
