package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
)

type distributionRepository struct {
	store *Store
}

var _ portsrepo.DistributionRepositoryFacade = (*distributionRepository)(nil)

func (r *distributionRepository) FindPlanByID(_ context.Context, planID string) (*domain.RevenueDistributionPlan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.plans[planID]
	if !ok {
		return nil, fmt.Errorf("distribution plan %s: %w", planID, apperrors.ErrNotFound)
	}
	out := clonePlan(p)
	return &out, nil
}

func (r *distributionRepository) FindActivePlanByProject(_ context.Context, projectID string) (*domain.RevenueDistributionPlan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.plans {
		if p.ProjectID == projectID && p.Status == domain.PlanActive {
			out := clonePlan(p)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("active distribution plan for project %s: %w", projectID, apperrors.ErrNotFound)
}

func (r *distributionRepository) ListPlansByProject(_ context.Context, projectID string) ([]domain.RevenueDistributionPlan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.RevenueDistributionPlan, 0)
	for _, p := range r.store.plans {
		if p.ProjectID == projectID {
			out = append(out, clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *distributionRepository) SavePlan(ctx context.Context, plan domain.RevenueDistributionPlan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if plan.Status == domain.PlanActive {
		for id, p := range r.store.plans {
			if id != plan.PlanID && p.ProjectID == plan.ProjectID && p.Status == domain.PlanActive {
				return fmt.Errorf("project %s already has active plan %s: %w", plan.ProjectID, id, apperrors.ErrDuplicate)
			}
		}
	}

	recordUndo(ctx, r.store.plans, plan.PlanID)
	r.store.plans[plan.PlanID] = clonePlan(plan)
	return nil
}
