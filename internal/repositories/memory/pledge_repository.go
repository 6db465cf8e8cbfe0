package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
)

type pledgeRepository struct {
	store *Store
}

var _ portsrepo.PledgeRepositoryFacade = (*pledgeRepository)(nil)

func (r *pledgeRepository) FindPledgeByID(_ context.Context, pledgeID string) (*domain.Pledge, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.pledges[pledgeID]
	if !ok {
		return nil, fmt.Errorf("pledge %s: %w", pledgeID, apperrors.ErrNotFound)
	}
	out := clonePledge(p)
	return &out, nil
}

func (r *pledgeRepository) ListPledgesByProject(_ context.Context, projectID string) ([]domain.Pledge, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Pledge, 0)
	for _, p := range r.store.pledges {
		if p.ProjectID == projectID {
			out = append(out, clonePledge(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PledgedAt.Equal(out[j].PledgedAt) {
			return out[i].PledgedAt.Before(out[j].PledgedAt)
		}
		return out[i].PledgeID < out[j].PledgeID
	})
	return out, nil
}

func (r *pledgeRepository) SavePledge(ctx context.Context, pledge domain.Pledge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recordUndo(ctx, r.store.pledges, pledge.PledgeID)
	r.store.pledges[pledge.PledgeID] = clonePledge(pledge)
	return nil
}
