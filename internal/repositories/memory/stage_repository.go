package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
)

type stageRepository struct {
	store *Store
}

var _ portsrepo.StageRepositoryFacade = (*stageRepository)(nil)

func (r *stageRepository) FindStageByID(_ context.Context, stageID string) (*domain.ExecutionStage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s, ok := r.store.stages[stageID]
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", stageID, apperrors.ErrNotFound)
	}
	out := cloneStage(s)
	return &out, nil
}

func (r *stageRepository) ListStagesByProject(_ context.Context, projectID string) ([]domain.ExecutionStage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.ExecutionStage, 0)
	for _, s := range r.store.stages {
		if s.ProjectID == projectID {
			out = append(out, cloneStage(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].StageID < out[j].StageID
	})
	return out, nil
}

func (r *stageRepository) SaveStage(ctx context.Context, stage domain.ExecutionStage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recordUndo(ctx, r.store.stages, stage.StageID)
	r.store.stages[stage.StageID] = cloneStage(stage)
	return nil
}
