package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
)

type projectRepository struct {
	store *Store
}

var _ portsrepo.ProjectRepositoryFacade = (*projectRepository)(nil)

func (r *projectRepository) FindProjectByID(_ context.Context, projectID string) (*domain.FundingProject, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	out := cloneProject(p)
	return &out, nil
}

func (r *projectRepository) ListProjectsByStatus(_ context.Context, status domain.ProjectStatus) ([]domain.FundingProject, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.FundingProject, 0)
	for _, p := range r.store.projects {
		if p.Status == status {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (r *projectRepository) SaveProject(ctx context.Context, project *domain.FundingProject) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var stored int64
	if existing, ok := r.store.projects[project.ProjectID]; ok {
		stored = existing.Version
	}
	if stored != project.Version {
		return fmt.Errorf("project %s at version %d, saving from %d: %w", project.ProjectID, stored, project.Version, apperrors.ErrVersionConflict)
	}

	recordUndo(ctx, r.store.projects, project.ProjectID)
	next := cloneProject(*project)
	next.Version++
	r.store.projects[project.ProjectID] = next
	project.Version = next.Version
	return nil
}
