package repositories

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// ProjectReader defines read operations for funding projects
type ProjectReader interface {
	// FindProjectByID retrieves a project by its unique identifier.
	FindProjectByID(ctx context.Context, projectID string) (*domain.FundingProject, error)

	// ListProjectsByStatus retrieves all projects currently in status.
	ListProjectsByStatus(ctx context.Context, status domain.ProjectStatus) ([]domain.FundingProject, error)
}

// ProjectWriter defines write operations for funding projects
type ProjectWriter interface {
	// SaveProject inserts or updates a project. The stored version must equal
	// project.Version, otherwise apperrors.ErrVersionConflict is returned. On
	// success project.Version is incremented.
	SaveProject(ctx context.Context, project *domain.FundingProject) error
}

// ProjectRepositoryFacade combines all project-related repository interfaces
type ProjectRepositoryFacade interface {
	ProjectReader
	ProjectWriter
}
