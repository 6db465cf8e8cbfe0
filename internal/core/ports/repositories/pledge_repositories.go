package repositories

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// PledgeReader defines read operations for pledges
type PledgeReader interface {
	FindPledgeByID(ctx context.Context, pledgeID string) (*domain.Pledge, error)
	ListPledgesByProject(ctx context.Context, projectID string) ([]domain.Pledge, error)
}

// PledgeWriter defines write operations for pledges
type PledgeWriter interface {
	SavePledge(ctx context.Context, pledge domain.Pledge) error
}

// PledgeRepositoryFacade combines all pledge-related repository interfaces
type PledgeRepositoryFacade interface {
	PledgeReader
	PledgeWriter
}
