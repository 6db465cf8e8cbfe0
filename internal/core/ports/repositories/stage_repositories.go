package repositories

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// StageReader defines read operations for execution stages
type StageReader interface {
	FindStageByID(ctx context.Context, stageID string) (*domain.ExecutionStage, error)

	// ListStagesByProject returns stages ordered by sequence.
	ListStagesByProject(ctx context.Context, projectID string) ([]domain.ExecutionStage, error)
}

// StageWriter defines write operations for execution stages
type StageWriter interface {
	SaveStage(ctx context.Context, stage domain.ExecutionStage) error
}

// StageRepositoryFacade combines all stage-related repository interfaces
type StageRepositoryFacade interface {
	StageReader
	StageWriter
}
