package services

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

// StageTrackerSvc manages execution stages and their progress.
type StageTrackerSvc interface {
	AddStage(ctx context.Context, actor domain.Actor, projectID string, req dto.AddStageRequest) (*domain.ExecutionStage, error)
	AdvanceStage(ctx context.Context, actor domain.Actor, stageID string, progressPercent int) (*domain.ExecutionStage, error)
	CompleteStage(ctx context.Context, actor domain.Actor, stageID string) (*domain.ExecutionStage, error)
	MarkStageDelayed(ctx context.Context, actor domain.Actor, stageID string) (*domain.ExecutionStage, error)

	// ReopenStage is the administrative override that allows progress to regress.
	ReopenStage(ctx context.Context, actor domain.Actor, stageID string, progressPercent int) (*domain.ExecutionStage, error)

	// CorrectStageStatus fixes a stage's terminal status after the project completed.
	CorrectStageStatus(ctx context.Context, actor domain.Actor, stageID string, status domain.StageStatus) (*domain.ExecutionStage, error)

	ListStages(ctx context.Context, projectID string) ([]domain.ExecutionStage, error)
}
