package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

type stageService struct {
	BaseService
	projectRepo portsrepo.ProjectRepositoryFacade
	stageRepo   portsrepo.StageRepositoryFacade
}

// NewStageService creates a new execution stage tracker.
func NewStageService(repos portsrepo.RepositoryProvider, opts ...ServiceOption) portssvc.StageTrackerSvc {
	return &stageService{
		BaseService: newBaseService(repos.TxManager, opts...),
		projectRepo: repos.ProjectRepo,
		stageRepo:   repos.StageRepo,
	}
}

var _ portssvc.StageTrackerSvc = (*stageService)(nil)

func (s *stageService) ListStages(ctx context.Context, projectID string) ([]domain.ExecutionStage, error) {
	if _, err := s.projectRepo.FindProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.stageRepo.ListStagesByProject(ctx, projectID)
}

// AddStage allocates part of the total budget to a new stage. Over-allocation
// is rejected outright.
func (s *stageService) AddStage(ctx context.Context, actor domain.Actor, projectID string, req dto.AddStageRequest) (*domain.ExecutionStage, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpAddStage); err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var stage domain.ExecutionStage
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, actor, p); err != nil {
			return err
		}
		if p.Status != domain.ProjectSuccess && p.Status != domain.ProjectExecuting {
			return fmt.Errorf("%w: stages cannot be added to project %s in %s", apperrors.ErrInvalidState, projectID, p.Status)
		}

		stages, err := s.stageRepo.ListStagesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		stage = newStage(projectID, req, actor.ActorID, s.Now())
		stages = append(stages, stage)
		if allocated := domain.SumStageBudgets(stages); allocated > p.TotalBudget {
			return fmt.Errorf("%w: stage budgets %s would exceed total budget %s", apperrors.ErrBudgetExceeded, allocated, p.TotalBudget)
		}

		if err := s.stageRepo.SaveStage(ctx, stage); err != nil {
			return err
		}
		return s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages})
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Stage added",
		slog.String("project_id", projectID),
		slog.String("stage_id", stage.StageID),
		slog.String("budget", stage.Budget.String()))
	s.publish(ctx, "stage.added", projectID, actor.ActorID, map[string]any{"stageID": stage.StageID, "budget": stage.Budget})
	return &stage, nil
}

// AdvanceStage records forward progress. Reaching 100 does not complete the stage.
func (s *stageService) AdvanceStage(ctx context.Context, actor domain.Actor, stageID string, progressPercent int) (*domain.ExecutionStage, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpAdvanceStage); err != nil {
		return nil, err
	}
	if err := validateProgress(progressPercent); err != nil {
		return nil, err
	}

	return s.mutateStage(ctx, actor, stageID, "stage.advanced", func(p *domain.FundingProject, st *domain.ExecutionStage, stages []domain.ExecutionStage) (bool, error) {
		if p.Status != domain.ProjectExecuting {
			return false, fmt.Errorf("%w: project %s is %s, not executing", apperrors.ErrInvalidState, p.ProjectID, p.Status)
		}
		if progressPercent < st.ProgressPercent {
			return false, fmt.Errorf("%w: progress cannot regress from %d to %d", apperrors.ErrInvalidProgress, st.ProgressPercent, progressPercent)
		}
		if st.Status == domain.StageCompleted || progressPercent == st.ProgressPercent {
			return false, nil
		}
		st.ProgressPercent = progressPercent
		st.Status = domain.StageInProgress
		if st.StartDate == nil {
			now := s.Now()
			st.StartDate = &now
		}
		return true, nil
	})
}

// CompleteStage marks a stage done. Completing an already completed stage is a
// no-op. When the last stage completes the project records StagesCompletedAt,
// after which it can be finalized.
func (s *stageService) CompleteStage(ctx context.Context, actor domain.Actor, stageID string) (*domain.ExecutionStage, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpCompleteStage); err != nil {
		return nil, err
	}

	return s.mutateStage(ctx, actor, stageID, "stage.completed", func(p *domain.FundingProject, st *domain.ExecutionStage, stages []domain.ExecutionStage) (bool, error) {
		if st.Status == domain.StageCompleted {
			return false, nil
		}
		if p.Status != domain.ProjectExecuting {
			return false, fmt.Errorf("%w: project %s is %s, not executing", apperrors.ErrInvalidState, p.ProjectID, p.Status)
		}
		now := s.Now()
		st.Status = domain.StageCompleted
		st.ProgressPercent = 100
		if st.StartDate == nil {
			st.StartDate = &now
		}
		st.EndDate = &now
		return true, nil
	})
}

// MarkStageDelayed flags a stage running behind schedule.
func (s *stageService) MarkStageDelayed(ctx context.Context, actor domain.Actor, stageID string) (*domain.ExecutionStage, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpMarkStageDelayed); err != nil {
		return nil, err
	}

	return s.mutateStage(ctx, actor, stageID, "stage.delayed", func(p *domain.FundingProject, st *domain.ExecutionStage, stages []domain.ExecutionStage) (bool, error) {
		if p.Status != domain.ProjectExecuting {
			return false, fmt.Errorf("%w: project %s is %s, not executing", apperrors.ErrInvalidState, p.ProjectID, p.Status)
		}
		switch st.Status {
		case domain.StageDelayed:
			return false, nil
		case domain.StageCompleted:
			return false, fmt.Errorf("%w: stage %s is already completed", apperrors.ErrInvalidState, st.StageID)
		}
		st.Status = domain.StageDelayed
		return true, nil
	})
}

// ReopenStage is the administrative override that may set progress backwards,
// including on a completed stage.
func (s *stageService) ReopenStage(ctx context.Context, actor domain.Actor, stageID string, progressPercent int) (*domain.ExecutionStage, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpReopenStage); err != nil {
		return nil, err
	}
	if err := validateProgress(progressPercent); err != nil {
		return nil, err
	}

	return s.mutateStage(ctx, actor, stageID, "stage.reopened", func(p *domain.FundingProject, st *domain.ExecutionStage, stages []domain.ExecutionStage) (bool, error) {
		if p.Status != domain.ProjectExecuting {
			return false, fmt.Errorf("%w: project %s is %s, not executing", apperrors.ErrInvalidState, p.ProjectID, p.Status)
		}
		st.ProgressPercent = progressPercent
		st.EndDate = nil
		if progressPercent == 0 {
			st.Status = domain.StagePlanned
		} else {
			st.Status = domain.StageInProgress
		}
		return true, nil
	})
}

// CorrectStageStatus lets an administrator fix a stage's recorded status
// after the project has completed. Nothing else about a completed project's
// stages may change.
func (s *stageService) CorrectStageStatus(ctx context.Context, actor domain.Actor, stageID string, status domain.StageStatus) (*domain.ExecutionStage, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpCorrectStageStatus); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage status %q", apperrors.ErrValidation, status)
	}

	return s.mutateStage(ctx, actor, stageID, "stage.status_corrected", func(p *domain.FundingProject, st *domain.ExecutionStage, stages []domain.ExecutionStage) (bool, error) {
		if p.Status != domain.ProjectCompleted {
			return false, fmt.Errorf("%w: status correction only applies to completed projects", apperrors.ErrInvalidState)
		}
		if st.Status == status {
			return false, nil
		}
		st.Status = status
		return true, nil
	})
}

type stageMutation func(p *domain.FundingProject, st *domain.ExecutionStage, stages []domain.ExecutionStage) (changed bool, err error)

// mutateStage resolves the owning project, takes its lock and applies fn to a
// fresh copy of the stage. The project's StagesCompletedAt is kept in step
// with the stage set.
func (s *stageService) mutateStage(ctx context.Context, actor domain.Actor, stageID, eventName string, fn stageMutation) (*domain.ExecutionStage, error) {
	st, err := s.stageRepo.FindStageByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	projectID := st.ProjectID

	var (
		result       *domain.ExecutionStage
		changed      bool
		allCompleted bool
		wasCompleted bool
	)
	err = s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, actor, p); err != nil {
			return err
		}
		stages, err := s.stageRepo.ListStagesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		idx := -1
		for i := range stages {
			if stages[i].StageID == stageID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("stage %s: %w", stageID, apperrors.ErrNotFound)
		}
		target := &stages[idx]

		changed, err = fn(p, target, stages)
		if err != nil {
			return err
		}
		if !changed {
			cp := *target
			result = &cp
			return nil
		}

		now := s.Now()
		target.Touch(actor.ActorID, now)
		if err := s.stageRepo.SaveStage(ctx, *target); err != nil {
			return err
		}

		wasCompleted = p.StagesCompletedAt != nil
		allCompleted = domain.AllStagesCompleted(stages)
		if allCompleted != wasCompleted && p.Status == domain.ProjectExecuting {
			if allCompleted {
				p.StagesCompletedAt = &now
			} else {
				p.StagesCompletedAt = nil
			}
			p.Touch(actor.ActorID, now)
			if err := s.projectRepo.SaveProject(ctx, p); err != nil {
				return err
			}
		}
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages}); err != nil {
			return err
		}
		cp := *target
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return result, nil
	}

	s.LogInfo(ctx, "Stage updated",
		slog.String("project_id", projectID),
		slog.String("stage_id", stageID),
		slog.String("status", string(result.Status)),
		slog.Int("progress", result.ProgressPercent))
	s.publish(ctx, eventName, projectID, actor.ActorID, map[string]any{
		"stageID":  stageID,
		"status":   result.Status,
		"progress": result.ProgressPercent,
	})
	if allCompleted && !wasCompleted {
		s.publish(ctx, "project.stages_completed", projectID, actor.ActorID, nil)
	}
	return result, nil
}

func validateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress %d outside 0-100", apperrors.ErrInvalidProgress, progress)
	}
	return nil
}
