package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/dto"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
)

// sweepActorID identifies the deadline scheduler in status history.
const sweepActorID = "deadline-sweeper"

// lifecycleService drives projects through the funding state machine and
// owns pledge intake.
type lifecycleService struct {
	BaseService
	projectRepo      portsrepo.ProjectRepositoryFacade
	stageRepo        portsrepo.StageRepositoryFacade
	pledgeRepo       portsrepo.PledgeRepositoryFacade
	expenseRepo      portsrepo.ExpenseReader
	distributionRepo portsrepo.DistributionRepositoryFacade
}

// NewLifecycleService creates a new lifecycle service.
func NewLifecycleService(repos portsrepo.RepositoryProvider, opts ...ServiceOption) portssvc.LifecycleSvcFacade {
	return &lifecycleService{
		BaseService:      newBaseService(repos.TxManager, opts...),
		projectRepo:      repos.ProjectRepo,
		stageRepo:        repos.StageRepo,
		pledgeRepo:       repos.PledgeRepo,
		expenseRepo:      repos.ExpenseRepo,
		distributionRepo: repos.DistributionRepo,
	}
}

var _ portssvc.LifecycleSvcFacade = (*lifecycleService)(nil)

func (s *lifecycleService) GetProject(ctx context.Context, projectID string) (*domain.FundingProject, error) {
	return s.projectRepo.FindProjectByID(ctx, projectID)
}

func (s *lifecycleService) ListPledges(ctx context.Context, projectID string) ([]domain.Pledge, error) {
	if _, err := s.projectRepo.FindProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.pledgeRepo.ListPledgesByProject(ctx, projectID)
}

// CreateProject records a new proposal in PREPARING.
func (s *lifecycleService) CreateProject(ctx context.Context, actor domain.Actor, req dto.CreateProjectRequest) (*domain.FundingProject, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpCreateProject); err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	now := s.Now()
	project := &domain.FundingProject{
		ProjectID:  uuid.NewString(),
		CreatorID:  actor.ActorID,
		Title:      req.Title,
		GoalAmount: domain.Money(req.GoalAmount),
		Status:     domain.ProjectPreparing,
		StartDate:  req.StartDate.UTC(),
		EndDate:    req.EndDate.UTC(),
	}
	project.Touch(actor.ActorID, now)

	if err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		return s.projectRepo.SaveProject(ctx, project)
	}); err != nil {
		s.LogError(ctx, err, "Failed to save project", slog.String("project_id", project.ProjectID))
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.LogInfo(ctx, "Project created", slog.String("project_id", project.ProjectID), slog.String("creator_id", actor.ActorID))
	s.publish(ctx, "project.created", project.ProjectID, actor.ActorID, map[string]any{"goalAmount": project.GoalAmount})
	return project, nil
}

// ApproveProject opens a prepared project for pledges.
func (s *lifecycleService) ApproveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.FundingProject, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpApproveProject); err != nil {
		return nil, err
	}

	var project *domain.FundingProject
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := transitionProject(p, domain.ProjectInProgress, actor.ActorID, "approved", s.Now()); err != nil {
			return err
		}
		if err := s.projectRepo.SaveProject(ctx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Project approved", slog.String("project_id", projectID))
	s.publish(ctx, "project.approved", projectID, actor.ActorID, nil)
	return project, nil
}

// CloseFunding resolves a project whose deadline has passed into SUCCESS or
// FAILED. A failed project has all completed pledges sent for refund.
func (s *lifecycleService) CloseFunding(ctx context.Context, actor domain.Actor, projectID string, now time.Time) (*domain.FundingProject, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpCloseFunding); err != nil {
		return nil, err
	}

	var (
		project *domain.FundingProject
		refunds []domain.PaymentCommand
	)
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Status != domain.ProjectInProgress {
			return fmt.Errorf("%w: cannot close funding of project %s in %s", apperrors.ErrInvalidTransition, projectID, p.Status)
		}
		if !p.DeadlinePassed(now) {
			return fmt.Errorf("%w: funding deadline %s for project %s not reached", apperrors.ErrInvalidState, p.EndDate.Format(time.RFC3339), projectID)
		}

		if p.GoalReached() {
			if err := transitionProject(p, domain.ProjectSuccess, actor.ActorID, "goal reached", s.Now()); err != nil {
				return err
			}
			p.TotalBudget = p.CurrentAmount
		} else {
			if err := transitionProject(p, domain.ProjectFailed, actor.ActorID, "goal not reached by deadline", s.Now()); err != nil {
				return err
			}
			refunds, err = s.requestRefunds(ctx, p, actor.ActorID)
			if err != nil {
				return err
			}
		}

		if err := s.projectRepo.SaveProject(ctx, p); err != nil {
			return err
		}
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p}); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, refunds...)
	s.LogInfo(ctx, "Funding closed",
		slog.String("project_id", projectID),
		slog.String("status", string(project.Status)),
		slog.Int("refunds", len(refunds)))
	s.publish(ctx, "project.funding_closed", projectID, actor.ActorID, map[string]any{
		"status":        project.Status,
		"currentAmount": project.CurrentAmount,
	})
	return project, nil
}

// SweepDeadlines closes every IN_PROGRESS project past its deadline. One
// project failing does not stop the sweep; failures are joined into the error.
func (s *lifecycleService) SweepDeadlines(ctx context.Context, now time.Time) ([]string, error) {
	ctx = middleware.WithOperationLogger(ctx, "sweep_deadlines")
	projects, err := s.projectRepo.ListProjectsByStatus(ctx, domain.ProjectInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list open projects: %w", err)
	}

	actor := domain.SystemActor(sweepActorID)
	closed := make([]string, 0)
	var errs []error
	for i := range projects {
		p := &projects[i]
		if !p.DeadlinePassed(now) {
			continue
		}
		if _, err := s.CloseFunding(ctx, actor, p.ProjectID, now); err != nil {
			s.LogError(ctx, err, "Failed to close funding", slog.String("project_id", p.ProjectID))
			errs = append(errs, fmt.Errorf("project %s: %w", p.ProjectID, err))
			continue
		}
		closed = append(closed, p.ProjectID)
	}
	if len(closed) > 0 {
		s.LogInfo(ctx, "Deadline sweep closed projects", slog.Int("count", len(closed)))
	}
	return closed, errors.Join(errs...)
}

// CancelProject withdraws a project before its deadline and refunds every
// completed pledge.
func (s *lifecycleService) CancelProject(ctx context.Context, actor domain.Actor, projectID string, reason string) (*domain.FundingProject, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpCancelProject); err != nil {
		return nil, err
	}

	var (
		project *domain.FundingProject
		refunds []domain.PaymentCommand
	)
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, actor, p); err != nil {
			return err
		}
		if p.Status == domain.ProjectInProgress && p.DeadlinePassed(s.Now()) {
			return fmt.Errorf("%w: deadline for project %s has passed, funding must be closed", apperrors.ErrInvalidState, projectID)
		}
		if err := transitionProject(p, domain.ProjectCancelled, actor.ActorID, reason, s.Now()); err != nil {
			return err
		}
		refunds, err = s.requestRefunds(ctx, p, actor.ActorID)
		if err != nil {
			return err
		}
		if err := s.projectRepo.SaveProject(ctx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, refunds...)
	s.LogInfo(ctx, "Project cancelled", slog.String("project_id", projectID), slog.Int("refunds", len(refunds)))
	s.publish(ctx, "project.cancelled", projectID, actor.ActorID, map[string]any{"reason": reason})
	return project, nil
}

// SubmitExecutionPlan moves a SUCCESS project into EXECUTING with its stages.
func (s *lifecycleService) SubmitExecutionPlan(ctx context.Context, actor domain.Actor, projectID string, req dto.SubmitExecutionPlanRequest) (*domain.FundingProject, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpSubmitExecutionPlan); err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var project *domain.FundingProject
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, actor, p); err != nil {
			return err
		}
		if !domain.CanTransition(p.Status, domain.ProjectExecuting) {
			return fmt.Errorf("%w: %s -> %s for project %s", apperrors.ErrInvalidTransition, p.Status, domain.ProjectExecuting, projectID)
		}

		budget := p.CurrentAmount
		if req.TotalBudget != nil {
			budget = domain.Money(*req.TotalBudget)
			if budget > p.CurrentAmount {
				return fmt.Errorf("%w: total budget %s exceeds funds %s", apperrors.ErrBudgetExceeded, budget, p.CurrentAmount)
			}
		}

		existing, err := s.stageRepo.ListStagesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		now := s.Now()
		stages := append([]domain.ExecutionStage(nil), existing...)
		for _, sr := range req.Stages {
			stages = append(stages, newStage(projectID, sr, actor.ActorID, now))
		}
		if allocated := domain.SumStageBudgets(stages); allocated > budget {
			return fmt.Errorf("%w: stage budgets %s exceed total budget %s", apperrors.ErrBudgetExceeded, allocated, budget)
		}

		p.TotalBudget = budget
		if err := transitionProject(p, domain.ProjectExecuting, actor.ActorID, "execution plan submitted", now); err != nil {
			return err
		}
		for _, st := range stages[len(existing):] {
			if err := s.stageRepo.SaveStage(ctx, st); err != nil {
				return err
			}
		}
		if err := s.projectRepo.SaveProject(ctx, p); err != nil {
			return err
		}
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages}); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Execution plan submitted", slog.String("project_id", projectID), slog.Int("stages", len(req.Stages)))
	s.publish(ctx, "project.executing", projectID, actor.ActorID, map[string]any{"totalBudget": project.TotalBudget})
	return project, nil
}

// FinalizeProject completes an EXECUTING project once every stage is
// completed and an audited distribution plan is active.
func (s *lifecycleService) FinalizeProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.FundingProject, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpFinalizeProject); err != nil {
		return nil, err
	}

	var project *domain.FundingProject
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, actor, p); err != nil {
			return err
		}
		if !domain.CanTransition(p.Status, domain.ProjectCompleted) {
			return fmt.Errorf("%w: %s -> %s for project %s", apperrors.ErrInvalidTransition, p.Status, domain.ProjectCompleted, projectID)
		}

		stages, err := s.stageRepo.ListStagesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if !domain.AllStagesCompleted(stages) {
			return fmt.Errorf("%w: project %s has unfinished stages", apperrors.ErrInvalidState, projectID)
		}
		plan, err := s.distributionRepo.FindActivePlanByProject(ctx, projectID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: project %s has no distribution plan", apperrors.ErrInvalidState, projectID)
		}
		if err != nil {
			return err
		}
		expenses, err := s.expenseRepo.ListExpensesByProject(ctx, projectID)
		if err != nil {
			return err
		}

		if err := transitionProject(p, domain.ProjectCompleted, actor.ActorID, "finalized", s.Now()); err != nil {
			return err
		}
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages, Expenses: expenses, Plan: plan}); err != nil {
			return err
		}
		if err := s.projectRepo.SaveProject(ctx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Project completed", slog.String("project_id", projectID))
	s.publish(ctx, "project.completed", projectID, actor.ActorID, nil)
	return project, nil
}

// requestRefunds marks completed pledges for refund and returns the commands
// to dispatch after commit. Pledges already awaiting a refund are skipped.
func (s *lifecycleService) requestRefunds(ctx context.Context, p *domain.FundingProject, actorID string) ([]domain.PaymentCommand, error) {
	pledges, err := s.pledgeRepo.ListPledgesByProject(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	cmds := make([]domain.PaymentCommand, 0)
	for i := range pledges {
		pl := &pledges[i]
		if pl.Status != domain.PledgeCompleted || pl.RefundRequestedAt != nil {
			continue
		}
		pl.RefundRequestedAt = &now
		pl.Touch(actorID, now)
		if err := s.pledgeRepo.SavePledge(ctx, *pl); err != nil {
			return nil, err
		}
		cmds = append(cmds, refundCommand(pl))
	}
	return cmds, nil
}

func refundCommand(pl *domain.Pledge) domain.PaymentCommand {
	cmd := domain.PaymentCommand{
		Kind:      domain.CommandRefund,
		ProjectID: pl.ProjectID,
		SubjectID: pl.PledgeID,
		BackerID:  pl.BackerID,
		Amount:    pl.Amount,
	}
	if pl.PaymentRef != nil {
		cmd.PaymentRef = *pl.PaymentRef
	}
	return cmd
}

func newStage(projectID string, req dto.AddStageRequest, actorID string, now time.Time) domain.ExecutionStage {
	st := domain.ExecutionStage{
		StageID:   uuid.NewString(),
		ProjectID: projectID,
		Name:      req.Name,
		Sequence:  req.Sequence,
		Budget:    domain.Money(req.Budget),
		Status:    domain.StagePlanned,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	st.Touch(actorID, now)
	return st
}
