package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

const noPledgesReviewReason = "no completed pledges: backer pool assigned to artist"

type distributionService struct {
	BaseService
	projectRepo      portsrepo.ProjectRepositoryFacade
	stageRepo        portsrepo.StageRepositoryFacade
	pledgeRepo       portsrepo.PledgeRepositoryFacade
	distributionRepo portsrepo.DistributionRepositoryFacade
	defaultSplit     domain.RevenueSplit
}

// NewDistributionService creates a new revenue distribution service.
// defaultSplit applies when a request carries no split of its own.
func NewDistributionService(repos portsrepo.RepositoryProvider, defaultSplit domain.RevenueSplit, opts ...ServiceOption) portssvc.DistributionSvc {
	return &distributionService{
		BaseService:      newBaseService(repos.TxManager, opts...),
		projectRepo:      repos.ProjectRepo,
		stageRepo:        repos.StageRepo,
		pledgeRepo:       repos.PledgeRepo,
		distributionRepo: repos.DistributionRepo,
		defaultSplit:     defaultSplit,
	}
}

var _ portssvc.DistributionSvc = (*distributionService)(nil)

func (s *distributionService) GetActivePlan(ctx context.Context, projectID string) (*domain.RevenueDistributionPlan, error) {
	return s.distributionRepo.FindActivePlanByProject(ctx, projectID)
}

// CreateDistributionPlan computes version 1 of a project's plan once every
// stage is complete. A project that already has a plan gets
// ErrAlreadyDistributed and the stored plan is left untouched.
func (s *distributionService) CreateDistributionPlan(ctx context.Context, actor domain.Actor, projectID string, req dto.CreateDistributionRequest) (*domain.RevenueDistributionPlan, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpCreateDistribution); err != nil {
		return nil, err
	}
	split, err := s.resolveSplit(req, s.defaultSplit)
	if err != nil {
		return nil, err
	}

	var plan *domain.RevenueDistributionPlan
	err = s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		existing, err := s.distributionRepo.FindActivePlanByProject(ctx, projectID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: project %s has plan %s v%d", apperrors.ErrAlreadyDistributed, projectID, existing.PlanID, existing.Version)
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		if p.Status != domain.ProjectExecuting {
			return fmt.Errorf("%w: project %s is %s, not executing", apperrors.ErrInvalidState, projectID, p.Status)
		}
		stages, err := s.stageRepo.ListStagesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if !domain.AllStagesCompleted(stages) {
			return fmt.Errorf("%w: project %s has unfinished stages", apperrors.ErrInvalidState, projectID)
		}

		plan, err = s.computePlan(ctx, p, 1, domain.Money(req.TotalRevenue), split, actor.ActorID)
		if err != nil {
			return err
		}
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p, Plan: plan}); err != nil {
			return err
		}
		return s.distributionRepo.SavePlan(ctx, *plan)
	})
	if err != nil {
		return nil, err
	}

	s.logPlan(ctx, "Distribution plan created", plan)
	s.publish(ctx, "distribution.created", projectID, actor.ActorID, map[string]any{
		"planID":       plan.PlanID,
		"totalRevenue": plan.TotalRevenue,
		"manualReview": plan.ManualReview,
	})
	return plan, nil
}

// ReviseDistributionPlan replaces the active plan with a new version. Once any
// payout has been dispatched the plan can no longer be revised.
func (s *distributionService) ReviseDistributionPlan(ctx context.Context, actor domain.Actor, projectID string, req dto.CreateDistributionRequest) (*domain.RevenueDistributionPlan, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpReviseDistribution); err != nil {
		return nil, err
	}

	var plan *domain.RevenueDistributionPlan
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		current, err := s.distributionRepo.FindActivePlanByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if current.PayoutStarted() {
			return fmt.Errorf("%w: payouts of plan %s have started", apperrors.ErrInvalidState, current.PlanID)
		}
		split, err := s.resolveSplit(req, current.Split)
		if err != nil {
			return err
		}

		plan, err = s.computePlan(ctx, p, current.Version+1, domain.Money(req.TotalRevenue), split, actor.ActorID)
		if err != nil {
			return err
		}
		supersedes := current.PlanID
		plan.SupersedesPlanID = &supersedes
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p, Plan: plan}); err != nil {
			return err
		}

		current.Status = domain.PlanSuperseded
		current.Touch(actor.ActorID, s.Now())
		if err := s.distributionRepo.SavePlan(ctx, *current); err != nil {
			return err
		}
		return s.distributionRepo.SavePlan(ctx, *plan)
	})
	if err != nil {
		return nil, err
	}

	s.logPlan(ctx, "Distribution plan revised", plan)
	s.publish(ctx, "distribution.revised", projectID, actor.ActorID, map[string]any{
		"planID":     plan.PlanID,
		"version":    plan.Version,
		"supersedes": *plan.SupersedesPlanID,
	})
	return plan, nil
}

// StartPayouts moves PENDING and FAILED entries to PROCESSING and asks the
// payment collaborator to pay them. Entries only complete on confirmation.
func (s *distributionService) StartPayouts(ctx context.Context, actor domain.Actor, projectID string) (*domain.RevenueDistributionPlan, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpStartPayouts); err != nil {
		return nil, err
	}

	var (
		plan *domain.RevenueDistributionPlan
		cmds []domain.PaymentCommand
	)
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Status != domain.ProjectExecuting && p.Status != domain.ProjectCompleted {
			return fmt.Errorf("%w: project %s is %s", apperrors.ErrInvalidState, projectID, p.Status)
		}
		plan, err = s.distributionRepo.FindActivePlanByProject(ctx, projectID)
		if err != nil {
			return err
		}

		for i := range plan.Entries {
			e := &plan.Entries[i]
			if e.Status != domain.EntryPending && e.Status != domain.EntryFailed {
				continue
			}
			e.FailureReason = ""
			if !e.DistributedAmount.IsPositive() {
				// Nothing to pay.
				e.Status = domain.EntryCompleted
				continue
			}
			e.Status = domain.EntryProcessing
			cmds = append(cmds, domain.PaymentCommand{
				Kind:      domain.CommandIssuePayout,
				ProjectID: projectID,
				SubjectID: e.EntryID,
				BackerID:  e.BackerID,
				Amount:    e.DistributedAmount,
			})
		}
		plan.Touch(actor.ActorID, s.Now())
		return s.distributionRepo.SavePlan(ctx, *plan)
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, cmds...)
	s.LogInfo(ctx, "Payouts started",
		slog.String("project_id", projectID),
		slog.String("plan_id", plan.PlanID),
		slog.Int("payouts", len(cmds)))
	s.publish(ctx, "distribution.payouts_started", projectID, actor.ActorID, map[string]any{
		"planID":  plan.PlanID,
		"payouts": len(cmds),
	})
	return plan, nil
}

func (s *distributionService) resolveSplit(req dto.CreateDistributionRequest, fallback domain.RevenueSplit) (domain.RevenueSplit, error) {
	if err := dto.Validate(req); err != nil {
		return domain.RevenueSplit{}, err
	}
	if req.Split == nil {
		return fallback, nil
	}
	return req.Split.ToDomain()
}

// computePlan runs the calculator over the project's pledges. A project with
// no completed pledges gets a plan flagged for manual review.
func (s *distributionService) computePlan(ctx context.Context, p *domain.FundingProject, version int, revenue domain.Money, split domain.RevenueSplit, actorID string) (*domain.RevenueDistributionPlan, error) {
	pledges, err := s.pledgeRepo.ListPledgesByProject(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}

	res, err := CalculateDistribution(revenue, split, pledges)
	manualReview := false
	if errors.Is(err, apperrors.ErrNoPledges) {
		s.LogWarn(ctx, "No completed pledges, escalating backer pool to artist", slog.String("project_id", p.ProjectID))
		res.escalateToArtist()
		manualReview = true
		err = nil
	}
	if err != nil {
		return nil, err
	}

	plan := &domain.RevenueDistributionPlan{
		PlanID:            uuid.NewString(),
		ProjectID:         p.ProjectID,
		Version:           version,
		Status:            domain.PlanActive,
		TotalRevenue:      revenue,
		Split:             split,
		PlatformFeeAmount: res.PlatformFeeAmount,
		ArtistShareAmount: res.ArtistShareAmount,
		BackerPoolAmount:  res.BackerPoolAmount,
		Entries:           res.Entries,
		ManualReview:      manualReview,
	}
	if manualReview {
		plan.ReviewReason = noPledgesReviewReason
	}
	for i := range plan.Entries {
		plan.Entries[i].EntryID = uuid.NewString()
	}
	plan.Touch(actorID, s.Now())
	return plan, nil
}

func (s *distributionService) logPlan(ctx context.Context, msg string, plan *domain.RevenueDistributionPlan) {
	s.LogInfo(ctx, msg,
		slog.String("project_id", plan.ProjectID),
		slog.String("plan_id", plan.PlanID),
		slog.Int("version", plan.Version),
		slog.String("platform_fee", plan.PlatformFeeAmount.String()),
		slog.String("artist_share", plan.ArtistShareAmount.String()),
		slog.String("backer_pool", plan.BackerPoolAmount.String()),
		slog.Int("entries", len(plan.Entries)),
		slog.Bool("manual_review", plan.ManualReview))
}
