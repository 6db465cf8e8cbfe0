package services_test

import (
	"sync"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

// readyForDistribution returns an executing project with all stages complete.
func (s *EngineTestSuite) readyForDistribution(pledges ...domain.Money) *domain.FundingProject {
	var total int64
	for _, p := range pledges {
		total += int64(p)
	}
	p, stages := s.executingProject(total, pledges, total)
	s.completeAllStages(stages)
	return p
}

func (s *EngineTestSuite) TestCreateDistributionPlan_Idempotent() {
	p := s.readyForDistribution(100, 200)

	first, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 1000})
	s.Require().NoError(err)
	s.Equal(1, first.Version)
	s.True(first.Balanced())

	_, err = s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 9999})
	s.ErrorIs(err, apperrors.ErrAlreadyDistributed)

	stored, err := s.svc.Distribution.GetActivePlan(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(first.PlanID, stored.PlanID)
	s.Equal(domain.Money(1000), stored.TotalRevenue)
}

func (s *EngineTestSuite) TestCreateDistributionPlan_ConcurrentCallsCreateOnePlan() {
	p := s.readyForDistribution(100, 200)

	const callers = 20
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 1000})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		s.ErrorIs(err, apperrors.ErrAlreadyDistributed)
	}
	s.Equal(1, created)

	plan, err := s.svc.Distribution.GetActivePlan(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(1, plan.Version)
	s.True(plan.Balanced())
}

func (s *EngineTestSuite) TestCreateDistributionPlan_RequiresCompletedStages() {
	p, _ := s.executingProject(100, []domain.Money{100}, 100)
	_, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 10})
	s.ErrorIs(err, apperrors.ErrInvalidState)

	_, err = s.svc.Distribution.GetActivePlan(s.ctx, p.ProjectID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *EngineTestSuite) TestCreateDistributionPlan_InvalidSplit() {
	p := s.readyForDistribution(100)
	_, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{
		TotalRevenue: 10,
		Split:        &dto.SplitRequest{PlatformFeePercent: "10", ArtistSharePercent: "70", BackerSharePercent: "21"},
	})
	s.ErrorIs(err, apperrors.ErrInvalidSplitConfiguration)

	_, err = s.svc.Distribution.CreateDistributionPlan(s.ctx, creatorActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 10})
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *EngineTestSuite) TestCreateDistributionPlan_NoPledgesEscalates() {
	project := &domain.FundingProject{
		ProjectID: "orphan",
		CreatorID: creatorActor.ActorID,
		Status:    domain.ProjectExecuting,
		StartDate: s.now,
		EndDate:   s.now,
	}
	s.Require().NoError(s.repos.ProjectRepo.SaveProject(s.ctx, project))
	s.Require().NoError(s.repos.StageRepo.SaveStage(s.ctx, domain.ExecutionStage{
		StageID:   "orphan-stage",
		ProjectID: "orphan",
		Status:    domain.StageCompleted,
	}))

	plan, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, "orphan", dto.CreateDistributionRequest{TotalRevenue: 1000})
	s.Require().NoError(err)
	s.True(plan.ManualReview)
	s.NotEmpty(plan.ReviewReason)
	s.Empty(plan.Entries)
	s.Equal(domain.Money(100), plan.PlatformFeeAmount)
	s.Equal(domain.Money(900), plan.ArtistShareAmount)
	s.Equal(domain.Money(0), plan.BackerPoolAmount)
	s.True(plan.Balanced())
}

func (s *EngineTestSuite) TestReviseDistributionPlan() {
	p := s.readyForDistribution(100, 300)
	first, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 1000})
	s.Require().NoError(err)

	revised, err := s.svc.Distribution.ReviseDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 2000})
	s.Require().NoError(err)
	s.Equal(2, revised.Version)
	s.Require().NotNil(revised.SupersedesPlanID)
	s.Equal(first.PlanID, *revised.SupersedesPlanID)
	s.True(first.Split.PlatformFeePercent.Equal(revised.Split.PlatformFeePercent), "split carries over")
	s.Equal(domain.Money(200), revised.PlatformFeeAmount)

	old, err := s.repos.DistributionRepo.FindPlanByID(s.ctx, first.PlanID)
	s.Require().NoError(err)
	s.Equal(domain.PlanSuperseded, old.Status)

	_, err = s.svc.Distribution.StartPayouts(s.ctx, adminActor, p.ProjectID)
	s.Require().NoError(err)
	_, err = s.svc.Distribution.ReviseDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 3000})
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestPayouts_RetryFailedEntry() {
	p := s.readyForDistribution(100, 300)
	_, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 1000})
	s.Require().NoError(err)

	plan, err := s.svc.Distribution.StartPayouts(s.ctx, adminActor, p.ProjectID)
	s.Require().NoError(err)
	cmds := s.dispatcher.take()
	s.Require().Len(cmds, 2)
	for _, e := range plan.Entries {
		s.Equal(domain.EntryProcessing, e.Status)
	}

	ok, failed := plan.Entries[0], plan.Entries[1]
	s.Require().NoError(s.paymentEvent(domain.EventPayoutConfirmed, p.ProjectID, ok.EntryID, ok.DistributedAmount))
	s.Require().NoError(s.paymentEvent(domain.EventPayoutFailed, p.ProjectID, failed.EntryID, 0))

	// Nothing is in flight any more, so replays are ignored.
	s.Require().NoError(s.paymentEvent(domain.EventPayoutConfirmed, p.ProjectID, ok.EntryID, ok.DistributedAmount))

	_, err = s.svc.Distribution.StartPayouts(s.ctx, adminActor, p.ProjectID)
	s.Require().NoError(err)
	cmds = s.dispatcher.take()
	s.Require().Len(cmds, 1)
	s.Equal(failed.EntryID, cmds[0].SubjectID)
	s.Equal(domain.CommandIssuePayout, cmds[0].Kind)

	s.Require().NoError(s.paymentEvent(domain.EventPayoutConfirmed, p.ProjectID, failed.EntryID, failed.DistributedAmount))
	final, err := s.svc.Distribution.GetActivePlan(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	for _, e := range final.Entries {
		s.Equal(domain.EntryCompleted, e.Status)
		s.NotNil(e.PayoutRef)
	}
}

// TestEndToEnd follows a project from pledges to completed payouts.
func (s *EngineTestSuite) TestEndToEnd() {
	p := s.openProject(1_000_000)
	s.pledge(p.ProjectID, "backer-a", 200_000)
	s.pledge(p.ProjectID, "backer-b", 300_000)
	s.pledge(p.ProjectID, "backer-c", 500_000)

	p = s.closeAtDeadline(p)
	s.Require().Equal(domain.ProjectSuccess, p.Status)
	s.Require().Equal(domain.Money(1_000_000), p.CurrentAmount)

	p, err := s.svc.Lifecycle.SubmitExecutionPlan(s.ctx, creatorActor, p.ProjectID, dto.SubmitExecutionPlanRequest{
		Stages: []dto.AddStageRequest{
			{Name: "recording", Sequence: 1, Budget: 600_000},
			{Name: "release", Sequence: 2, Budget: 400_000},
		},
	})
	s.Require().NoError(err)
	s.Require().Equal(domain.ProjectExecuting, p.Status)
	s.Require().Equal(domain.Money(1_000_000), p.TotalBudget)
	stages, err := s.svc.Stages.ListStages(s.ctx, p.ProjectID)
	s.Require().NoError(err)

	recording, release := stages[0].StageID, stages[1].StageID
	verified := []*domain.ExpenseRecord{
		s.recordExpense(p.ProjectID, &recording, 350_000),
		s.recordExpense(p.ProjectID, &release, 200_000),
	}
	rejected := s.recordExpense(p.ProjectID, &release, 50_000)
	for _, e := range verified {
		_, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, domain.VerificationVerified)
		s.Require().NoError(err)
	}
	_, err = s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, rejected.ExpenseID, domain.VerificationRejected)
	s.Require().NoError(err)

	spend, err := s.svc.Expenses.GetProjectSpend(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(550_000), spend.Totals.Verified)
	s.Equal(domain.Money(50_000), spend.Totals.Rejected)
	s.Equal("55", spend.UtilizationRate)

	s.completeAllStages(stages)
	s.dispatcher.take()

	plan, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 1_200_000})
	s.Require().NoError(err)
	s.Equal(domain.Money(120_000), plan.PlatformFeeAmount)
	s.Equal(domain.Money(840_000), plan.ArtistShareAmount)
	s.Equal(domain.Money(240_000), plan.BackerPoolAmount)

	byBacker := map[string]domain.Money{}
	for _, e := range plan.Entries {
		byBacker[e.BackerID] = e.DistributedAmount
	}
	s.Equal(map[string]domain.Money{
		"backer-a": 48_000,
		"backer-b": 72_000,
		"backer-c": 120_000,
	}, byBacker)
	s.Equal(domain.Money(240_000), plan.DistributedTotal())

	done, err := s.svc.Lifecycle.FinalizeProject(s.ctx, creatorActor, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.ProjectCompleted, done.Status)

	_, err = s.svc.Distribution.StartPayouts(s.ctx, domain.SystemActor("payout-scheduler"), p.ProjectID)
	s.Require().NoError(err)
	for _, cmd := range s.dispatcher.take() {
		s.Require().NoError(s.paymentEvent(domain.EventPayoutConfirmed, p.ProjectID, cmd.SubjectID, cmd.Amount))
	}
	final, err := s.svc.Distribution.GetActivePlan(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	for _, e := range final.Entries {
		s.Equal(domain.EntryCompleted, e.Status)
	}
	s.Empty(s.alerter.violations)
}
