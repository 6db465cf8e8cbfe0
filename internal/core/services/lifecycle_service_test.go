package services_test

import (
	"math"
	"sync"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/core/services"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

func (s *EngineTestSuite) TestCreateProject_Validation() {
	_, err := s.svc.Lifecycle.CreateProject(s.ctx, creatorActor, dto.CreateProjectRequest{
		Title:      "No goal",
		GoalAmount: 0,
		StartDate:  s.now,
		EndDate:    s.now.Add(time.Hour),
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Lifecycle.CreateProject(s.ctx, creatorActor, dto.CreateProjectRequest{
		Title:      "Backwards",
		GoalAmount: 10,
		StartDate:  s.now,
		EndDate:    s.now.Add(-time.Hour),
	})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestCreateProject_RequiresCheckedRole() {
	unchecked := creatorActor
	unchecked.RoleChecked = false
	_, err := s.svc.Lifecycle.CreateProject(s.ctx, unchecked, dto.CreateProjectRequest{
		Title:      "x",
		GoalAmount: 10,
		StartDate:  s.now,
		EndDate:    s.now.Add(time.Hour),
	})
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = s.svc.Lifecycle.CreateProject(s.ctx, backerActor("b"), dto.CreateProjectRequest{
		Title:      "x",
		GoalAmount: 10,
		StartDate:  s.now,
		EndDate:    s.now.Add(time.Hour),
	})
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *EngineTestSuite) TestApproveProject_OnlyFromPreparing() {
	p := s.openProject(100)
	s.Equal(domain.ProjectInProgress, p.Status)

	_, err := s.svc.Lifecycle.ApproveProject(s.ctx, adminActor, p.ProjectID)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (s *EngineTestSuite) TestPledge_CountsOnlyAfterConfirmation() {
	p := s.openProject(1000)

	pl, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, 400)
	s.Require().NoError(err)
	s.Equal(domain.PledgePending, pl.Status)

	cmds := s.dispatcher.take()
	s.Require().Len(cmds, 1)
	s.Equal(domain.CommandCollectPledge, cmds[0].Kind)
	s.Equal(pl.PledgeID, cmds[0].SubjectID)

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(0), got.CurrentAmount)

	s.Require().NoError(s.paymentEvent(domain.EventPledgeConfirmed, p.ProjectID, pl.PledgeID, 400))
	got, err = s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(400), got.CurrentAmount)

	// A replayed confirmation must not count twice.
	s.Require().NoError(s.paymentEvent(domain.EventPledgeConfirmed, p.ProjectID, pl.PledgeID, 400))
	got, err = s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(400), got.CurrentAmount)
}

func (s *EngineTestSuite) TestPledge_FailedCollection() {
	p := s.openProject(1000)
	pl, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, 400)
	s.Require().NoError(err)

	s.Require().NoError(s.paymentEvent(domain.EventPledgeFailed, p.ProjectID, pl.PledgeID, 0))
	pledges, err := s.svc.Lifecycle.ListPledges(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Require().Len(pledges, 1)
	s.Equal(domain.PledgeCancelled, pledges[0].Status)

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(0), got.CurrentAmount)
}

func (s *EngineTestSuite) TestPledge_AmountMismatchIsRefunded() {
	p := s.openProject(1000)
	pl, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, 400)
	s.Require().NoError(err)
	s.dispatcher.take()

	s.Require().NoError(s.paymentEvent(domain.EventPledgeConfirmed, p.ProjectID, pl.PledgeID, 399))

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(0), got.CurrentAmount, "a mismatched collection never counts")

	pledges, err := s.svc.Lifecycle.ListPledges(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Require().Len(pledges, 1)
	s.Equal(domain.PledgeCompleted, pledges[0].Status)
	s.False(pledges[0].Counted)
	s.Equal(domain.Money(399), pledges[0].Amount)
	s.True(pledges[0].AwaitingRefund())

	cmds := s.dispatcher.take()
	s.Require().Len(cmds, 1)
	s.Equal(domain.CommandRefund, cmds[0].Kind)
	s.Equal(domain.Money(399), cmds[0].Amount)
	s.Equal([]string{services.CheckCollectedAmount}, s.alerter.violations)

	// A replay of the confirmation changes nothing.
	s.Require().NoError(s.paymentEvent(domain.EventPledgeConfirmed, p.ProjectID, pl.PledgeID, 399))
	s.Empty(s.dispatcher.take())

	s.Require().NoError(s.paymentEvent(domain.EventRefundConfirmed, p.ProjectID, pl.PledgeID, 399))
	got, err = s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(0), got.CurrentAmount)
}

func (s *EngineTestSuite) TestPledge_ConcurrentConfirmationsAllCount() {
	p := s.openProject(100000)

	const backers = 20
	errs := make([]error, backers)
	var wg sync.WaitGroup
	for i := 0; i < backers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pl, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor(backerID(i)), p.ProjectID, 100)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = s.paymentEvent(domain.EventPledgeConfirmed, p.ProjectID, pl.PledgeID, 100)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		s.NoError(err)
	}

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(backers*100), got.CurrentAmount)
}

func (s *EngineTestSuite) TestPledge_AmountOutOfRange() {
	p := s.openProject(1000)
	_, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, domain.Money(math.MaxInt64))
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, domain.MaxMoney+1)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestPledge_RejectedAfterDeadline() {
	p := s.openProject(1000)
	s.now = p.EndDate

	_, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, 10)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestPledge_NonPositiveAmount() {
	p := s.openProject(1000)
	_, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b1"), p.ProjectID, 0)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestCloseFunding_BeforeDeadline() {
	p := s.openProject(1000)
	_, err := s.svc.Lifecycle.CloseFunding(s.ctx, adminActor, p.ProjectID, s.now)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestCloseFunding_GoalReached() {
	p := s.openProject(1000)
	s.pledge(p.ProjectID, "b1", 600)
	s.pledge(p.ProjectID, "b2", 500)

	closed := s.closeAtDeadline(p)
	s.Equal(domain.ProjectSuccess, closed.Status)
	s.Equal(domain.Money(1100), closed.CurrentAmount)
	s.Equal(domain.Money(1100), closed.TotalBudget)
	s.Require().NotEmpty(closed.StatusHistory)
	last := closed.StatusHistory[len(closed.StatusHistory)-1]
	s.Equal(domain.ProjectInProgress, last.From)
	s.Equal(domain.ProjectSuccess, last.To)
}

func (s *EngineTestSuite) TestCloseFunding_GoalMissedRefundsPledges() {
	p := s.openProject(1000)
	a := s.pledge(p.ProjectID, "b1", 300)
	b := s.pledge(p.ProjectID, "b2", 200)
	s.dispatcher.take()

	closed := s.closeAtDeadline(p)
	s.Equal(domain.ProjectFailed, closed.Status)

	cmds := s.dispatcher.take()
	s.Require().Len(cmds, 2)
	for _, c := range cmds {
		s.Equal(domain.CommandRefund, c.Kind)
		s.Equal("ref-"+c.SubjectID, c.PaymentRef)
	}

	s.Require().NoError(s.paymentEvent(domain.EventRefundConfirmed, p.ProjectID, a.PledgeID, 300))
	s.Require().NoError(s.paymentEvent(domain.EventRefundConfirmed, p.ProjectID, b.PledgeID, 200))
	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(0), got.CurrentAmount)

	pledges, err := s.svc.Lifecycle.ListPledges(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	for _, pl := range pledges {
		s.Equal(domain.PledgeRefunded, pl.Status)
	}
}

func (s *EngineTestSuite) TestRetryRefunds_AfterFailedRefund() {
	p := s.openProject(1000)
	a := s.pledge(p.ProjectID, "b1", 300)
	s.closeAtDeadline(p)
	s.dispatcher.take()

	// Nothing to retry while the refund is in flight.
	n, err := s.svc.Lifecycle.RetryRefunds(s.ctx, adminActor, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(0, n)

	s.Require().NoError(s.paymentEvent(domain.EventRefundFailed, p.ProjectID, a.PledgeID, 300))
	n, err = s.svc.Lifecycle.RetryRefunds(s.ctx, adminActor, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(1, n)
	cmds := s.dispatcher.take()
	s.Require().Len(cmds, 1)
	s.Equal(a.PledgeID, cmds[0].SubjectID)
}

func (s *EngineTestSuite) TestLateConfirmationIsRefunded() {
	p := s.openProject(100)
	s.pledge(p.ProjectID, "b1", 100)
	late, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor("b2"), p.ProjectID, 50)
	s.Require().NoError(err)
	s.closeAtDeadline(p)
	s.dispatcher.take()

	s.Require().NoError(s.paymentEvent(domain.EventPledgeConfirmed, p.ProjectID, late.PledgeID, 50))
	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(100), got.CurrentAmount, "late pledge must not change closed funds")

	cmds := s.dispatcher.take()
	s.Require().Len(cmds, 1)
	s.Equal(domain.CommandRefund, cmds[0].Kind)
	s.Equal(late.PledgeID, cmds[0].SubjectID)

	s.Require().NoError(s.paymentEvent(domain.EventRefundConfirmed, p.ProjectID, late.PledgeID, 50))
	got, err = s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(100), got.CurrentAmount)
}

func (s *EngineTestSuite) TestSweepDeadlines() {
	due := s.openProject(100)
	s.pledge(due.ProjectID, "b1", 100)
	s.now = s.now.Add(24 * time.Hour)
	notDue := s.openProject(100)

	closed, err := s.svc.Lifecycle.SweepDeadlines(s.ctx, due.EndDate)
	s.Require().NoError(err)
	s.Equal([]string{due.ProjectID}, closed)

	got, err := s.svc.Lifecycle.GetProject(s.ctx, notDue.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.ProjectInProgress, got.Status)
	got, err = s.svc.Lifecycle.GetProject(s.ctx, due.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.ProjectSuccess, got.Status)
}

func (s *EngineTestSuite) TestCancelProject() {
	p := s.openProject(1000)
	s.pledge(p.ProjectID, "b1", 300)
	s.dispatcher.take()

	_, err := s.svc.Lifecycle.CancelProject(s.ctx, otherCreator, p.ProjectID, "not mine")
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	cancelled, err := s.svc.Lifecycle.CancelProject(s.ctx, creatorActor, p.ProjectID, "band split up")
	s.Require().NoError(err)
	s.Equal(domain.ProjectCancelled, cancelled.Status)
	s.Len(s.dispatcher.take(), 1)

	_, err = s.svc.Lifecycle.CancelProject(s.ctx, creatorActor, p.ProjectID, "again")
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (s *EngineTestSuite) TestCancelProject_AfterDeadline() {
	p := s.openProject(1000)
	s.now = p.EndDate
	_, err := s.svc.Lifecycle.CancelProject(s.ctx, creatorActor, p.ProjectID, "too late")
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestSubmitExecutionPlan_BudgetChecks() {
	p := s.openProject(1000)
	s.pledge(p.ProjectID, "b1", 1000)
	s.closeAtDeadline(p)

	_, err := s.svc.Lifecycle.SubmitExecutionPlan(s.ctx, creatorActor, p.ProjectID, dto.SubmitExecutionPlanRequest{
		Stages: []dto.AddStageRequest{{Name: "a", Sequence: 1, Budget: 600}, {Name: "b", Sequence: 2, Budget: 401}},
	})
	s.ErrorIs(err, apperrors.ErrBudgetExceeded)

	_, err = s.svc.Lifecycle.SubmitExecutionPlan(s.ctx, creatorActor, p.ProjectID, dto.SubmitExecutionPlanRequest{
		TotalBudget: ptr(int64(1001)),
		Stages:      []dto.AddStageRequest{{Name: "a", Sequence: 1, Budget: 100}},
	})
	s.ErrorIs(err, apperrors.ErrBudgetExceeded)

	// Nothing from the rejected attempts was persisted.
	stages, err := s.svc.Stages.ListStages(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Empty(stages)

	got, err := s.svc.Lifecycle.SubmitExecutionPlan(s.ctx, creatorActor, p.ProjectID, dto.SubmitExecutionPlanRequest{
		TotalBudget: ptr(int64(900)),
		Stages:      []dto.AddStageRequest{{Name: "a", Sequence: 1, Budget: 900}},
	})
	s.Require().NoError(err)
	s.Equal(domain.ProjectExecuting, got.Status)
	s.Equal(domain.Money(900), got.TotalBudget)
}

func (s *EngineTestSuite) TestFinalizeProject_RequiresStagesAndPlan() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 600, 400)

	_, err := s.svc.Lifecycle.FinalizeProject(s.ctx, creatorActor, p.ProjectID)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	s.completeAllStages(stages)
	_, err = s.svc.Lifecycle.FinalizeProject(s.ctx, creatorActor, p.ProjectID)
	s.ErrorIs(err, apperrors.ErrInvalidState, "no distribution plan yet")

	_, err = s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 5000})
	s.Require().NoError(err)

	done, err := s.svc.Lifecycle.FinalizeProject(s.ctx, creatorActor, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.ProjectCompleted, done.Status)
	s.Contains(s.publisher.names(), "project.completed")
}
