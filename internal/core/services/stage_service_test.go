package services_test

import (
	"math"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

func (s *EngineTestSuite) TestAddStage_OverrunByOneUnit() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 600)

	_, err := s.svc.Stages.AddStage(s.ctx, creatorActor, p.ProjectID, dto.AddStageRequest{Name: "mix", Sequence: 2, Budget: 401})
	s.ErrorIs(err, apperrors.ErrBudgetExceeded)

	st, err := s.svc.Stages.AddStage(s.ctx, creatorActor, p.ProjectID, dto.AddStageRequest{Name: "mix", Sequence: 2, Budget: 400})
	s.Require().NoError(err)
	s.Equal(domain.StagePlanned, st.Status)

	stages, err := s.svc.Stages.ListStages(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(1000), domain.SumStageBudgets(stages))
}

func (s *EngineTestSuite) TestAddStage_BudgetOutOfRange() {
	p, _ := s.executingProject(1000000, []domain.Money{1000000}, 600000)

	_, err := s.svc.Stages.AddStage(s.ctx, creatorActor, p.ProjectID, dto.AddStageRequest{Name: "mix", Sequence: 2, Budget: math.MaxInt64})
	s.ErrorIs(err, apperrors.ErrValidation)

	stages, err := s.svc.Stages.ListStages(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Len(stages, 1)
	s.Equal(domain.Money(600000), domain.SumStageBudgets(stages))
}

func (s *EngineTestSuite) TestSubmitExecutionPlan_BudgetOutOfRange() {
	p := s.openProject(1000)
	s.pledge(p.ProjectID, "b1", 1000)
	p = s.closeAtDeadline(p)

	_, err := s.svc.Lifecycle.SubmitExecutionPlan(s.ctx, creatorActor, p.ProjectID, dto.SubmitExecutionPlanRequest{
		Stages: []dto.AddStageRequest{
			{Name: "record", Sequence: 1, Budget: 600},
			{Name: "wrap", Sequence: 2, Budget: math.MaxInt64},
		},
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.ProjectSuccess, got.Status)
}

func (s *EngineTestSuite) TestAddStage_WrongState() {
	p := s.openProject(1000)
	_, err := s.svc.Stages.AddStage(s.ctx, creatorActor, p.ProjectID, dto.AddStageRequest{Name: "a", Budget: 1})
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestAddStage_OtherCreator() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 600)
	_, err := s.svc.Stages.AddStage(s.ctx, otherCreator, p.ProjectID, dto.AddStageRequest{Name: "a", Budget: 1})
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *EngineTestSuite) TestAdvanceStage() {
	_, stages := s.executingProject(1000, []domain.Money{1000}, 1000)
	id := stages[0].StageID

	st, err := s.svc.Stages.AdvanceStage(s.ctx, creatorActor, id, 40)
	s.Require().NoError(err)
	s.Equal(domain.StageInProgress, st.Status)
	s.Equal(40, st.ProgressPercent)
	s.NotNil(st.StartDate)

	_, err = s.svc.Stages.AdvanceStage(s.ctx, creatorActor, id, 39)
	s.ErrorIs(err, apperrors.ErrInvalidProgress)

	_, err = s.svc.Stages.AdvanceStage(s.ctx, creatorActor, id, 101)
	s.ErrorIs(err, apperrors.ErrInvalidProgress)

	st, err = s.svc.Stages.AdvanceStage(s.ctx, creatorActor, id, 100)
	s.Require().NoError(err)
	s.Equal(domain.StageInProgress, st.Status, "full progress does not complete the stage")
}

func (s *EngineTestSuite) TestCompleteStage_Idempotent() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 600, 400)

	st, err := s.svc.Stages.CompleteStage(s.ctx, creatorActor, stages[0].StageID)
	s.Require().NoError(err)
	s.Equal(domain.StageCompleted, st.Status)
	s.Equal(100, st.ProgressPercent)

	completedAt := st.LastUpdatedAt
	s.now = s.now.Add(time.Hour)
	again, err := s.svc.Stages.CompleteStage(s.ctx, creatorActor, stages[0].StageID)
	s.Require().NoError(err)
	s.Equal(completedAt, again.LastUpdatedAt)
	s.Equal(st.EndDate, again.EndDate)

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Nil(got.StagesCompletedAt)

	_, err = s.svc.Stages.CompleteStage(s.ctx, creatorActor, stages[1].StageID)
	s.Require().NoError(err)
	got, err = s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.NotNil(got.StagesCompletedAt)
	s.Contains(s.publisher.names(), "project.stages_completed")
}

func (s *EngineTestSuite) TestMarkStageDelayed() {
	_, stages := s.executingProject(1000, []domain.Money{1000}, 1000)
	id := stages[0].StageID

	st, err := s.svc.Stages.MarkStageDelayed(s.ctx, creatorActor, id)
	s.Require().NoError(err)
	s.Equal(domain.StageDelayed, st.Status)

	st, err = s.svc.Stages.AdvanceStage(s.ctx, creatorActor, id, 10)
	s.Require().NoError(err)
	s.Equal(domain.StageInProgress, st.Status)

	_, err = s.svc.Stages.CompleteStage(s.ctx, creatorActor, id)
	s.Require().NoError(err)
	_, err = s.svc.Stages.MarkStageDelayed(s.ctx, creatorActor, id)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestReopenStage_AdminOnly() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 1000)
	id := stages[0].StageID
	s.completeAllStages(stages)

	_, err := s.svc.Stages.ReopenStage(s.ctx, creatorActor, id, 50)
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	st, err := s.svc.Stages.ReopenStage(s.ctx, adminActor, id, 50)
	s.Require().NoError(err)
	s.Equal(domain.StageInProgress, st.Status)
	s.Equal(50, st.ProgressPercent)

	got, err := s.svc.Lifecycle.GetProject(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Nil(got.StagesCompletedAt)
}

func (s *EngineTestSuite) TestStageMutationsRequireExecuting() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 1000)
	id := stages[0].StageID
	s.completeAllStages(stages)
	_, err := s.svc.Distribution.CreateDistributionPlan(s.ctx, adminActor, p.ProjectID, dto.CreateDistributionRequest{TotalRevenue: 100})
	s.Require().NoError(err)
	_, err = s.svc.Lifecycle.FinalizeProject(s.ctx, creatorActor, p.ProjectID)
	s.Require().NoError(err)

	_, err = s.svc.Stages.ReopenStage(s.ctx, adminActor, id, 10)
	s.ErrorIs(err, apperrors.ErrInvalidState)
	_, err = s.svc.Stages.AddStage(s.ctx, creatorActor, p.ProjectID, dto.AddStageRequest{Name: "late", Budget: 1})
	s.ErrorIs(err, apperrors.ErrInvalidState)

	// Only the administrative status correction is allowed after completion.
	st, err := s.svc.Stages.CorrectStageStatus(s.ctx, adminActor, id, domain.StageDelayed)
	s.Require().NoError(err)
	s.Equal(domain.StageDelayed, st.Status)
}

func (s *EngineTestSuite) TestCorrectStageStatus_BeforeCompletion() {
	_, stages := s.executingProject(1000, []domain.Money{1000}, 1000)
	_, err := s.svc.Stages.CorrectStageStatus(s.ctx, adminActor, stages[0].StageID, domain.StageCompleted)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	_, err = s.svc.Stages.CorrectStageStatus(s.ctx, adminActor, stages[0].StageID, domain.StageStatus("DONE"))
	s.ErrorIs(err, apperrors.ErrValidation)
}
