package services_test

import (
	"math"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

func (s *EngineTestSuite) TestRecordExpense_FlagsOverBudget() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 600, 400)
	stageA := stages[0].StageID

	first := s.recordExpense(p.ProjectID, &stageA, 500)
	s.False(first.OverBudget)
	s.False(first.StageOverBudget)
	s.Empty(first.Warnings)

	second := s.recordExpense(p.ProjectID, &stageA, 101)
	s.False(second.OverBudget)
	s.True(second.StageOverBudget)
	s.Equal([]domain.ExpenseWarning{domain.WarningStageOverBudget}, second.Warnings)

	third := s.recordExpense(p.ProjectID, nil, 400)
	s.True(third.OverBudget, "honest overspend is accepted but flagged")
	s.Contains(third.Warnings, domain.WarningProjectOverBudget)
}

func (s *EngineTestSuite) TestRecordExpense_AmountOutOfRange() {
	p, _ := s.executingProject(1000000, []domain.Money{1000000}, 1000000)
	verified := s.recordExpense(p.ProjectID, nil, 500000)
	_, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, verified.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)

	_, err = s.svc.Expenses.RecordExpense(s.ctx, creatorActor, p.ProjectID, dto.RecordExpenseRequest{
		Category: domain.CategoryOther,
		Title:    "overflow",
		Amount:   math.MaxInt64,
		Date:     s.now,
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	spend, err := s.svc.Expenses.GetProjectSpend(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(500000), spend.Totals.Verified)
}

func (s *EngineTestSuite) TestRecordExpense_MissingReceiptAndForeignStage() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)

	e, err := s.svc.Expenses.RecordExpense(s.ctx, creatorActor, p.ProjectID, dto.RecordExpenseRequest{
		Category: domain.CategoryLabor,
		Title:    "session players",
		Amount:   10,
		Date:     s.now,
	})
	s.Require().NoError(err)
	s.Equal(domain.VerificationPending, e.VerificationStatus)
	s.Equal([]domain.ExpenseWarning{domain.WarningMissingReceipt}, e.Warnings)

	_, err = s.svc.Expenses.RecordExpense(s.ctx, creatorActor, p.ProjectID, dto.RecordExpenseRequest{
		StageID:  ptr("not-a-stage"),
		Category: domain.CategoryLabor,
		Title:    "x",
		Amount:   10,
		Date:     s.now,
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Expenses.RecordExpense(s.ctx, creatorActor, p.ProjectID, dto.RecordExpenseRequest{
		Category: "FOOD",
		Title:    "x",
		Amount:   10,
		Date:     s.now,
	})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestRecordExpense_RequiresExecuting() {
	p := s.openProject(1000)
	_, err := s.svc.Expenses.RecordExpense(s.ctx, creatorActor, p.ProjectID, dto.RecordExpenseRequest{
		Category: domain.CategoryLabor,
		Title:    "x",
		Amount:   10,
		Date:     s.now,
	})
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestVerifyExpense_Idempotent() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)
	e := s.recordExpense(p.ProjectID, nil, 300)

	first, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)
	s.Equal(domain.VerificationThirdParty, first.VerificationKind)

	second, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)
	s.Equal(first.ReviewedAt, second.ReviewedAt)

	spend, err := s.svc.Expenses.GetProjectSpend(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Equal(domain.Money(300), spend.Totals.Verified, "no double counting")
	s.Equal(domain.Money(700), spend.Remaining)

	_, err = s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, domain.VerificationRejected)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestVerifyExpense_SelfAttestation() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)
	e := s.recordExpense(p.ProjectID, nil, 300)

	got, err := s.svc.Expenses.VerifyExpense(s.ctx, creatorActor, e.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)
	s.Equal(domain.VerificationSelfAttested, got.VerificationKind)
	s.Equal(creatorActor.ActorID, *got.ReviewerID)

	_, err = s.svc.Expenses.VerifyExpense(s.ctx, backerActor("b"), e.ExpenseID, domain.VerificationVerified)
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *EngineTestSuite) TestVerifyExpense_HardBudgetLimit() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)
	a := s.recordExpense(p.ProjectID, nil, 800)
	b := s.recordExpense(p.ProjectID, nil, 201)
	s.True(b.OverBudget)

	_, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, a.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)
	_, err = s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, b.ExpenseID, domain.VerificationVerified)
	s.ErrorIs(err, apperrors.ErrBudgetExceeded)

	// Rejecting is always possible.
	got, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, b.ExpenseID, domain.VerificationRejected)
	s.Require().NoError(err)
	s.Equal(domain.VerificationRejected, got.VerificationStatus)
}

func (s *EngineTestSuite) TestVerifyExpense_InvalidDecision() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)
	e := s.recordExpense(p.ProjectID, nil, 10)
	_, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, domain.VerificationPending)
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, "")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestAmendExpense() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 1000)
	stageID := stages[0].StageID
	orig := s.recordExpense(p.ProjectID, &stageID, 900)

	amended, err := s.svc.Expenses.AmendExpense(s.ctx, creatorActor, orig.ExpenseID, dto.RecordExpenseRequest{
		StageID:  &stageID,
		Category: domain.CategoryEquipment,
		Title:    "corrected",
		Amount:   950,
		Date:     s.now,
	})
	s.Require().NoError(err)
	s.Require().NotNil(amended.SupersedesID)
	s.Equal(orig.ExpenseID, *amended.SupersedesID)
	s.False(amended.StageOverBudget, "the superseded record no longer counts")

	_, err = s.svc.Expenses.AmendExpense(s.ctx, creatorActor, orig.ExpenseID, dto.RecordExpenseRequest{
		Category: domain.CategoryOther,
		Title:    "again",
		Amount:   1,
		Date:     s.now,
	})
	s.ErrorIs(err, apperrors.ErrInvalidState)

	_, err = s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, orig.ExpenseID, domain.VerificationVerified)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	util, err := s.svc.Expenses.GetStageUtilization(s.ctx, stageID)
	s.Require().NoError(err)
	s.Equal(domain.Money(950), util.PendingSpend)

	page, err := s.svc.Expenses.ListExpenses(s.ctx, p.ProjectID, dto.ListExpensesParams{})
	s.Require().NoError(err)
	s.Len(page.Expenses, 2, "amendment keeps the original record")
}

func (s *EngineTestSuite) TestAmendExpense_VerifiedIsFinal() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)
	e := s.recordExpense(p.ProjectID, nil, 10)
	_, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, e.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)

	_, err = s.svc.Expenses.AmendExpense(s.ctx, creatorActor, e.ExpenseID, dto.RecordExpenseRequest{
		Category: domain.CategoryOther,
		Title:    "x",
		Amount:   5,
		Date:     s.now,
	})
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineTestSuite) TestGetStageUtilization() {
	p, stages := s.executingProject(1000, []domain.Money{1000}, 600, 400)
	stageID := stages[0].StageID
	a := s.recordExpense(p.ProjectID, &stageID, 150)
	s.recordExpense(p.ProjectID, &stageID, 100)
	_, err := s.svc.Expenses.VerifyExpense(s.ctx, reviewerActor, a.ExpenseID, domain.VerificationVerified)
	s.Require().NoError(err)

	util, err := s.svc.Expenses.GetStageUtilization(s.ctx, stageID)
	s.Require().NoError(err)
	s.Equal(domain.Money(150), util.VerifiedSpend)
	s.Equal(domain.Money(100), util.PendingSpend)
	s.Equal("25", util.UtilizationRate)
	s.False(util.OverBudget)

	_, err = s.svc.Expenses.GetStageUtilization(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *EngineTestSuite) TestListExpenses_Pages() {
	p, _ := s.executingProject(1000, []domain.Money{1000}, 1000)
	for i := 0; i < 5; i++ {
		s.recordExpense(p.ProjectID, nil, 10)
	}

	seen := map[string]bool{}
	var token *string
	for pages := 0; pages < 3; pages++ {
		page, err := s.svc.Expenses.ListExpenses(s.ctx, p.ProjectID, dto.ListExpensesParams{Limit: 2, NextToken: token})
		s.Require().NoError(err)
		for _, e := range page.Expenses {
			s.False(seen[e.ExpenseID], "expense returned twice")
			seen[e.ExpenseID] = true
		}
		token = page.NextToken
		if token == nil {
			break
		}
	}
	s.Len(seen, 5)
	s.Nil(token)

	_, err := s.svc.Expenses.ListExpenses(s.ctx, p.ProjectID, dto.ListExpensesParams{Limit: 500})
	s.ErrorIs(err, apperrors.ErrValidation)
}
