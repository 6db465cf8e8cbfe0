package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

const defaultExpensePageSize = 50

type expenseService struct {
	BaseService
	projectRepo portsrepo.ProjectRepositoryFacade
	stageRepo   portsrepo.StageRepositoryFacade
	expenseRepo portsrepo.ExpenseRepositoryFacade
}

// NewExpenseService creates a new expense ledger service.
func NewExpenseService(repos portsrepo.RepositoryProvider, opts ...ServiceOption) portssvc.ExpenseLedgerSvcFacade {
	return &expenseService{
		BaseService: newBaseService(repos.TxManager, opts...),
		projectRepo: repos.ProjectRepo,
		stageRepo:   repos.StageRepo,
		expenseRepo: repos.ExpenseRepo,
	}
}

var _ portssvc.ExpenseLedgerSvcFacade = (*expenseService)(nil)

// RecordExpense appends a PENDING record. Over-budget spend is accepted and
// flagged on the record rather than rejected.
func (s *expenseService) RecordExpense(ctx context.Context, actor domain.Actor, projectID string, req dto.RecordExpenseRequest) (*domain.ExpenseRecord, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpRecordExpense); err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var record domain.ExpenseRecord
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, stages, expenses, err := s.loadLedger(ctx, actor, projectID)
		if err != nil {
			return err
		}
		record, err = s.newExpense(p, stages, expenses, req, actor.ActorID)
		if err != nil {
			return err
		}
		if err := s.expenseRepo.SaveExpense(ctx, record); err != nil {
			return err
		}
		return s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages, Expenses: append(expenses, record)})
	})
	if err != nil {
		return nil, err
	}

	s.logRecorded(ctx, "Expense recorded", record)
	s.publish(ctx, "expense.recorded", projectID, actor.ActorID, map[string]any{
		"expenseID":  record.ExpenseID,
		"amount":     record.Amount,
		"overBudget": record.OverBudget,
	})
	return &record, nil
}

// AmendExpense appends a correcting record and marks the original superseded.
// Verified records are final and cannot be amended.
func (s *expenseService) AmendExpense(ctx context.Context, actor domain.Actor, expenseID string, req dto.RecordExpenseRequest) (*domain.ExpenseRecord, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpAmendExpense); err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	original, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	projectID := original.ProjectID

	var record domain.ExpenseRecord
	err = s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, stages, expenses, err := s.loadLedger(ctx, actor, projectID)
		if err != nil {
			return err
		}
		old := findExpense(expenses, expenseID)
		if old == nil {
			return fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		if old.SupersededByID != nil {
			return fmt.Errorf("%w: expense %s was already amended by %s", apperrors.ErrInvalidState, expenseID, *old.SupersededByID)
		}
		if old.VerificationStatus == domain.VerificationVerified {
			return fmt.Errorf("%w: verified expense %s cannot be amended", apperrors.ErrInvalidState, expenseID)
		}

		// The new record's flags are computed with the original already out of the totals.
		newID := uuid.NewString()
		old.SupersededByID = &newID
		record, err = s.newExpense(p, stages, expenses, req, actor.ActorID)
		if err != nil {
			return err
		}
		originalID := old.ExpenseID
		record.ExpenseID = newID
		record.SupersedesID = &originalID

		old.Touch(actor.ActorID, s.Now())
		if err := s.expenseRepo.SaveExpense(ctx, *old); err != nil {
			return err
		}
		if err := s.expenseRepo.SaveExpense(ctx, record); err != nil {
			return err
		}
		return s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages, Expenses: append(expenses, record)})
	})
	if err != nil {
		return nil, err
	}

	s.logRecorded(ctx, "Expense amended", record, slog.String("supersedes_id", expenseID))
	s.publish(ctx, "expense.amended", projectID, actor.ActorID, map[string]any{
		"expenseID":    record.ExpenseID,
		"supersedesID": expenseID,
	})
	return &record, nil
}

// VerifyExpense applies a reviewer decision to a PENDING record. Repeating the
// same decision is a no-op; the opposite decision is rejected. Verification
// may not take verified spend past the project's total budget.
func (s *expenseService) VerifyExpense(ctx context.Context, actor domain.Actor, expenseID string, decision domain.VerificationDecision) (*domain.ExpenseRecord, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpVerifyExpense); err != nil {
		return nil, err
	}
	if err := dto.Validate(dto.VerifyExpenseRequest{Decision: decision}); err != nil {
		return nil, err
	}
	existing, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	projectID := existing.ProjectID

	var (
		record  domain.ExpenseRecord
		changed bool
	)
	err = s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, stages, expenses, err := s.loadLedger(ctx, actor, projectID)
		if err != nil {
			return err
		}
		e := findExpense(expenses, expenseID)
		if e == nil {
			return fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		if e.VerificationStatus == decision {
			record = *e
			return nil
		}
		if e.VerificationStatus != domain.VerificationPending {
			return fmt.Errorf("%w: expense %s is already %s", apperrors.ErrInvalidState, expenseID, e.VerificationStatus)
		}
		if e.SupersededByID != nil {
			return fmt.Errorf("%w: expense %s was amended by %s", apperrors.ErrInvalidState, expenseID, *e.SupersededByID)
		}

		if decision == domain.VerificationVerified {
			verified := domain.SummarizeExpenses(expenses, "").Verified.Plus(e.Amount)
			if verified > p.TotalBudget {
				return fmt.Errorf("%w: verified spend %s would exceed total budget %s", apperrors.ErrBudgetExceeded, verified, p.TotalBudget)
			}
		}

		now := s.Now()
		reviewer := actor.ActorID
		e.VerificationStatus = decision
		e.ReviewerID = &reviewer
		e.ReviewedAt = &now
		e.VerificationKind = domain.VerificationThirdParty
		if actor.ActorID == p.CreatorID {
			e.VerificationKind = domain.VerificationSelfAttested
		}
		e.Touch(actor.ActorID, now)
		if err := s.expenseRepo.SaveExpense(ctx, *e); err != nil {
			return err
		}
		if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p, Stages: stages, Expenses: expenses}); err != nil {
			return err
		}
		record = *e
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		s.LogDebug(ctx, "Expense already reviewed", slog.String("expense_id", expenseID), slog.String("decision", string(decision)))
		return &record, nil
	}

	s.LogInfo(ctx, "Expense reviewed",
		slog.String("project_id", projectID),
		slog.String("expense_id", expenseID),
		slog.String("decision", string(decision)),
		slog.String("kind", string(record.VerificationKind)))
	s.publish(ctx, "expense.reviewed", projectID, actor.ActorID, map[string]any{
		"expenseID": expenseID,
		"decision":  decision,
		"kind":      record.VerificationKind,
	})
	return &record, nil
}

func (s *expenseService) GetStageUtilization(ctx context.Context, stageID string) (*domain.StageUtilization, error) {
	stage, err := s.stageRepo.FindStageByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenseRepo.ListExpensesByProject(ctx, stage.ProjectID)
	if err != nil {
		return nil, err
	}
	totals := domain.SummarizeExpenses(expenses, stageID)
	return &domain.StageUtilization{
		StageID:         stageID,
		Budget:          stage.Budget,
		VerifiedSpend:   totals.Verified,
		PendingSpend:    totals.Pending,
		UtilizationRate: domain.RatioPercent(totals.Verified, stage.Budget).String(),
		OverBudget:      totals.Verified > stage.Budget,
	}, nil
}

func (s *expenseService) GetProjectSpend(ctx context.Context, projectID string) (*domain.ProjectSpend, error) {
	p, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenseRepo.ListExpensesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	totals := domain.SummarizeExpenses(expenses, "")
	return &domain.ProjectSpend{
		ProjectID:       projectID,
		TotalBudget:     p.TotalBudget,
		Totals:          totals,
		Remaining:       p.TotalBudget - totals.Verified,
		UtilizationRate: domain.RatioPercent(totals.Verified, p.TotalBudget).String(),
	}, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, projectID string, params dto.ListExpensesParams) (*dto.ListExpensesResponse, error) {
	if err := dto.Validate(params); err != nil {
		return nil, err
	}
	if _, err := s.projectRepo.FindProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit == 0 {
		limit = defaultExpensePageSize
	}
	records, next, err := s.expenseRepo.ListExpensesByProjectPage(ctx, projectID, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return &dto.ListExpensesResponse{Expenses: records, NextToken: next}, nil
}

// loadLedger reads the project and its ledger under the project lock and
// checks the project is executing.
func (s *expenseService) loadLedger(ctx context.Context, actor domain.Actor, projectID string) (*domain.FundingProject, []domain.ExecutionStage, []domain.ExpenseRecord, error) {
	p, err := s.projectRepo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.authorizeOwner(ctx, actor, p); err != nil {
		return nil, nil, nil, err
	}
	if p.Status != domain.ProjectExecuting {
		return nil, nil, nil, fmt.Errorf("%w: project %s is %s, not executing", apperrors.ErrInvalidState, projectID, p.Status)
	}
	stages, err := s.stageRepo.ListStagesByProject(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	expenses, err := s.expenseRepo.ListExpensesByProject(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, stages, expenses, nil
}

// newExpense builds a PENDING record and sets its soft budget flags against
// the running totals in expenses.
func (s *expenseService) newExpense(p *domain.FundingProject, stages []domain.ExecutionStage, expenses []domain.ExpenseRecord, req dto.RecordExpenseRequest, actorID string) (domain.ExpenseRecord, error) {
	var stage *domain.ExecutionStage
	if req.StageID != nil {
		for i := range stages {
			if stages[i].StageID == *req.StageID {
				stage = &stages[i]
				break
			}
		}
		if stage == nil {
			return domain.ExpenseRecord{}, fmt.Errorf("%w: stage %s does not belong to project %s", apperrors.ErrValidation, *req.StageID, p.ProjectID)
		}
	}

	now := s.Now()
	amount := domain.Money(req.Amount)
	e := domain.ExpenseRecord{
		ExpenseID:          uuid.NewString(),
		ProjectID:          p.ProjectID,
		StageID:            req.StageID,
		Category:           req.Category,
		Title:              req.Title,
		Description:        req.Description,
		Amount:             amount,
		Date:               req.Date.UTC(),
		ReceiptRef:         req.ReceiptRef,
		VerificationStatus: domain.VerificationPending,
	}

	if domain.SummarizeExpenses(expenses, "").Recorded.Plus(amount) > p.TotalBudget {
		e.OverBudget = true
		e.Warnings = append(e.Warnings, domain.WarningProjectOverBudget)
	}
	if stage != nil && domain.SummarizeExpenses(expenses, stage.StageID).Recorded.Plus(amount) > stage.Budget {
		e.StageOverBudget = true
		e.Warnings = append(e.Warnings, domain.WarningStageOverBudget)
	}
	if e.ReceiptRef == nil {
		e.Warnings = append(e.Warnings, domain.WarningMissingReceipt)
	}
	e.Touch(actorID, now)
	return e, nil
}

func (s *expenseService) logRecorded(ctx context.Context, msg string, e domain.ExpenseRecord, extra ...any) {
	args := []any{
		slog.String("project_id", e.ProjectID),
		slog.String("expense_id", e.ExpenseID),
		slog.String("amount", e.Amount.String()),
	}
	args = append(args, extra...)
	if e.OverBudget || e.StageOverBudget {
		args = append(args, slog.Bool("over_budget", e.OverBudget), slog.Bool("stage_over_budget", e.StageOverBudget))
		s.LogWarn(ctx, msg+" over budget", args...)
		return
	}
	s.LogInfo(ctx, msg, args...)
}

func findExpense(expenses []domain.ExpenseRecord, expenseID string) *domain.ExpenseRecord {
	for i := range expenses {
		if expenses[i].ExpenseID == expenseID {
			return &expenses[i]
		}
	}
	return nil
}
