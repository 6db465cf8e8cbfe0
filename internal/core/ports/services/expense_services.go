package services

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

// ExpenseWriterSvc defines mutations of the expense ledger
type ExpenseWriterSvc interface {
	RecordExpense(ctx context.Context, actor domain.Actor, projectID string, req dto.RecordExpenseRequest) (*domain.ExpenseRecord, error)

	// AmendExpense appends a correcting record that supersedes expenseID.
	AmendExpense(ctx context.Context, actor domain.Actor, expenseID string, req dto.RecordExpenseRequest) (*domain.ExpenseRecord, error)

	VerifyExpense(ctx context.Context, actor domain.Actor, expenseID string, decision domain.VerificationDecision) (*domain.ExpenseRecord, error)
}

// ExpenseReaderSvc defines lock-free reads of the expense ledger
type ExpenseReaderSvc interface {
	GetStageUtilization(ctx context.Context, stageID string) (*domain.StageUtilization, error)
	GetProjectSpend(ctx context.Context, projectID string) (*domain.ProjectSpend, error)
	ListExpenses(ctx context.Context, projectID string, params dto.ListExpensesParams) (*dto.ListExpensesResponse, error)
}

// ExpenseLedgerSvcFacade combines all expense-related service interfaces
type ExpenseLedgerSvcFacade interface {
	ExpenseWriterSvc
	ExpenseReaderSvc
}
