package dto

import (
	"time"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// RecordExpenseRequest is a new ledger line.
type RecordExpenseRequest struct {
	StageID     *string                `json:"stageID,omitempty" validate:"omitempty,min=1"`
	Category    domain.ExpenseCategory `json:"category" validate:"required,oneof=LABOR MATERIAL EQUIPMENT MARKETING OTHER"`
	Title       string                 `json:"title" validate:"required,max=200"`
	Description string                 `json:"description" validate:"max=2000"`
	Amount      int64                  `json:"amount" validate:"gt=0,lte=9007199254740992"`
	Date        time.Time              `json:"date" validate:"required"`
	ReceiptRef  *string                `json:"receiptRef,omitempty" validate:"omitempty,min=1"`
}

// VerifyExpenseRequest carries a reviewer decision.
type VerifyExpenseRequest struct {
	Decision domain.VerificationStatus `json:"decision" validate:"required,oneof=VERIFIED REJECTED"`
}

// ListExpensesParams pages through a project's ledger.
type ListExpensesParams struct {
	Limit     int     `json:"limit" validate:"omitempty,min=1,max=200"`
	NextToken *string `json:"nextToken,omitempty"`
}

// ListExpensesResponse is one page of ledger entries.
type ListExpensesResponse struct {
	Expenses  []domain.ExpenseRecord `json:"expenses"`
	NextToken *string                `json:"nextToken,omitempty"`
}
