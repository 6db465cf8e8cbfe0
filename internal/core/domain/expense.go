package domain

import "time"

// ExpenseCategory classifies a spend record.
type ExpenseCategory string

const (
	CategoryLabor     ExpenseCategory = "LABOR"
	CategoryMaterial  ExpenseCategory = "MATERIAL"
	CategoryEquipment ExpenseCategory = "EQUIPMENT"
	CategoryMarketing ExpenseCategory = "MARKETING"
	CategoryOther     ExpenseCategory = "OTHER"
)

// IsValid reports whether c is a known category.
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case CategoryLabor, CategoryMaterial, CategoryEquipment, CategoryMarketing, CategoryOther:
		return true
	}
	return false
}

// VerificationStatus is the review outcome of an expense.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// VerificationDecision is a reviewer's ruling; only VERIFIED or REJECTED are accepted.
type VerificationDecision = VerificationStatus

// VerificationKind records who performed the review.
type VerificationKind string

const (
	VerificationSelfAttested VerificationKind = "SELF_ATTESTED"
	VerificationThirdParty   VerificationKind = "THIRD_PARTY"
)

// ExpenseWarning is a soft, non-blocking flag attached to an expense.
type ExpenseWarning string

const (
	WarningProjectOverBudget ExpenseWarning = "PROJECT_OVER_BUDGET"
	WarningStageOverBudget   ExpenseWarning = "STAGE_OVER_BUDGET"
	WarningMissingReceipt    ExpenseWarning = "MISSING_RECEIPT"
)

// ExpenseRecord is an append-only entry in a project's expense ledger.
type ExpenseRecord struct {
	ExpenseID          string             `json:"expenseID"`
	ProjectID          string             `json:"projectID"`
	StageID            *string            `json:"stageID,omitempty"`
	Category           ExpenseCategory    `json:"category"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	Amount             Money              `json:"amount"`
	Date               time.Time          `json:"date"`
	ReceiptRef         *string            `json:"receiptRef,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	VerificationKind   VerificationKind   `json:"verificationKind,omitempty"`
	ReviewerID         *string            `json:"reviewerID,omitempty"`
	ReviewedAt         *time.Time         `json:"reviewedAt,omitempty"`
	OverBudget         bool               `json:"overBudget"`
	StageOverBudget    bool               `json:"stageOverBudget"`
	Warnings           []ExpenseWarning   `json:"warnings,omitempty"`
	SupersedesID       *string            `json:"supersedesID,omitempty"`
	SupersededByID     *string            `json:"supersededByID,omitempty"`
	AuditFields
}

// IsActive reports whether the record still counts toward ledger totals.
func (e *ExpenseRecord) IsActive() bool {
	return e.SupersededByID == nil && e.VerificationStatus != VerificationRejected
}

// InStage reports whether the expense is attributed to stageID.
func (e *ExpenseRecord) InStage(stageID string) bool {
	return e.StageID != nil && *e.StageID == stageID
}

// ExpenseTotals is a running summary of ledger amounts.
type ExpenseTotals struct {
	Recorded Money `json:"recorded"` // Active records, pending or verified
	Verified Money `json:"verified"`
	Pending  Money `json:"pending"`
	Rejected Money `json:"rejected"`
}

// SummarizeExpenses totals records, skipping superseded ones. Pass a non-empty
// stageID to restrict to one stage.
func SummarizeExpenses(records []ExpenseRecord, stageID string) ExpenseTotals {
	var t ExpenseTotals
	for i := range records {
		r := &records[i]
		if r.SupersededByID != nil {
			continue
		}
		if stageID != "" && !r.InStage(stageID) {
			continue
		}
		switch r.VerificationStatus {
		case VerificationVerified:
			t.Verified = t.Verified.Plus(r.Amount)
			t.Recorded = t.Recorded.Plus(r.Amount)
		case VerificationPending:
			t.Pending = t.Pending.Plus(r.Amount)
			t.Recorded = t.Recorded.Plus(r.Amount)
		case VerificationRejected:
			t.Rejected = t.Rejected.Plus(r.Amount)
		}
	}
	return t
}

// StageUtilization reports verified spend against a stage budget.
type StageUtilization struct {
	StageID         string `json:"stageID"`
	Budget          Money  `json:"budget"`
	VerifiedSpend   Money  `json:"verifiedSpend"`
	PendingSpend    Money  `json:"pendingSpend"`
	UtilizationRate string `json:"utilizationRate"` // Percent, decimal string
	OverBudget      bool   `json:"overBudget"`
}

// ProjectSpend summarises a project's ledger against its budget.
type ProjectSpend struct {
	ProjectID       string        `json:"projectID"`
	TotalBudget     Money         `json:"totalBudget"`
	Totals          ExpenseTotals `json:"totals"`
	Remaining       Money         `json:"remaining"` // TotalBudget - Verified
	UtilizationRate string        `json:"utilizationRate"`
}
