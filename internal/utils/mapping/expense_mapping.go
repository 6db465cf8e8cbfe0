package mapping

import (
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/models"
)

// ToModelExpense converts a domain ExpenseRecord to a model ExpenseRecord
func ToModelExpense(d domain.ExpenseRecord) models.ExpenseRecord {
	warnings := make([]string, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		warnings = append(warnings, string(w))
	}
	return models.ExpenseRecord{
		ExpenseID:          d.ExpenseID,
		ProjectID:          d.ProjectID,
		StageID:            NullString(d.StageID),
		Category:           string(d.Category),
		Title:              d.Title,
		Description:        d.Description,
		Amount:             int64(d.Amount),
		ExpenseDate:        d.Date,
		ReceiptRef:         NullString(d.ReceiptRef),
		VerificationStatus: string(d.VerificationStatus),
		VerificationKind:   string(d.VerificationKind),
		ReviewerID:         NullString(d.ReviewerID),
		ReviewedAt:         NullTime(d.ReviewedAt),
		OverBudget:         d.OverBudget,
		StageOverBudget:    d.StageOverBudget,
		Warnings:           warnings,
		SupersedesID:       NullString(d.SupersedesID),
		SupersededByID:     NullString(d.SupersededByID),
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainExpense converts a model ExpenseRecord to a domain ExpenseRecord
func ToDomainExpense(m models.ExpenseRecord) domain.ExpenseRecord {
	var warnings []domain.ExpenseWarning
	for _, w := range m.Warnings {
		warnings = append(warnings, domain.ExpenseWarning(w))
	}
	return domain.ExpenseRecord{
		ExpenseID:          m.ExpenseID,
		ProjectID:          m.ProjectID,
		StageID:            StringPtr(m.StageID),
		Category:           domain.ExpenseCategory(m.Category),
		Title:              m.Title,
		Description:        m.Description,
		Amount:             domain.Money(m.Amount),
		Date:               m.ExpenseDate,
		ReceiptRef:         StringPtr(m.ReceiptRef),
		VerificationStatus: domain.VerificationStatus(m.VerificationStatus),
		VerificationKind:   domain.VerificationKind(m.VerificationKind),
		ReviewerID:         StringPtr(m.ReviewerID),
		ReviewedAt:         TimePtr(m.ReviewedAt),
		OverBudget:         m.OverBudget,
		StageOverBudget:    m.StageOverBudget,
		Warnings:           warnings,
		SupersedesID:       StringPtr(m.SupersedesID),
		SupersededByID:     StringPtr(m.SupersededByID),
		AuditFields:        ToDomainAuditFields(m.AuditFields),
	}
}
