package memory

import (
	"slices"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// Values stored in the maps never share slices or pointers with callers.

func cloneProject(p domain.FundingProject) domain.FundingProject {
	p.StatusHistory = slices.Clone(p.StatusHistory)
	p.StagesCompletedAt = clonePtr(p.StagesCompletedAt)
	return p
}

func cloneStage(s domain.ExecutionStage) domain.ExecutionStage {
	s.StartDate = clonePtr(s.StartDate)
	s.EndDate = clonePtr(s.EndDate)
	return s
}

func cloneExpense(e domain.ExpenseRecord) domain.ExpenseRecord {
	e.StageID = clonePtr(e.StageID)
	e.ReceiptRef = clonePtr(e.ReceiptRef)
	e.ReviewerID = clonePtr(e.ReviewerID)
	e.ReviewedAt = clonePtr(e.ReviewedAt)
	e.SupersedesID = clonePtr(e.SupersedesID)
	e.SupersededByID = clonePtr(e.SupersededByID)
	e.Warnings = slices.Clone(e.Warnings)
	return e
}

func clonePledge(p domain.Pledge) domain.Pledge {
	p.PaymentRef = clonePtr(p.PaymentRef)
	p.RefundRequestedAt = clonePtr(p.RefundRequestedAt)
	return p
}

func clonePlan(p domain.RevenueDistributionPlan) domain.RevenueDistributionPlan {
	p.SupersedesPlanID = clonePtr(p.SupersedesPlanID)
	entries := make([]domain.DistributionEntry, len(p.Entries))
	for i, e := range p.Entries {
		e.PayoutRef = clonePtr(e.PayoutRef)
		entries[i] = e
	}
	p.Entries = entries
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
