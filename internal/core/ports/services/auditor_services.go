package services

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// AuditSnapshot is the state the auditor checks after a mutation. Plan may be nil.
type AuditSnapshot struct {
	Project  *domain.FundingProject
	Stages   []domain.ExecutionStage
	Expenses []domain.ExpenseRecord
	Plan     *domain.RevenueDistributionPlan
}

// InvariantAuditorSvc validates cross-entity invariants.
type InvariantAuditorSvc interface {
	// Audit returns an *apperrors.InvariantViolationError for the first hard failure.
	Audit(ctx context.Context, snapshot AuditSnapshot) error
}

// AuditAlerter is notified of every hard invariant failure.
type AuditAlerter interface {
	Alert(ctx context.Context, violation *apperrors.InvariantViolationError)
}
