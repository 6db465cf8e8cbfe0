package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
)

// Audit check names.
const (
	CheckNonNegativeFunds  = "non_negative_funds"
	CheckBudgetWithinFunds = "budget_within_funds"
	CheckStageBudgets      = "stage_budgets_within_total"
	CheckPlanBalanced      = "plan_balanced"
	CheckVerifiedSpend     = "verified_spend_within_budget"
	CheckCollectedAmount   = "collected_amount_matches_pledge"
)

type invariantAuditor struct{}

// NewInvariantAuditor returns the auditor run after every ledger mutation.
func NewInvariantAuditor() portssvc.InvariantAuditorSvc {
	return invariantAuditor{}
}

var _ portssvc.InvariantAuditorSvc = invariantAuditor{}

// Audit checks, in order: stage budgets against the total budget, plan
// balance, then the soft expense overrun (logged only), then the funding and
// verified spend bounds.
func (invariantAuditor) Audit(ctx context.Context, snap portssvc.AuditSnapshot) error {
	p := snap.Project
	if p == nil {
		return nil
	}

	if len(snap.Stages) > 0 {
		allocated := domain.SumStageBudgets(snap.Stages)
		if allocated > p.TotalBudget {
			return apperrors.NewInvariantViolation(CheckStageBudgets, p.ProjectID,
				"stage budgets %s exceed total budget %s", allocated, p.TotalBudget)
		}
	}

	if plan := snap.Plan; plan != nil && plan.Status == domain.PlanActive {
		if !plan.Balanced() {
			return apperrors.NewInvariantViolation(CheckPlanBalanced, p.ProjectID,
				"plan %s v%d: fee %s + artist %s + entries %s != revenue %s",
				plan.PlanID, plan.Version, plan.PlatformFeeAmount, plan.ArtistShareAmount,
				plan.DistributedTotal(), plan.TotalRevenue)
		}
		for _, e := range plan.Entries {
			if e.DistributedAmount.IsNegative() {
				return apperrors.NewInvariantViolation(CheckPlanBalanced, p.ProjectID,
					"plan %s entry %s has negative amount %s", plan.PlanID, e.EntryID, e.DistributedAmount)
			}
		}
	}

	var totals domain.ExpenseTotals
	if len(snap.Expenses) > 0 {
		totals = domain.SummarizeExpenses(snap.Expenses, "")
		if totals.Recorded > p.TotalBudget {
			middleware.GetLoggerFromCtx(ctx).Warn("Project expenses exceed total budget",
				slog.String("project_id", p.ProjectID),
				slog.String("recorded", totals.Recorded.String()),
				slog.String("total_budget", p.TotalBudget.String()))
		}
	}

	if p.CurrentAmount.IsNegative() {
		return apperrors.NewInvariantViolation(CheckNonNegativeFunds, p.ProjectID,
			"current amount %s is negative", p.CurrentAmount)
	}

	executing := p.Status == domain.ProjectSuccess || p.Status == domain.ProjectExecuting || p.Status == domain.ProjectCompleted
	if executing && p.TotalBudget > p.CurrentAmount {
		return apperrors.NewInvariantViolation(CheckBudgetWithinFunds, p.ProjectID,
			"total budget %s exceeds funds %s", p.TotalBudget, p.CurrentAmount)
	}

	if totals.Verified > p.TotalBudget {
		return apperrors.NewInvariantViolation(CheckVerifiedSpend, p.ProjectID,
			"verified spend %s exceeds total budget %s", totals.Verified, p.TotalBudget)
	}

	return nil
}

// LogAlerter reports violations through the structured logger.
type LogAlerter struct{}

// Alert implements portssvc.AuditAlerter.
func (LogAlerter) Alert(ctx context.Context, v *apperrors.InvariantViolationError) {
	middleware.GetLoggerFromCtx(ctx).Error("Invariant violation",
		slog.String("check", v.Check),
		slog.String("project_id", v.ProjectID),
		slog.String("details", v.Details))
}

func asViolation(err error) (*apperrors.InvariantViolationError, bool) {
	var v *apperrors.InvariantViolationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
