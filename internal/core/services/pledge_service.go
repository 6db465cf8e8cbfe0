package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
)

// RequestPledge records a PENDING pledge from the acting backer and asks the
// payment collaborator to collect it. Funds count only once confirmed.
func (s *lifecycleService) RequestPledge(ctx context.Context, actor domain.Actor, projectID string, amount domain.Money) (*domain.Pledge, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpRequestPledge); err != nil {
		return nil, err
	}
	if _, err := domain.NewMoney(int64(amount)); err != nil {
		return nil, fmt.Errorf("%w: pledge %v", apperrors.ErrValidation, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: pledge amount must be positive", apperrors.ErrValidation)
	}

	var pledge *domain.Pledge
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		now := s.Now()
		if p.Status != domain.ProjectInProgress || p.DeadlinePassed(now) {
			return fmt.Errorf("%w: project %s is not accepting pledges", apperrors.ErrInvalidState, projectID)
		}
		pl := domain.Pledge{
			PledgeID:  uuid.NewString(),
			ProjectID: projectID,
			BackerID:  actor.ActorID,
			Amount:    amount,
			PledgedAt: now,
			Status:    domain.PledgePending,
		}
		pl.Touch(actor.ActorID, now)
		if err := s.pledgeRepo.SavePledge(ctx, pl); err != nil {
			return err
		}
		pledge = &pl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, domain.PaymentCommand{
		Kind:      domain.CommandCollectPledge,
		ProjectID: projectID,
		SubjectID: pledge.PledgeID,
		BackerID:  pledge.BackerID,
		Amount:    pledge.Amount,
	})
	s.LogInfo(ctx, "Pledge requested",
		slog.String("project_id", projectID),
		slog.String("pledge_id", pledge.PledgeID),
		slog.String("amount", amount.String()))
	return pledge, nil
}

// HandlePaymentEvent applies a confirmation from the payment collaborator.
// Every branch is keyed on the subject's current status, so replays are no-ops.
func (s *lifecycleService) HandlePaymentEvent(ctx context.Context, actor domain.Actor, ev domain.PaymentEvent) error {
	if err := s.AuthorizeActor(ctx, actor, domain.OpHandlePaymentEvent); err != nil {
		return err
	}
	logger := s.GetLogger(ctx).With(
		slog.String("event_id", ev.EventID),
		slog.String("event_type", string(ev.Type)),
		slog.String("project_id", ev.ProjectID),
		slog.String("subject_id", ev.SubjectID))

	var (
		followUp []domain.PaymentCommand
		applied  bool
	)
	err := s.mutateProject(ctx, ev.ProjectID, func(ctx context.Context) error {
		var err error
		switch ev.Type {
		case domain.EventPledgeConfirmed, domain.EventPledgeFailed, domain.EventRefundConfirmed, domain.EventRefundFailed:
			applied, followUp, err = s.applyPledgeEvent(ctx, actor, ev)
		case domain.EventPayoutConfirmed, domain.EventPayoutFailed:
			applied, err = s.applyPayoutEvent(ctx, actor, ev)
		default:
			err = fmt.Errorf("%w: unknown payment event type %q", apperrors.ErrValidation, ev.Type)
		}
		return err
	})
	if err != nil {
		logger.Error("Failed to apply payment event", slog.String("error", err.Error()))
		return err
	}

	if !applied {
		logger.Debug("Payment event already applied")
		return nil
	}
	s.Dispatcher.Dispatch(ctx, followUp...)
	logger.Info("Payment event applied")
	s.publish(ctx, "payment."+string(ev.Type), ev.ProjectID, actor.ActorID, map[string]any{
		"subjectID": ev.SubjectID,
		"amount":    ev.Amount,
	})
	return nil
}

func (s *lifecycleService) applyPledgeEvent(ctx context.Context, actor domain.Actor, ev domain.PaymentEvent) (bool, []domain.PaymentCommand, error) {
	pl, err := s.pledgeRepo.FindPledgeByID(ctx, ev.SubjectID)
	if err != nil {
		return false, nil, err
	}
	if pl.ProjectID != ev.ProjectID {
		return false, nil, fmt.Errorf("%w: pledge %s does not belong to project %s", apperrors.ErrValidation, pl.PledgeID, ev.ProjectID)
	}
	p, err := s.projectRepo.FindProjectByID(ctx, ev.ProjectID)
	if err != nil {
		return false, nil, err
	}

	now := s.Now()
	var cmds []domain.PaymentCommand
	switch ev.Type {
	case domain.EventPledgeConfirmed:
		if pl.Status != domain.PledgePending {
			return false, nil, nil
		}
		pl.Status = domain.PledgeCompleted
		if ev.PaymentRef != "" {
			ref := ev.PaymentRef
			pl.PaymentRef = &ref
		}
		if ev.Amount != 0 && ev.Amount != pl.Amount {
			// The collected amount is what the backer is owed back; it never counts.
			s.Alerter.Alert(ctx, &apperrors.InvariantViolationError{
				Check:     CheckCollectedAmount,
				ProjectID: p.ProjectID,
				Details:   fmt.Sprintf("pledge %s requested %s but %s was collected; refunding", pl.PledgeID, pl.Amount, ev.Amount),
			})
			pl.Amount = ev.Amount
			pl.RefundRequestedAt = &now
			cmds = append(cmds, refundCommand(pl))
		} else if p.Status == domain.ProjectInProgress {
			pl.Counted = true
			p.CurrentAmount = p.CurrentAmount.Plus(pl.Amount)
		} else {
			// Collection settled after funding closed; the money goes straight back.
			pl.RefundRequestedAt = &now
			cmds = append(cmds, refundCommand(pl))
		}

	case domain.EventPledgeFailed:
		if pl.Status != domain.PledgePending {
			return false, nil, nil
		}
		pl.Status = domain.PledgeCancelled

	case domain.EventRefundConfirmed:
		if !pl.AwaitingRefund() {
			return false, nil, nil
		}
		pl.Status = domain.PledgeRefunded
		if pl.Counted {
			p.CurrentAmount -= pl.Amount
			pl.Counted = false
		}

	case domain.EventRefundFailed:
		if !pl.AwaitingRefund() {
			return false, nil, nil
		}
		pl.RefundRequestedAt = nil
	}

	pl.Touch(actor.ActorID, now)
	if err := s.pledgeRepo.SavePledge(ctx, *pl); err != nil {
		return false, nil, err
	}
	p.Touch(actor.ActorID, now)
	if err := s.projectRepo.SaveProject(ctx, p); err != nil {
		return false, nil, err
	}
	if err := s.audit(ctx, portssvc.AuditSnapshot{Project: p}); err != nil {
		return false, nil, err
	}
	return true, cmds, nil
}

func (s *lifecycleService) applyPayoutEvent(ctx context.Context, actor domain.Actor, ev domain.PaymentEvent) (bool, error) {
	plan, err := s.distributionRepo.FindActivePlanByProject(ctx, ev.ProjectID)
	if err != nil {
		return false, err
	}
	entry, ok := plan.EntryByID(ev.SubjectID)
	if !ok {
		return false, fmt.Errorf("distribution entry %s in plan %s: %w", ev.SubjectID, plan.PlanID, apperrors.ErrNotFound)
	}
	if entry.Status != domain.EntryProcessing {
		return false, nil
	}
	if ev.Amount != 0 && ev.Amount != entry.DistributedAmount {
		return false, fmt.Errorf("%w: payout amount %s differs from entry amount %s", apperrors.ErrValidation, ev.Amount, entry.DistributedAmount)
	}

	switch ev.Type {
	case domain.EventPayoutConfirmed:
		entry.Status = domain.EntryCompleted
		entry.FailureReason = ""
		if ev.PaymentRef != "" {
			ref := ev.PaymentRef
			entry.PayoutRef = &ref
		}
	case domain.EventPayoutFailed:
		entry.Status = domain.EntryFailed
		entry.FailureReason = ev.Reason
	}

	plan.Touch(actor.ActorID, s.Now())
	if err := s.distributionRepo.SavePlan(ctx, *plan); err != nil {
		return false, err
	}
	return true, nil
}

// RetryRefunds re-dispatches refunds that are owed but not in flight: every
// completed pledge of a FAILED or CANCELLED project, and any completed pledge
// that was settled after funding closed.
func (s *lifecycleService) RetryRefunds(ctx context.Context, actor domain.Actor, projectID string) (int, error) {
	if err := s.AuthorizeActor(ctx, actor, domain.OpRetryRefunds); err != nil {
		return 0, err
	}

	var cmds []domain.PaymentCommand
	err := s.mutateProject(ctx, projectID, func(ctx context.Context) error {
		p, err := s.projectRepo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		refundAll := p.Status == domain.ProjectFailed || p.Status == domain.ProjectCancelled

		pledges, err := s.pledgeRepo.ListPledgesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		now := s.Now()
		for i := range pledges {
			pl := &pledges[i]
			if pl.Status != domain.PledgeCompleted || pl.RefundRequestedAt != nil {
				continue
			}
			if !refundAll && pl.Counted {
				continue
			}
			pl.RefundRequestedAt = &now
			pl.Touch(actor.ActorID, now)
			if err := s.pledgeRepo.SavePledge(ctx, *pl); err != nil {
				return err
			}
			cmds = append(cmds, refundCommand(pl))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Dispatcher.Dispatch(ctx, cmds...)
	if len(cmds) > 0 {
		s.LogInfo(ctx, "Refunds re-dispatched", slog.String("project_id", projectID), slog.Int("count", len(cmds)))
	}
	return len(cmds), nil
}
