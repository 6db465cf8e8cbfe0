package services

import (
	"context"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
)

// ProjectReaderSvc defines read operations for projects
type ProjectReaderSvc interface {
	GetProject(ctx context.Context, projectID string) (*domain.FundingProject, error)
	ListPledges(ctx context.Context, projectID string) ([]domain.Pledge, error)
}

// ProjectLifecycleSvc drives a project through its status transitions.
type ProjectLifecycleSvc interface {
	// CreateProject records a new proposal in PREPARING.
	CreateProject(ctx context.Context, actor domain.Actor, req dto.CreateProjectRequest) (*domain.FundingProject, error)

	// ApproveProject opens a prepared project for pledges.
	ApproveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.FundingProject, error)

	// CloseFunding resolves an IN_PROGRESS project whose deadline has passed.
	CloseFunding(ctx context.Context, actor domain.Actor, projectID string, now time.Time) (*domain.FundingProject, error)

	// SweepDeadlines closes every IN_PROGRESS project past its deadline and
	// returns the ids that were closed.
	SweepDeadlines(ctx context.Context, now time.Time) ([]string, error)

	// CancelProject withdraws a project before its deadline and refunds completed pledges.
	CancelProject(ctx context.Context, actor domain.Actor, projectID string, reason string) (*domain.FundingProject, error)

	// SubmitExecutionPlan moves a SUCCESS project to EXECUTING with its stages.
	SubmitExecutionPlan(ctx context.Context, actor domain.Actor, projectID string, req dto.SubmitExecutionPlanRequest) (*domain.FundingProject, error)

	// FinalizeProject moves an EXECUTING project to COMPLETED.
	FinalizeProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.FundingProject, error)
}

// PledgeSvc handles pledge intake and payment confirmations.
type PledgeSvc interface {
	// RequestPledge records a PENDING pledge and asks the payment collaborator to collect it.
	RequestPledge(ctx context.Context, actor domain.Actor, projectID string, amount domain.Money) (*domain.Pledge, error)

	// HandlePaymentEvent applies a confirmation from the payment collaborator. Replays are no-ops.
	HandlePaymentEvent(ctx context.Context, actor domain.Actor, event domain.PaymentEvent) error

	// RetryRefunds re-dispatches refunds for completed pledges of a FAILED or CANCELLED project.
	RetryRefunds(ctx context.Context, actor domain.Actor, projectID string) (int, error)
}

// LifecycleSvcFacade combines all lifecycle-related service interfaces
type LifecycleSvcFacade interface {
	ProjectReaderSvc
	ProjectLifecycleSvc
	PledgeSvc
}
