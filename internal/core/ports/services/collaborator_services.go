package services

import (
	"context"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// PaymentGateway is the external payment collaborator. Each call only
// acknowledges submission; outcomes arrive later as domain.PaymentEvent.
type PaymentGateway interface {
	CollectPledge(ctx context.Context, cmd domain.PaymentCommand) (submissionRef string, err error)
	IssuePayout(ctx context.Context, cmd domain.PaymentCommand) (submissionRef string, err error)
	Refund(ctx context.Context, cmd domain.PaymentCommand) (submissionRef string, err error)
}

// PaymentDispatcher delivers payment commands outside any project lock.
type PaymentDispatcher interface {
	Dispatch(ctx context.Context, cmds ...domain.PaymentCommand)
}

// EventPublisher publishes domain events after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// ProjectLocker serializes financial mutations per project.
type ProjectLocker interface {
	// Lock blocks until the project lock is held or ctx is done. The returned
	// function releases the lock.
	Lock(ctx context.Context, projectID string) (unlock func(), err error)
}
