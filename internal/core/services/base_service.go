package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	TxManager  portsrepo.TransactionManager
	Locker     portssvc.ProjectLocker
	Publisher  portssvc.EventPublisher
	Dispatcher portssvc.PaymentDispatcher
	Alerter    portssvc.AuditAlerter
	Auditor    portssvc.InvariantAuditorSvc
	Now        func() time.Time
}

// ServiceOption is a functional option for configuring the shared service dependencies
type ServiceOption func(*BaseService)

// WithLocker sets the per-project lock used to serialize mutations.
func WithLocker(l portssvc.ProjectLocker) ServiceOption {
	return func(b *BaseService) { b.Locker = l }
}

// WithPublisher sets the domain event publisher.
func WithPublisher(p portssvc.EventPublisher) ServiceOption {
	return func(b *BaseService) { b.Publisher = p }
}

// WithDispatcher sets the payment command dispatcher.
func WithDispatcher(d portssvc.PaymentDispatcher) ServiceOption {
	return func(b *BaseService) { b.Dispatcher = d }
}

// WithAlerter sets the receiver of invariant violations.
func WithAlerter(a portssvc.AuditAlerter) ServiceOption {
	return func(b *BaseService) { b.Alerter = a }
}

// WithAuditor replaces the default invariant auditor.
func WithAuditor(a portssvc.InvariantAuditorSvc) ServiceOption {
	return func(b *BaseService) { b.Auditor = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(b *BaseService) { b.Now = now }
}

func newBaseService(tx portsrepo.TransactionManager, opts ...ServiceOption) BaseService {
	b := BaseService{TxManager: tx}
	for _, opt := range opts {
		opt(&b)
	}
	if b.Locker == nil {
		b.Locker = NewProjectLocker()
	}
	if b.Publisher == nil {
		b.Publisher = logPublisher{}
	}
	if b.Dispatcher == nil {
		b.Dispatcher = logDispatcher{}
	}
	if b.Alerter == nil {
		b.Alerter = LogAlerter{}
	}
	if b.Auditor == nil {
		b.Auditor = NewInvariantAuditor()
	}
	if b.Now == nil {
		b.Now = func() time.Time { return time.Now().UTC() }
	}
	return b
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// AuthorizeActor checks the actor carries a verified role allowed for op.
func (s *BaseService) AuthorizeActor(ctx context.Context, actor domain.Actor, op domain.Operation) error {
	if actor.Permits(op) {
		return nil
	}
	s.LogWarn(ctx, "Actor not permitted",
		slog.String("actor_id", actor.ActorID),
		slog.String("role", string(actor.Role)),
		slog.Bool("role_checked", actor.RoleChecked),
		slog.String("operation", string(op)))
	return fmt.Errorf("%w: %s may not %s", apperrors.ErrUnauthorized, actor.Role, op)
}

// mutateProject holds the project lock and runs fn in a single unit of work.
// Once the lock is held, cancellation of ctx no longer interrupts the mutation.
func (s *BaseService) mutateProject(ctx context.Context, projectID string, fn func(ctx context.Context) error) error {
	unlock, err := s.Locker.Lock(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to lock project %s: %w", projectID, err)
	}
	defer unlock()

	return s.TxManager.WithinTx(context.WithoutCancel(ctx), fn)
}

// audit runs the invariant auditor and raises an alert for hard failures.
func (s *BaseService) audit(ctx context.Context, snapshot portssvc.AuditSnapshot) error {
	err := s.Auditor.Audit(ctx, snapshot)
	if err == nil {
		return nil
	}
	if violation, ok := asViolation(err); ok {
		s.Alerter.Alert(ctx, violation)
	}
	return err
}

// publish emits a domain event; delivery failure never fails the committed mutation.
func (s *BaseService) publish(ctx context.Context, name, projectID, actorID string, data map[string]any) {
	event := domain.DomainEvent{
		Name:       name,
		ProjectID:  projectID,
		ActorID:    actorID,
		OccurredAt: s.Now(),
		Data:       data,
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.LogError(ctx, err, "Failed to publish domain event", slog.String("event", name), slog.String("project_id", projectID))
	}
}

type logPublisher struct{}

func (logPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	middleware.GetLoggerFromCtx(ctx).Debug("Domain event",
		slog.String("event", event.Name),
		slog.String("project_id", event.ProjectID))
	return nil
}

type logDispatcher struct{}

func (logDispatcher) Dispatch(ctx context.Context, cmds ...domain.PaymentCommand) {
	for _, cmd := range cmds {
		middleware.GetLoggerFromCtx(ctx).Warn("No payment dispatcher configured, command dropped",
			slog.String("kind", string(cmd.Kind)),
			slog.String("subject_id", cmd.SubjectID))
	}
}

// authorizeOwner restricts creators to their own projects; other permitted roles pass.
func (s *BaseService) authorizeOwner(ctx context.Context, actor domain.Actor, project *domain.FundingProject) error {
	if actor.Role != domain.RoleCreator || actor.ActorID == project.CreatorID {
		return nil
	}
	s.LogWarn(ctx, "Creator acting on a project they do not own",
		slog.String("actor_id", actor.ActorID),
		slog.String("project_id", project.ProjectID))
	return fmt.Errorf("%w: project %s belongs to another creator", apperrors.ErrUnauthorized, project.ProjectID)
}

func transitionProject(p *domain.FundingProject, to domain.ProjectStatus, actorID, reason string, at time.Time) error {
	from := p.Status
	if !p.Transition(to, actorID, reason, at) {
		return fmt.Errorf("%w: %s -> %s for project %s", apperrors.ErrInvalidTransition, from, to, p.ProjectID)
	}
	return nil
}
