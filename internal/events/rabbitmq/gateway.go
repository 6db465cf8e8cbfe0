package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
)

const commandKeyPrefix = "payment.command"

// ErrTransportUnavailable is returned by FallbackGateway for every command.
var ErrTransportUnavailable = errors.New("payment command transport unavailable")

// PaymentCommandGateway implements portssvc.PaymentGateway by publishing each
// command to the payments exchange. The AMQP message id is the submission
// reference; outcomes come back as payment events.
type PaymentCommandGateway struct {
	producer *EventProducer
	exchange string
}

var _ portssvc.PaymentGateway = (*PaymentCommandGateway)(nil)

// NewPaymentCommandGateway publishes commands through producer to exchange.
func NewPaymentCommandGateway(producer *EventProducer, exchange string) *PaymentCommandGateway {
	return &PaymentCommandGateway{producer: producer, exchange: exchange}
}

func (g *PaymentCommandGateway) CollectPledge(ctx context.Context, cmd domain.PaymentCommand) (string, error) {
	return g.submit(ctx, domain.CommandCollectPledge, cmd)
}

func (g *PaymentCommandGateway) IssuePayout(ctx context.Context, cmd domain.PaymentCommand) (string, error) {
	return g.submit(ctx, domain.CommandIssuePayout, cmd)
}

func (g *PaymentCommandGateway) Refund(ctx context.Context, cmd domain.PaymentCommand) (string, error) {
	return g.submit(ctx, domain.CommandRefund, cmd)
}

func (g *PaymentCommandGateway) submit(ctx context.Context, kind domain.PaymentCommandKind, cmd domain.PaymentCommand) (string, error) {
	cmd.Kind = kind
	ref, err := g.producer.publish(ctx, g.exchange, routingKeyFor(commandKeyPrefix, string(kind)), cmd)
	if err != nil {
		return "", fmt.Errorf("submit %s for %s: %w", kind, cmd.SubjectID, err)
	}
	return ref, nil
}

// FallbackGateway is used when RabbitMQ is unavailable at startup. Every
// command fails, leaving the entity pending so it can be retried later.
type FallbackGateway struct{}

var _ portssvc.PaymentGateway = FallbackGateway{}

func (FallbackGateway) CollectPledge(ctx context.Context, cmd domain.PaymentCommand) (string, error) {
	return "", skipped(ctx, cmd)
}

func (FallbackGateway) IssuePayout(ctx context.Context, cmd domain.PaymentCommand) (string, error) {
	return "", skipped(ctx, cmd)
}

func (FallbackGateway) Refund(ctx context.Context, cmd domain.PaymentCommand) (string, error) {
	return "", skipped(ctx, cmd)
}

func skipped(ctx context.Context, cmd domain.PaymentCommand) error {
	middleware.GetLoggerFromCtx(ctx).Warn("Payment command skipped; no transport",
		slog.String("kind", string(cmd.Kind)),
		slog.String("project_id", cmd.ProjectID),
		slog.String("subject_id", cmd.SubjectID))
	return ErrTransportUnavailable
}
