package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/dto"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentEventKeys matches every payment outcome routing key.
const PaymentEventKeys = "payment.event.#"

const consumerPrefetch = 16

// PaymentEventSink applies a normalized payment outcome.
type PaymentEventSink interface {
	HandlePaymentEvent(ctx context.Context, actor domain.Actor, event domain.PaymentEvent) error
}

// PaymentEventHandler decodes payment confirmations and feeds them to the engine
// as the system actor.
type PaymentEventHandler struct {
	sink  PaymentEventSink
	actor domain.Actor
}

// NewPaymentEventHandler creates a handler that applies events to sink.
func NewPaymentEventHandler(sink PaymentEventSink) *PaymentEventHandler {
	return &PaymentEventHandler{sink: sink, actor: domain.SystemActor("payment-events")}
}

// Handle reports whether the delivery should be acknowledged. Malformed
// payloads and events the engine rejects outright are dropped; anything else
// is requeued.
func (h *PaymentEventHandler) Handle(ctx context.Context, body []byte) bool {
	logger := middleware.GetLoggerFromCtx(ctx)

	event, err := dto.DecodePaymentEvent(body)
	if err != nil {
		logger.Error("Dropping malformed payment event", slog.String("error", err.Error()))
		return true
	}

	logger = logger.With(
		slog.String("event_id", event.EventID),
		slog.String("type", string(event.Type)),
		slog.String("project_id", event.ProjectID),
		slog.String("subject_id", event.SubjectID))
	ctx = middleware.WithLogger(ctx, logger)

	if err := h.sink.HandlePaymentEvent(ctx, h.actor, event); err != nil {
		if isPermanent(err) {
			logger.Error("Payment event rejected", slog.String("error", err.Error()))
			return true
		}
		logger.Warn("Payment event failed; requeueing", slog.String("error", err.Error()))
		return false
	}
	return true
}

func isPermanent(err error) bool {
	for _, target := range []error{
		apperrors.ErrNotFound,
		apperrors.ErrValidation,
		apperrors.ErrInvalidState,
		apperrors.ErrUnauthorized,
		apperrors.ErrInvariantViolation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Consumer reads deliveries from a durable queue bound to a topic exchange.
type Consumer struct {
	ch *amqp.Channel
}

// NewConsumer opens a consuming channel on conn.
func NewConsumer(conn *amqp.Connection) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	return &Consumer{ch: ch}, nil
}

// Run declares exchange and queue, binds bindingKey and dispatches deliveries
// to handle until ctx is done. It returns an error if the broker closes the
// delivery channel.
func (c *Consumer) Run(ctx context.Context, exchange, queue, bindingKey string, handle func(context.Context, []byte) bool) error {
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := c.ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}

	msgs, err := c.ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	logger := middleware.GetLoggerFromCtx(ctx)
	logger.Info("Consuming", slog.String("queue", q.Name), slog.String("binding", bindingKey))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel for %s closed", q.Name)
			}
			dctx := middleware.WithOperationLogger(ctx, "consume_payment_event",
				slog.String("message_id", d.MessageId),
				slog.String("routing_key", d.RoutingKey))
			if handle(dctx, d.Body) {
				_ = d.Ack(false)
			} else {
				_ = d.Nack(false, true)
			}
		}
	}
}

// Close releases the consuming channel.
func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
}
