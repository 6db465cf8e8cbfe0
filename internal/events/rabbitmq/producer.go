package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventProducer publishes JSON messages to topic exchanges and implements
// portssvc.EventPublisher for domain events.
type EventProducer struct {
	conn           *amqp.Connection
	eventsExchange string

	mu      sync.Mutex
	channel publishChannel
}

var _ portssvc.EventPublisher = (*EventProducer)(nil)

// NewEventProducer opens a publishing channel on conn. Domain events go to
// eventsExchange.
func NewEventProducer(conn *amqp.Connection, eventsExchange string) (*EventProducer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	return &EventProducer{conn: conn, channel: ch, eventsExchange: eventsExchange}, nil
}

// Publish sends a domain event with the event name as routing key.
func (p *EventProducer) Publish(ctx context.Context, event domain.DomainEvent) error {
	_, err := p.publish(ctx, p.eventsExchange, event.Name, event)
	return err
}

// publish declares exchange, sends body as JSON and returns the message id.
// A failed channel is reopened once before giving up.
func (p *EventProducer) publish(ctx context.Context, exchange, routingKey string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal message for %s: %w", routingKey, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.send(ctx, exchange, routingKey, msg)
	if err == nil {
		return msg.MessageId, nil
	}

	middleware.GetLoggerFromCtx(ctx).Warn("Publish failed; reopening channel",
		slog.String("exchange", exchange),
		slog.String("routing_key", routingKey),
		slog.String("error", err.Error()))
	if p.conn == nil {
		return "", err
	}
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return "", fmt.Errorf("reopen channel after %v: %w", err, chErr)
	}
	_ = p.channel.Close()
	p.channel = ch
	if err := p.send(ctx, exchange, routingKey, msg); err != nil {
		return "", err
	}
	return msg.MessageId, nil
}

func (p *EventProducer) send(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if err := declareTopic(p.channel, exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return p.channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
}

// Close releases the publishing channel. The connection is owned by the caller.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
}

// routingKeyFor turns an identifier such as COLLECT_PLEDGE into collect_pledge.
func routingKeyFor(prefix, name string) string {
	return prefix + "." + strings.ToLower(name)
}
