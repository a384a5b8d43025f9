/*
Package events publishes ledger notifications to RabbitMQ.

PURPOSE:
  Lifecycle controllers announce state changes (order approved, order
  completed, income verified, drift detected) after their storage
  transaction commits. Downstream notification services consume them.

DELIVERY:
  Best effort. A publish failure is logged and never rolls back the ledger
  change that triggered it. When RabbitMQ is unreachable at startup the
  Fallback publisher is used and every publish is a logged no-op.

ROUTING KEYS:
  payment_order.created, payment_order.approved, payment_order.rejected,
  payment_order.cancelled, payment_order.completed, income.verified,
  income.rejected, debt.paid, check.operation, card.charged, card.paid,
  account.drift
*/
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Event is the envelope for every message.
type Event struct {
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// =============================================================================
// FALLBACK - no broker configured
// =============================================================================

// Fallback logs and drops every event.
type Fallback struct {
	Logger *slog.Logger
}

func (p *Fallback) Publish(ctx context.Context, e Event) error {
	if p.Logger != nil {
		p.Logger.Debug("publish skipped", "component", "events", "mode", "fallback", "type", e.Type, "entity_id", e.EntityID)
	}
	return nil
}

func (p *Fallback) Close() {}

// =============================================================================
// AMQP PRODUCER
// =============================================================================

// Producer holds the RabbitMQ connection and channel for publishing messages.
type Producer struct {
	exchange string
	logger   *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewProducer dials RabbitMQ and declares the topic exchange.
func NewProducer(amqpURL, exchange string, logger *slog.Logger) (*Producer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{exchange: exchange, logger: logger, conn: conn, channel: ch}, nil
}

// Publish sends the event with its Type as routing key. On a channel error
// the channel is reopened once and the publish retried.
func (p *Producer) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    e.Timestamp,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed; reopening channel", "component", "events", "type", e.Type, "error", err)
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return chErr
	}
	p.channel = ch
	return p.channel.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg)
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Connect returns a Producer, or a Fallback when the URL is empty or the
// broker cannot be reached.
func Connect(amqpURL, exchange string, logger *slog.Logger) Publisher {
	if amqpURL == "" {
		return &Fallback{Logger: logger}
	}
	p, err := NewProducer(amqpURL, exchange, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events disabled", "component", "events", "error", err)
		return &Fallback{Logger: logger}
	}
	return p
}

// Recorder keeps published events in memory. Tests use it to assert on
// what a controller announced.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() {}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
