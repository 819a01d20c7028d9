package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys.
const (
	KeyPaymentRecorded = "payment.recorded"
	KeyStatusChanged   = "order.status_changed"
)

type PaymentRecorded struct {
	PaymentID     string    `json:"payment_id"`
	Email         string    `json:"email"`
	ProductID     string    `json:"product_id"`
	Paid          float64   `json:"paid"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type StatusChanged struct {
	PaymentID  string    `json:"payment_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

// Rabbit publishes JSON events to a durable topic exchange.
type Rabbit struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewRabbit(url, exchange string) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Rabbit) Publish(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *Rabbit) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Key   string
	Value any
}

func (r *Recorder) Publish(_ context.Context, key string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Key: key, Value: v})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}
