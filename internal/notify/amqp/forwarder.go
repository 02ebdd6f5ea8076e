package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Message is the JSON body published for every invoice event. The routing
// key is the event type.
type Message struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func NewMessage(e events.Event) Message {
	data, _ := e.Payload().(map[string]interface{})
	return Message{
		ID:         e.EventID(),
		Type:       e.EventType(),
		OccurredAt: e.OccurredAt(),
		Data:       data,
	}
}

func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Channel is the subset of *amqp091.Channel the forwarder uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Forwarder publishes bus events to a direct exchange.
type Forwarder struct {
	conn     *amqp091.Connection
	mu       sync.Mutex
	channel  Channel
	exchange string
	logger   *slog.Logger
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Forwarder, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	f := NewForwarder(channel, exchange, logger)
	f.conn = conn
	return f, nil
}

func NewForwarder(channel Channel, exchange string, logger *slog.Logger) *Forwarder {
	return &Forwarder{channel: channel, exchange: exchange, logger: logger}
}

// Attach subscribes the forwarder to every invoice event on the bus.
func (f *Forwarder) Attach(bus *events.EventBus) {
	bus.Subscribe(events.AllEvents, f.Handle)
}

// Handle is an events.Handler publishing one event.
func (f *Forwarder) Handle(ctx context.Context, e events.Event) error {
	body, err := NewMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	f.mu.Lock()
	err = f.channel.PublishWithContext(
		ctx,
		f.exchange,    // exchange
		e.EventType(), // routing key
		false,         // mandatory
		false,         // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.EventID(),
			Timestamp:    e.OccurredAt(),
			Type:         e.EventType(),
			Body:         body,
		},
	)
	f.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	f.logger.DebugContext(ctx, "forwarded invoice event",
		"event_type", e.EventType(),
		"event_id", e.EventID(),
		"exchange", f.exchange)
	return nil
}

func (f *Forwarder) Close() error {
	var firstErr error
	if f.channel != nil {
		if err := f.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if f.conn != nil {
		if err := f.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
