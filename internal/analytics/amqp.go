package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events to a topic exchange, routed by event name.
type AMQPSink struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch channelPublisher
}

// DialAMQPSink connects to url and declares exchange as a durable topic.
func DialAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPSink{conn: conn, exchange: exchange, ch: ch}, nil
}

func newAMQPSinkWithChannel(ch channelPublisher, exchange string) *AMQPSink {
	return &AMQPSink{exchange: exchange, ch: ch}
}

// Capture implements Sink.
func (s *AMQPSink) Capture(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.PublishWithContext(ctx, s.exchange, "analytics."+event.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *AMQPSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
