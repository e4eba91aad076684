package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher is the subset of *amqp.Channel used by the forwarder.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder republishes bus events to a RabbitMQ topic exchange, using the
// event type as routing key.
type AMQPForwarder struct {
	publisher Publisher
	exchange  string
	timeout   time.Duration
	logger    *zerolog.Logger
	closeFn   func() error
}

// DialAMQP connects to the broker, declares a durable topic exchange and
// returns a forwarder that owns the connection.
func DialAMQP(url, exchange string, logger *zerolog.Logger) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	f := NewAMQPForwarder(ch, exchange, logger)
	f.closeFn = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return f, nil
}

func NewAMQPForwarder(publisher Publisher, exchange string, logger *zerolog.Logger) *AMQPForwarder {
	return &AMQPForwarder{
		publisher: publisher,
		exchange:  exchange,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

// Handle publishes one event. Failures are logged and returned so callers can retry.
func (f *AMQPForwarder) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt.UTC(),
		Type:         event.Type,
		Body:         event.Payload,
	}
	if err := f.publisher.PublishWithContext(ctx, f.exchange, event.Type, false, false, msg); err != nil {
		f.logger.Error().Err(err).Str("event_type", event.Type).Msg("rabbitmq publish failed")
		return err
	}
	return nil
}

func (f *AMQPForwarder) Close() error {
	if f.closeFn == nil {
		return nil
	}
	return f.closeFn()
}
