package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// amqpChannel is the subset of *amqp.Channel the broker uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Broker owns the RabbitMQ connection and the topology: one durable fanout
// exchange with one durable queue bound to it.
type Broker struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	queue    string
}

func DialBroker(url, exchange, queue string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if err = ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("Connected to RabbitMQ")
	return &Broker{conn: conn, channel: ch, exchange: exchange, queue: queue}, nil
}

func (b *Broker) Close() error {
	var errs []error
	if b.channel != nil {
		errs = append(errs, b.channel.Close())
	}
	if b.conn != nil {
		errs = append(errs, b.conn.Close())
	}
	return errors.Join(errs...)
}

// AMQPPublisher publishes events to the fanout exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	channel  amqpChannel
	exchange string
}

func NewAMQPPublisher(b *Broker) *AMQPPublisher {
	return &AMQPPublisher{channel: b.channel, exchange: b.exchange}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if err := event.validate(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

// Consumer drains the notification queue into a sink, normally the
// database-backed Service.
type Consumer struct {
	channel amqpChannel
	queue   string
	sink    Publisher
}

func NewConsumer(b *Broker, sink Publisher) *Consumer {
	return &Consumer{channel: b.channel, queue: b.queue, sink: sink}
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, "cafe-service", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %s: %w", c.queue, err)
	}

	log.Info().Str("queue", c.queue).Msg("Notification consumer started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Notification consumer stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("notification delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Warn().Err(err).Msg("consumer: dropping malformed notification event")
		_ = d.Nack(false, false)
		return
	}

	err := c.sink.Publish(ctx, event)
	switch {
	case errors.Is(err, ErrInvalidEvent):
		log.Warn().Stringer("user_id", event.UserID).Msg("consumer: dropping invalid notification event")
		_ = d.Nack(false, false)
	case err != nil:
		log.Error().Err(err).Stringer("user_id", event.UserID).Msg("consumer: failed to store notification, requeueing")
		_ = d.Nack(false, true)
	default:
		_ = d.Ack(false)
	}
}
