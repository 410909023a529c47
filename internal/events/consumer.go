package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// retryCountHeader carries the per-message retry counter across
	// republished copies so it survives broker redelivery.
	retryCountHeader = "x-retry-count"

	// maxRetries is how many republish cycles a failing message gets
	// before it is parked in the dead-letter queue.
	maxRetries = 3
)

// Handler processes the body of one queue message. A non-nil error triggers
// the retry/dead-letter cycle.
type Handler func(ctx context.Context, body []byte) error

// republisher is the subset of amqp.Channel used to re-enqueue a failed
// message with an incremented retry counter.
type republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Consumer connects to RabbitMQ, declares the exchange/queue/dead-letter
// topology, and dispatches deliveries to registered handlers by routing key.
type Consumer struct {
	url      string
	exchange string
	queue    string
	handlers map[string]Handler
	logger   *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer creates a consumer for the given broker URL and topology names.
func NewConsumer(url, exchange, queue string, logger *zap.Logger) *Consumer {
	return &Consumer{
		url:      url,
		exchange: exchange,
		queue:    queue,
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to a routing key. Must be called before Start.
func (c *Consumer) Register(routingKey string, h Handler) {
	c.handlers[routingKey] = h
}

// Start declares the topology and consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	c.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	c.ch = ch

	if err := c.declareTopology(ch); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("consuming queue",
		zap.String("queue", c.queue),
		zap.String("exchange", c.exchange),
	)

	for d := range deliveries {
		c.handleDelivery(ctx, ch, d)
	}
	return nil
}

// declareTopology asserts the topic exchange, the dead-letter queue, and the
// main queue whose arguments route exhausted messages to the dead-letter key.
func (c *Consumer) declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}

	dlq := c.queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue %s: %w", dlq, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    c.exchange,
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	if err := ch.QueueBind(dlq, dlq, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}
	for key := range c.handlers {
		if err := ch.QueueBind(c.queue, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// handleDelivery dispatches one message and applies the ack/retry/dead-letter
// protocol: success acks, failure republishes with an incremented retry
// counter until maxRetries, then nacks without requeue into the DLQ.
func (c *Consumer) handleDelivery(ctx context.Context, pub republisher, d amqp.Delivery) {
	handler, ok := c.handlers[d.RoutingKey]
	if !ok {
		// Not actionable; retrying would never succeed.
		c.logger.Warn("unhandled routing key",
			zap.String("routing_key", d.RoutingKey),
		)
		if err := d.Ack(false); err != nil {
			c.logger.Error("failed to ack message", zap.Error(err))
		}
		return
	}

	if err := handler(ctx, d.Body); err != nil {
		c.logger.Error("failed to process message",
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
		c.retryOrDeadLetter(ctx, pub, d)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack message", zap.Error(err))
	}
}

// retryOrDeadLetter republishes a failed message under the same routing key
// with retryCount+1, or routes it to the DLQ once the budget is exhausted.
func (c *Consumer) retryOrDeadLetter(ctx context.Context, pub republisher, d amqp.Delivery) {
	retryCount := retryCountFrom(d.Headers)

	if retryCount < maxRetries {
		c.logger.Info("retrying message",
			zap.String("routing_key", d.RoutingKey),
			zap.Int("attempt", retryCount+1),
			zap.Int("max_retries", maxRetries),
		)
		err := pub.PublishWithContext(ctx, c.exchange, d.RoutingKey, false, false, amqp.Publishing{
			ContentType: d.ContentType,
			Headers:     amqp.Table{retryCountHeader: int32(retryCount + 1)},
			Body:        d.Body,
		})
		if err != nil {
			// Republish failed; leave the original unacked so the broker
			// redelivers it.
			c.logger.Error("failed to republish message", zap.Error(err))
			return
		}
		if err := d.Ack(false); err != nil {
			c.logger.Error("failed to ack original after republish", zap.Error(err))
		}
		return
	}

	c.logger.Warn("retry budget exhausted, dead-lettering message",
		zap.String("routing_key", d.RoutingKey),
		zap.Int("retry_count", retryCount),
	)
	if err := d.Nack(false, false); err != nil {
		c.logger.Error("failed to nack message", zap.Error(err))
	}
}

// retryCountFrom reads the retry counter header, tolerating the integer
// widths different AMQP clients write.
func retryCountFrom(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[retryCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Close shuts the channel and connection down cleanly.
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
