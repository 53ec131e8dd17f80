package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Handler processes one delivery. Returning false re-queues the message.
type Handler func(routingKey string, body []byte) bool

type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

func NewConsumer(amqpURL string, logger zerolog.Logger) (*Consumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, logger: logger.With().Str("component", "rabbitmq_consumer").Logger()}, nil
}

// validateBindingKey rejects empty keys and empty words in a topic pattern.
func validateBindingKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty binding key")
	}
	for _, word := range strings.Split(key, ".") {
		if word == "" {
			return fmt.Errorf("invalid binding key %q", key)
		}
	}
	return nil
}

// Consume binds queueName to exchange for every binding key and dispatches
// deliveries to handler until ctx is cancelled or the channel closes. An
// empty queueName declares a private, auto-deleted queue.
func (c *Consumer) Consume(ctx context.Context, exchange, queueName string, bindingKeys []string, handler Handler) error {
	if len(bindingKeys) == 0 {
		return fmt.Errorf("no bindings provided")
	}
	for _, key := range bindingKeys {
		if err := validateBindingKey(key); err != nil {
			return err
		}
	}

	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	durable, exclusive := true, false
	if queueName == "" {
		durable, exclusive = false, true
	}
	q, err := c.ch.QueueDeclare(queueName, durable, !durable, exclusive, false, nil)
	if err != nil {
		return err
	}

	for _, key := range bindingKeys {
		if err := c.ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return err
		}
	}

	msgs, err := c.ch.Consume(q.Name, "", false, exclusive, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return amqp.ErrClosed
			}
			if handler(d.RoutingKey, d.Body) {
				d.Ack(false)
				continue
			}
			c.logger.Warn().Str("routing_key", d.RoutingKey).Msg("handler failed; re-queuing")
			d.Nack(false, true)
		}
	}
}

func (c *Consumer) Close() error {
	var err error
	if c.ch != nil {
		err = multierr.Append(err, c.ch.Close())
	}
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}

// RedactURL hides the password of an AMQP URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
