// Package feed is the realtime change feed: table-change messages over
// AMQP, consumed into debounced resync requests.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"goighem/internal/log"
)

// Client publishes and consumes table-change messages on a fanout
// exchange. Every connected client gets every change; nothing is routed.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger
}

// NewClient connects and declares the exchange. queueName may be empty, in
// which case the broker assigns an exclusive queue that dies with the
// connection (the usual setup for a client-side feed).
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(nil, log.ComponentFeed)
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	exclusive := c.queueName == ""
	q, err := c.channel.QueueDeclare(
		c.queueName, // name, empty means broker-assigned
		!exclusive,  // durable
		exclusive,   // delete when unused
		exclusive,   // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	c.queueName = q.Name

	// Fanout ignores the routing key.
	if err := c.channel.QueueBind(c.queueName, "", c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishChange announces a table change to every listener.
func (c *Client) PublishChange(ctx context.Context, msg *ChangeMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key, unused on fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "published change",
		log.FieldTable, msg.Table,
		log.FieldRecordID, msg.RecordID,
		"action", msg.Action)
	return nil
}

// ConsumeChanges delivers every change message to handler until ctx is
// cancelled. Malformed messages are dropped; handler errors requeue.
func (c *Client) ConsumeChanges(ctx context.Context, handler func(*ChangeMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "consuming change feed", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping change feed", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "dropping malformed change message", log.FieldError, err.Error())
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				c.logger.ErrorContext(ctx, "change handler failed",
					log.FieldError, err.Error(),
					log.FieldTable, msg.Table,
					log.FieldRecordID, msg.RecordID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
