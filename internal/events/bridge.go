// Package events carries collection-change notifications between instances
// over RabbitMQ. One instance publishes the changed collection path after a
// local write; the others refresh that collection from the shared backend.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"costtracker/internal/docstore"
)

// Bridge is the AMQP change bridge. A nil *Bridge is valid and inert, so
// single-instance deployments skip the broker without branching at every
// call site.
type Bridge struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	instanceID   string
}

func NewBridge(url, exchangeName, queueName string) (*Bridge, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	bridge := &Bridge{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		instanceID:   uuid.NewString(),
	}

	if err := bridge.setup(); err != nil {
		bridge.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return bridge, nil
}

func (b *Bridge) setup() error {
	// Fanout, because every instance needs every change.
	err := b.channel.ExchangeDeclare(
		b.exchangeName,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Per-instance queue, dropped when the instance disconnects.
	_, err = b.channel.QueueDeclare(
		b.queueName,
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = b.channel.QueueBind(
		b.queueName,
		"", // fanout ignores the routing key
		b.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishChange announces that the collection at path changed locally.
func (b *Bridge) PublishChange(ctx context.Context, path string) error {
	if b == nil {
		return nil
	}

	msg := NewChangeMessage(path, b.instanceID)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = b.channel.PublishWithContext(
		ctx,
		b.exchangeName,
		"",    // routing key
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.DebugContext(ctx, "Published collection change",
		"path", path,
		"exchange", b.exchangeName)

	return nil
}

// ConsumeChanges refreshes collections announced by other instances. Blocks
// until ctx is done or the broker connection drops.
func (b *Bridge) ConsumeChanges(ctx context.Context, refresher docstore.Refresher) error {
	if b == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	msgs, err := b.channel.Consume(
		b.queueName,
		"",    // consumer
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming collection changes", "queue", b.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping change consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal change message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			// Local writes already refreshed through the store.
			if msg.Origin == b.instanceID {
				delivery.Ack(false)
				continue
			}

			slog.DebugContext(ctx, "Refreshing collection from remote change", "path", msg.Path)
			refresher.Refresh(msg.Path)
			delivery.Ack(false)
		}
	}
}

func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
