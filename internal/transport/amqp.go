package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/HannahMarsh/simple-onion-routing/internal/metrics"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the queue a node listening on address consumes from.
func QueueName(address int) string {
	if s, err := onion.FormatAddress(address); err == nil {
		return "onion." + s
	}
	return "onion.invalid"
}

// AMQPTransport publishes raw blobs to one RabbitMQ queue per address. Unlike the HTTP
// transport, Deliver returns once the broker has the message, not after the receiver
// processed it.
type AMQPTransport struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}
	return &AMQPTransport{conn: conn, ch: ch}, nil
}

func declare(ch *amqp.Channel, address int) (amqp.Queue, error) {
	return ch.QueueDeclare(QueueName(address), true, false, false, false, nil)
}

func (t *AMQPTransport) Deliver(ctx context.Context, address int, blob []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, err := declare(t.ch, address)
	if err != nil {
		return &DeliveryError{Address: address, Err: errors.Wrap(err, "failed to declare queue")}
	}
	metrics.Observe(metrics.ONION_SIZE, float64(len(blob)))
	err = t.ch.PublishWithContext(ctx, "", q.Name, false, false, amqp.Publishing{
		ContentType:  "application/octet-stream",
		DeliveryMode: amqp.Persistent,
		Body:         blob,
	})
	if err != nil {
		return &DeliveryError{Address: address, Err: errors.Wrap(err, "failed to publish")}
	}
	return nil
}

// Consume feeds every blob queued for address to h until ctx is done. Blobs h rejects
// are dropped, not requeued.
func (t *AMQPTransport) Consume(ctx context.Context, address int, h Handler) error {
	ch, err := t.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open channel")
	}
	defer ch.Close()

	q, err := declare(ch, address)
	if err != nil {
		return errors.Wrap(err, "failed to declare queue")
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to consume %s", q.Name)
	}
	slog.Info("Consuming onions", "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.Errorf("delivery channel for %s closed", q.Name)
			}
			if err := h(ctx, d.Body); err != nil {
				slog.Error("Failed to handle onion", "queue", q.Name, "error", err)
				if err := d.Nack(false, false); err != nil {
					slog.Error("Failed to nack", "error", err)
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				slog.Error("Failed to ack", "error", err)
			}
		}
	}
}

func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ch.Close(); err != nil {
		slog.Error("Failed to close channel", "error", err)
	}
	return t.conn.Close()
}
