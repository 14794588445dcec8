package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Notification is a push request for one customer.
type Notification struct {
	ID         string         `json:"id"`
	CustomerID int64          `json:"customerId"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Notifier is the notification gateway. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// LogNotifier only logs; used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	logrus.WithFields(logrus.Fields{
		"type":        n.Type,
		"customer_id": n.CustomerID,
	}).Info("notification (no broker configured)")
	return nil
}

func (LogNotifier) Close() error { return nil }

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConn interface {
	Close() error
}

// RabbitNotifier publishes notifications as persistent JSON messages on a durable queue.
// The connection is opened lazily and reopened after any publish error.
type RabbitNotifier struct {
	url   string
	queue string
	dial  func(url string) (amqpConn, amqpChannel, error)

	mu   sync.Mutex
	conn amqpConn
	ch   amqpChannel
}

func NewRabbitNotifier(url, queue string) *RabbitNotifier {
	return &RabbitNotifier{url: url, queue: queue, dial: dialAMQP}
}

func dialAMQP(url string) (amqpConn, amqpChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	return conn, ch, nil
}

func (r *RabbitNotifier) channel() (amqpChannel, error) {
	if r.ch != nil {
		return r.ch, nil
	}
	conn, ch, err := r.dial(r.url)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(r.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	r.conn, r.ch = conn, ch
	return ch, nil
}

func (r *RabbitNotifier) reset() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.ch, r.conn = nil, nil
}

func (r *RabbitNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Type:         n.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		r.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (r *RabbitNotifier) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	return nil
}
