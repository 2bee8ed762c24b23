package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Exchange is the topic exchange push messages are published to, routed by role.
const Exchange = "menuya.push"

type AMQPTransport struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPTransport(url string, log *zap.Logger) *AMQPTransport {
	return &AMQPTransport{url: url, log: log}
}

func (t *AMQPTransport) Name() string { return "amqp" }

func (t *AMQPTransport) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.connectLocked(); err != nil {
		return err
	}

	err = t.ch.PublishWithContext(ctx, Exchange, msg.Role, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.SentAt,
		Body:         body,
	})
	if err != nil {
		// drop the channel so the next delivery reconnects
		t.closeLocked()
		return fmt.Errorf("publish to %s: %w", Exchange, err)
	}
	return nil
}

func (t *AMQPTransport) connectLocked() error {
	if t.conn != nil && !t.conn.IsClosed() && t.ch != nil && !t.ch.IsClosed() {
		return nil
	}
	t.closeLocked()

	if t.url == "" {
		return errors.New("amqp url not configured")
	}
	conn, err := amqp.Dial(t.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}

	t.conn = conn
	t.ch = ch
	if t.log != nil {
		t.log.Info("amqp push transport connected", zap.String("exchange", Exchange))
	}
	return nil
}

func (t *AMQPTransport) closeLocked() {
	if t.ch != nil && !t.ch.IsClosed() {
		_ = t.ch.Close()
	}
	if t.conn != nil && !t.conn.IsClosed() {
		_ = t.conn.Close()
	}
	t.ch = nil
	t.conn = nil
}

func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}
