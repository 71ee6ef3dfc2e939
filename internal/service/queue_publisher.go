package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/logger"
	"github.com/iliyamo/cityinfo-api/internal/mail"
	"github.com/iliyamo/cityinfo-api/internal/queue"
)

// MailPublisher implements mail.Sender by publishing a MailRequestedEvent
// to RabbitMQ; the queue consumer does the actual delivery. When the
// broker cannot be reached the mail goes through Fallback directly so a
// notification is never dropped silently.
type MailPublisher struct {
	URL      string
	Queue    string
	Fallback mail.Sender
}

var _ mail.Sender = (*MailPublisher)(nil)

func NewMailPublisher(url, queueName string, fallback mail.Sender) *MailPublisher {
	return &MailPublisher{URL: url, Queue: queueName, Fallback: fallback}
}

func (p *MailPublisher) Send(ctx context.Context, subject, message string) error {
	ev := queue.MailRequestedEvent{
		Subject:     subject,
		Message:     message,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
		RequestID:   logger.RequestIDFrom(ctx),
	}
	if err := p.publish(ctx, ev); err != nil {
		logger.From(ctx).Warn("mail publish failed, sending inline", logger.Err(err), zap.String("queue", p.Queue))
		if p.Fallback == nil {
			return err
		}
		return p.Fallback.Send(ctx, subject, message)
	}
	return nil
}

// publish dials, declares the durable queue and publishes a persistent
// JSON message.
func (p *MailPublisher) publish(ctx context.Context, ev queue.MailRequestedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
