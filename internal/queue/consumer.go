package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/logger"
	"github.com/iliyamo/cityinfo-api/internal/mail"
)

// MailConsumer drains the mail queue and hands every event to a Sender.
type MailConsumer struct {
	URL    string
	Queue  string
	Sender mail.Sender
	log    *zap.Logger
}

func NewMailConsumer(url, queue string, sender mail.Sender) *MailConsumer {
	return &MailConsumer{URL: url, Queue: queue, Sender: sender, log: logger.Named("mail-consumer")}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// until ctx is cancelled. Lost connections are retried with exponential
// backoff capped at 30s.
func (mc *MailConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(mc.URL)
		if err != nil {
			mc.log.Warn("failed to dial broker", logger.Err(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = mc.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mc.log.Warn("consume loop ended, reconnecting", logger.Err(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (mc *MailConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		mc.log.Warn("set QoS failed", logger.Err(err))
	}
	if _, err := ch.QueueDeclare(mc.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(mc.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := mc.Handle(ctx, d.Body); err != nil {
				mc.log.Error("handle message failed", logger.Err(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and sends the mail.
func (mc *MailConsumer) Handle(ctx context.Context, body []byte) error {
	var ev MailRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Subject == "" {
		return errors.New("mail event without subject")
	}
	if ev.RequestID != "" {
		ctx = logger.ToContext(ctx, mc.log.With(logger.RequestID(ev.RequestID)))
	}
	return mc.Sender.Send(ctx, ev.Subject, ev.Message)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
