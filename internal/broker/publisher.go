package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cityq/eticket-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "eticket.topic"

// Publisher hands stored notifications to the external dispatcher over
// AMQP with publisher confirms. The engine treats delivery as best
// effort; a NACK or timeout surfaces as an error and is only logged.
type Publisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	logger     *slog.Logger
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	closeOnce  sync.Once
	healthy    atomic.Bool
	done       chan struct{}
}

func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp connect: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	p := &Publisher{
		conn:       conn,
		channel:    channel,
		logger:     logger,
		connClosed: make(chan *amqp.Error, 1),
		chanClosed: make(chan *amqp.Error, 1),
		done:       make(chan struct{}),
	}
	p.healthy.Store(true)
	p.conn.NotifyClose(p.connClosed)
	p.channel.NotifyClose(p.chanClosed)

	go func() {
		select {
		case err := <-p.connClosed:
			p.healthy.Store(false)
			logger.Warn("amqp connection closed", "error", err)
		case err := <-p.chanClosed:
			p.healthy.Store(false)
			logger.Warn("amqp channel closed", "error", err)
		case <-p.done:
		}
	}()

	logger.Info("connected to notification broker", "exchange", exchange)
	return p, nil
}

// PublishNotification ships one notification and waits for the broker
// confirm.
func (p *Publisher) PublishNotification(ctx context.Context, notification models.Notification) error {
	if !p.healthy.Load() {
		return fmt.Errorf("broker connection is closed")
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	routingKey := "notifications." + string(notification.SubjectKind)
	deferred, err := p.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			Headers: amqp.Table{
				"notification_id": notification.NotificationID,
			},
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deferred.Done():
		if !deferred.Acked() {
			return fmt.Errorf("broker rejected notification %s", notification.NotificationID)
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("publisher confirm timeout")
	}
}

func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		if p.channel != nil {
			p.channel.Close()
		}
		if p.conn != nil {
			p.conn.Close()
		}
	})
	return nil
}
