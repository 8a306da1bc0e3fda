package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kiselevos/wordchain_game_bot/internal/config"
	"github.com/kiselevos/wordchain_game_bot/internal/updates"
	"github.com/kiselevos/wordchain_game_bot/internal/worker"
)

var ErrDeliveriesClosed = errors.New("rabbit deliveries channel closed")

// Dial - подключение к RabbitMQ с повторами, как у базы.
func Dial(ctx context.Context, cfg config.RabbitConfig, log *slog.Logger) (*amqp.Connection, error) {
	var lastErr error

	attempts := max(cfg.MaxAttempts, 1)
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		log.Warn("rabbit connection failed, retrying...", "attempt", i, "err", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}

	return nil, fmt.Errorf("could not connect to rabbit after %d attempts: %w", attempts, lastErr)
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return nil
}

// Submitter - куда консьюмер отдаёт разобранные апдейты.
type Submitter interface {
	Submit(u updates.Update) error
}

type Consumer struct {
	conn *amqp.Connection
	cfg  config.RabbitConfig
	sink Submitter
	log  *slog.Logger
}

func NewConsumer(conn *amqp.Connection, cfg config.RabbitConfig, sink Submitter, log *slog.Logger) *Consumer {
	return &Consumer{conn: conn, cfg: cfg, sink: sink, log: log}
}

// Run читает очередь до отмены ctx. Сообщение подтверждается только после того,
// как все его апдейты переданы в пул.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, c.cfg.Queue); err != nil {
		return err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", c.cfg.Queue, err)
	}
	c.log.Info("consuming updates", "queue", c.cfg.Queue, "prefetch", c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			if err := c.handle(d); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) handle(d amqp.Delivery) error {
	batch, err := updates.Decode(d.Body)
	if err != nil {
		// битое сообщение повторять бессмысленно
		c.log.Error("drop undecodable message", "err", err, "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return nil
	}

	for i, u := range batch {
		if err := c.sink.Submit(u); err != nil {
			if i == 0 {
				_ = d.Nack(false, true)
			} else {
				// часть уже в работе, повтор продублирует её
				_ = d.Ack(false)
			}
			return fmt.Errorf("submit update %s: %w", u.UpdateID, err)
		}
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// Publisher пишет конверты апдейтов в очередь. Используется поллером.
type Publisher struct {
	ch    *amqp.Channel
	queue string
}

func NewPublisher(conn *amqp.Connection, queue string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch, queue: queue}, nil
}

func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", p.queue, err)
	}
	return nil
}

// PublishUpdates кодирует пачку сырых апдейтов платформы в конверт.
func (p *Publisher) PublishUpdates(ctx context.Context, platform updates.Platform, raw ...json.RawMessage) error {
	body, err := updates.Encode(platform, raw...)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.Publish(ctx, body)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

var _ Submitter = (*worker.Pool)(nil)
