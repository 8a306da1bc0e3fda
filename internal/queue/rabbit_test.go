package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/kiselevos/wordchain_game_bot/internal/config"
	"github.com/kiselevos/wordchain_game_bot/internal/updates"
	"github.com/kiselevos/wordchain_game_bot/internal/worker"
)

func tgUpdate(id int, text string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"update_id": id,
		"message": map[string]any{
			"message_id": id,
			"from":       map[string]any{"id": 42, "first_name": "Вася"},
			"chat":       map[string]any{"id": -100500, "type": "group"},
			"date":       1700000000,
			"text":       text,
		},
	})
	return raw
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked++; return nil }

func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *fakeAck) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

type sink struct {
	mu   sync.Mutex
	got  []updates.Update
	fail error
}

func (s *sink) Submit(u updates.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.got = append(s.got, u)
	return nil
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func newTestConsumer(s Submitter) *Consumer {
	return NewConsumer(nil, config.RabbitConfig{Queue: "updates"}, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConsumer_AcksAfterHandoff(t *testing.T) {
	body, err := updates.Encode(updates.PlatformTelegram, tgUpdate(1, "/start"), tgUpdate(2, "кот"))
	require.NoError(t, err)

	s := &sink{}
	ack := &fakeAck{}
	err = newTestConsumer(s).handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body})
	require.NoError(t, err)

	assert.Equal(t, 2, s.len())
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestConsumer_DropsGarbage(t *testing.T) {
	s := &sink{}
	ack := &fakeAck{}
	err := newTestConsumer(s).handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("not json")})
	require.NoError(t, err)

	assert.Zero(t, s.len())
	assert.Equal(t, 1, ack.nacked)
	assert.Zero(t, ack.requeued)
}

func TestConsumer_RequeuesWhenPoolClosed(t *testing.T) {
	body, err := updates.Encode(updates.PlatformTelegram, tgUpdate(1, "/start"))
	require.NoError(t, err)

	s := &sink{fail: worker.ErrPoolClosed}
	ack := &fakeAck{}
	err = newTestConsumer(s).handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body})

	assert.ErrorIs(t, err, worker.ErrPoolClosed)
	assert.Equal(t, 1, ack.requeued)
	assert.Zero(t, ack.acked)
}

func TestRabbit_PublishConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	rc, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(ctx) })

	url, err := rc.AmqpURL(ctx)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.RabbitConfig{URL: url, Queue: "updates", Prefetch: 10, MaxAttempts: 5, RetryDelay: time.Second}

	conn, err := Dial(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	pub, err := NewPublisher(conn, cfg.Queue)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.PublishUpdates(ctx, updates.PlatformTelegram, tgUpdate(1, "/start"), tgUpdate(2, "/participate")))

	s := &sink{}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- NewConsumer(conn, cfg, s, log).Run(runCtx) }()

	require.Eventually(t, func() bool { return s.len() == 2 }, 10*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "/start", s.got[0].Message.Text)
	assert.Equal(t, "/participate", s.got[1].Message.Text)
}
