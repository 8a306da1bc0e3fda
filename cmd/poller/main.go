package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tb "gopkg.in/telebot.v3"

	"github.com/kiselevos/wordchain_game_bot/internal/bot/middleware"
	"github.com/kiselevos/wordchain_game_bot/internal/config"
	"github.com/kiselevos/wordchain_game_bot/internal/logging"
	"github.com/kiselevos/wordchain_game_bot/internal/queue"
	"github.com/kiselevos/wordchain_game_bot/internal/updates"
)

// Поллер тянет апдейты из Telegram и складывает их в очередь, не разбирая игру.
func main() {
	if err := run(); err != nil {
		slog.Error("poller stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.LoadPollerConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logging.New(conf.Logger)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := queue.Dial(ctx, conf.Rabbit, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	pub, err := queue.NewPublisher(conn, conf.Rabbit.Queue)
	if err != nil {
		return err
	}
	defer pub.Close()

	b, err := tb.NewBot(tb.Settings{
		Token:  conf.TG.Token,
		Poller: middleware.DropOldMessages(conf.Bot.DropOldMessagesAfter),
		OnError: func(err error, c tb.Context) {
			log.Error("telegram handler", "err", err)
		},
	})
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}

	b.Handle(tb.OnText, func(c tb.Context) error {
		return forward(ctx, pub, c.Update())
	})

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	log.Info("poller started", "bot", b.Me.Username, "queue", conf.Rabbit.Queue)
	b.Start()
	return nil
}

func forward(ctx context.Context, pub *queue.Publisher, u tb.Update) error {
	if _, err := updates.TelegramUpdate(u); errors.Is(err, updates.ErrUnsupported) {
		return nil
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update %d: %w", u.ID, err)
	}
	return pub.PublishUpdates(ctx, updates.PlatformTelegram, raw)
}
