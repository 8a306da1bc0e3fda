package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tb "gopkg.in/telebot.v3"

	"github.com/kiselevos/wordchain_game_bot/internal/bot"
	"github.com/kiselevos/wordchain_game_bot/internal/config"
	"github.com/kiselevos/wordchain_game_bot/internal/db"
	"github.com/kiselevos/wordchain_game_bot/internal/game"
	"github.com/kiselevos/wordchain_game_bot/internal/httpapi"
	"github.com/kiselevos/wordchain_game_bot/internal/logging"
	"github.com/kiselevos/wordchain_game_bot/internal/queue"
	"github.com/kiselevos/wordchain_game_bot/internal/repositories"
	"github.com/kiselevos/wordchain_game_bot/internal/vk"
	"github.com/kiselevos/wordchain_game_bot/internal/worker"
	"github.com/kiselevos/wordchain_game_bot/migrations"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logging.New(conf.Logger)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDB(conf.Db, log)
	if err != nil {
		return err
	}
	defer database.Close()

	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	if err := migrations.Up(sqlDB); err != nil {
		return err
	}

	store := repositories.NewStore(database)
	if err := store.EnsurePlayer(ctx, game.Player{ID: game.BotPlayerID, Name: game.BotPlayerName}); err != nil {
		return fmt.Errorf("ensure bot player: %w", err)
	}

	notifier, err := newNotifier(conf, log)
	if err != nil {
		return err
	}
	alerter := logging.NewNotifier(notifier, conf.Admin.AdminsID, log)

	gameConf := game.Config{
		WordWait:    conf.Game.WordWait,
		VoteWait:    conf.Game.VoteWait,
		RandomStart: conf.Game.RandomStart,
	}
	if conf.Game.StartWordsFile != "" {
		if gameConf.StartWords, err = game.LoadStartWords(conf.Game.StartWordsFile); err != nil {
			return fmt.Errorf("start words: %w", err)
		}
	}

	manager := game.NewManager(store, notifier, alerter, gameConf, log)
	defer manager.Stop()

	// упавшая партия не должна мешать остальным подняться
	if err := manager.Resume(ctx); err != nil {
		log.Error("resume sessions", "err", err)
	}

	conn, err := queue.Dial(ctx, conf.Rabbit, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	pool := worker.NewPool(manager, conf.Bot.Workers, conf.Bot.HandleTimeout, log)
	consumer := queue.NewConsumer(conn, conf.Rabbit, pool, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		router := httpapi.NewRouter(httpapi.Deps{
			Standings:      manager,
			Queue:          pool,
			Timers:         manager.Timers(),
			AllowedOrigins: conf.HTTP.CORSOrigins,
		})
		if err := httpapi.Serve(runCtx, conf.HTTP.Addr, router, log); err != nil {
			log.Error("http server", "err", err)
		}
	}()

	log.Info("bot started", "platform", conf.Platform, "workers", conf.Bot.Workers)
	err = consumer.Run(runCtx)

	cancel()
	wg.Wait()
	log.Info("bot stopped")
	return err
}

func newNotifier(conf *config.Config, log *slog.Logger) (game.Notifier, error) {
	if conf.Platform == config.PlatformVK {
		return vk.NewNotifier(conf.VK.Token, log), nil
	}

	// апдейты читает поллер, здесь бот только отправляет
	b, err := tb.NewBot(tb.Settings{Token: conf.TG.Token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot.NewNotifier(b, log), nil
}
