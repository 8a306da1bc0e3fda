package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kiselevos/wordchain_game_bot/internal/config"
	"github.com/kiselevos/wordchain_game_bot/internal/db"
	"github.com/kiselevos/wordchain_game_bot/internal/logging"
	"github.com/kiselevos/wordchain_game_bot/migrations"
)

// usage: migrate [up|down|status]
func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	if err := run(cmd); err != nil {
		slog.Error("migrate failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
}

func run(cmd string) error {
	dbConf, logConf, err := config.LoadDbConfig()
	if err != nil {
		return err
	}
	log := logging.New(logConf)

	database, err := db.NewDB(dbConf, log)
	if err != nil {
		return err
	}
	defer database.Close()

	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		err = migrations.Up(sqlDB)
	case "down":
		err = migrations.Down(sqlDB)
	case "status":
		err = migrations.Status(sqlDB)
	default:
		return fmt.Errorf("unknown command %q, want up, down or status", cmd)
	}
	if err != nil {
		return err
	}

	log.Info("migrate done", "cmd", cmd)
	return nil
}
