package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiselevos/wordchain_game_bot/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Db struct {
	*gorm.DB
}

// NewDB - создание нового подключения к DB
func NewDB(conf config.DbConfig, log *slog.Logger) (*Db, error) {
	var lastErr error

	attempts := max(conf.MaxAttempts, 1)
	for i := 1; i <= attempts; i++ {
		db, err := open(conf)
		if err == nil {
			return db, nil
		}
		lastErr = err

		log.Warn("database connection failed, retrying...", "attempt", i, "err", err)
		if i < attempts {
			time.Sleep(conf.Delay)
		}
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", attempts, lastErr)
}

func open(conf config.DbConfig) (*Db, error) {
	gdb, err := gorm.Open(postgres.Open(conf.Dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if conf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if conf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
	}
	if conf.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(conf.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Db{gdb}, nil
}

func (d *Db) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
