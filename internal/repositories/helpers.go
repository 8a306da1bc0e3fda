package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/kiselevos/wordchain_game_bot/internal/game"
)

const pgUniqueViolation = "23505"

// ensureRowsAffected возвращает ошибку, если UPDATE не затронул ни одной строки.
func ensureRowsAffected(res *gorm.DB, notFoundMsg string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", game.ErrNotFound, notFoundMsg)
	}
	return nil
}

// swapped - для compare-and-set апдейтов: false значит условие уже не выполнено.
func swapped(res *gorm.DB) (bool, error) {
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// sameHumans - в кольце ровно те люди, что сейчас в сессии.
func sameHumans(ring []game.Link, joined []int64) bool {
	want := make(map[int64]bool, len(joined))
	for _, id := range joined {
		want[id] = true
	}

	n := 0
	for _, l := range ring {
		if l.PlayerID == game.BotPlayerID {
			continue
		}
		if !want[l.PlayerID] {
			return false
		}
		n++
	}
	return n == len(joined)
}
