package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	tb "gopkg.in/telebot.v3"

	"github.com/kiselevos/wordchain_game_bot/internal/game"
)

const (
	sendAttempts = 3
	// Bot API: около 30 сообщений в секунду на бота
	defaultRate  = 25
	defaultBurst = 5
)

var _ game.Notifier = (*Notifier)(nil)

// Notifier отправляет сообщения игры в Telegram.
type Notifier struct {
	bot     BotInterface
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewNotifier(b BotInterface, log *slog.Logger) *Notifier {
	return &Notifier{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
		log:     log,
	}
}

func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	var lastErr error

	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}

		_, err := n.bot.Send(&tb.Chat{ID: chatID}, text)
		if err == nil {
			return nil
		}
		lastErr = err

		var flood tb.FloodError
		if !errors.As(err, &flood) {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}

		wait := time.Duration(flood.RetryAfter) * time.Second
		n.log.Warn("telegram flood wait", "chat_id", chatID, "retry_after", wait, "attempt", attempt)
		if attempt == sendAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("telegram send to %d: %w", chatID, ctx.Err())
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("telegram send to %d: flood wait after %d attempts: %w", chatID, sendAttempts, lastErr)
}

// Delete удаляет сообщение игрока. Без прав админа в группе не сработает,
// поэтому ошибку только отдаём наверх, игра от неё не зависит.
func (n *Notifier) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := &tb.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	if err := n.bot.Delete(msg); err != nil {
		return fmt.Errorf("telegram delete %d in %d: %w", messageID, chatID, err)
	}
	return nil
}
