package vk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SevereCloud/vksdk/v2/api"

	"github.com/kiselevos/wordchain_game_bot/internal/game"
)

var _ game.Notifier = (*Notifier)(nil)

// MessagesAPI - часть *api.VK, которая нужна нотификатору.
type MessagesAPI interface {
	MessagesSend(params api.Params) (int, error)
}

// Notifier пишет в беседы VK. Лимиты запросов соблюдает сам vksdk.
type Notifier struct {
	api MessagesAPI
	log *slog.Logger
}

func NewNotifier(token string, log *slog.Logger) *Notifier {
	return &Notifier{api: api.NewVK(token), log: log}
}

func NewNotifierWithAPI(a MessagesAPI, log *slog.Logger) *Notifier {
	return &Notifier{api: a, log: log}
}

func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := n.api.MessagesSend(api.Params{
		"peer_id":   chatID,
		"message":   text,
		"random_id": 0,
	})
	if err != nil {
		return fmt.Errorf("vk send to %d: %w", chatID, err)
	}
	return nil
}

// Delete в VK не поддерживается: боту нельзя удалять чужие сообщения в беседе.
func (n *Notifier) Delete(_ context.Context, chatID int64, messageID int) error {
	n.log.Debug("vk delete skipped", "chat_id", chatID, "message_id", messageID)
	return nil
}
