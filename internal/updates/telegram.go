package updates

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tb "gopkg.in/telebot.v3"
)

// FromTelegram приводит сырой апдейт Bot API (как его отдаёт getUpdates) к Update.
func FromTelegram(raw json.RawMessage) (Update, error) {
	var tu tb.Update
	if err := json.Unmarshal(raw, &tu); err != nil {
		return Update{}, fmt.Errorf("decode telegram update: %w", err)
	}
	return TelegramUpdate(tu)
}

func TelegramUpdate(tu tb.Update) (Update, error) {
	m := tu.Message
	if m == nil || m.Chat == nil || m.Sender == nil || m.Text == "" {
		return Update{}, ErrUnsupported
	}

	return Update{
		UpdateID: strconv.Itoa(tu.ID),
		Message: Message{
			ID:     m.ID,
			ChatID: m.Chat.ID,
			User: User{
				ID:          m.Sender.ID,
				DisplayName: telegramName(m.Sender),
			},
			Text: m.Text,
		},
	}, nil
}

func telegramName(u *tb.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return ""
}
