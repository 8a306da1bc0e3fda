package updates

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/SevereCloud/vksdk/v2/events"
)

// FromVK приводит callback-событие VK message_new к Update.
// В беседах VK перед командой стоит упоминание бота, поэтому берётся
// последнее слово текста. Имени в событии нет, вместо него id отправителя.
func FromVK(raw json.RawMessage) (Update, error) {
	var ev events.GroupEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Update{}, fmt.Errorf("decode vk event: %w", err)
	}
	if ev.Type != events.EventMessageNew {
		return Update{}, ErrUnsupported
	}

	var obj events.MessageNewObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return Update{}, fmt.Errorf("decode vk message_new: %w", err)
	}

	m := obj.Message
	fields := strings.Fields(m.Text)
	if len(fields) == 0 {
		return Update{}, ErrUnsupported
	}

	return Update{
		UpdateID: ev.EventID,
		Message: Message{
			ID:     m.ConversationMessageID,
			ChatID: int64(m.PeerID),
			User: User{
				ID:          int64(m.FromID),
				DisplayName: strconv.Itoa(m.FromID),
			},
			Text: fields[len(fields)-1],
		},
	}, nil
}
