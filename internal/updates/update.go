package updates

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformTelegram Platform = "tg"
	PlatformVK       Platform = "vk"
)

var ErrUnsupported = errors.New("unsupported update")

// Update - единый формат входящего сообщения, в который приводятся TG и VK.
type Update struct {
	UpdateID string  `json:"update_id"`
	Message  Message `json:"message"`
}

type Message struct {
	ID     int    `json:"id"`
	ChatID int64  `json:"chat_id"`
	User   User   `json:"user"`
	Text   string `json:"text"`
}

type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Envelope - пачка апдейтов одной платформы, так они лежат в очереди.
type Envelope struct {
	Platform Platform          `json:"platform"`
	Updates  []json.RawMessage `json:"updates"`
}

// Decode разбирает тело сообщения из очереди. Апдейты, которые не несут
// текстового сообщения, пропускаются.
func Decode(body []byte) ([]Update, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var decode func(json.RawMessage) (Update, error)
	switch env.Platform {
	case PlatformTelegram:
		decode = FromTelegram
	case PlatformVK:
		decode = FromVK
	default:
		return nil, fmt.Errorf("%w: platform %q", ErrUnsupported, env.Platform)
	}

	out := make([]Update, 0, len(env.Updates))
	for _, raw := range env.Updates {
		u, err := decode(raw)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Encode собирает конверт для публикации в очередь.
func Encode(platform Platform, raw ...json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{Platform: platform, Updates: raw})
}

// Command возвращает команду без суффикса "@botname" и признак того,
// что токен вообще похож на команду.
func Command(token string) (string, bool) {
	if !strings.HasPrefix(token, "/") {
		return token, false
	}
	if i := strings.IndexByte(token, '@'); i > 0 {
		token = token[:i]
	}
	return token, true
}
