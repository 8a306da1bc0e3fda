package bot

import (
	tb "gopkg.in/telebot.v3"
)

var _ BotInterface = (*tb.Bot)(nil)

// BotInterface - то, что нотификатору нужно от telebot.
type BotInterface interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
	Delete(msg tb.Editable) error
}
