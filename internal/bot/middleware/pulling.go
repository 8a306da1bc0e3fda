package middleware

import (
	"time"

	"gopkg.in/telebot.v3"
)

const pollTimeout = 10 * time.Second

// DropOldMessages - лонгполлинг без старых и нетекстовых сообщений.
// После простоя бота не надо доигрывать ходы, которые уже истекли.
func DropOldMessages(maxAge time.Duration) *telebot.MiddlewarePoller {
	return telebot.NewMiddlewarePoller(
		&telebot.LongPoller{Timeout: pollTimeout, AllowedUpdates: []string{"message"}},
		func(u *telebot.Update) bool {
			return fresh(u, maxAge, time.Now())
		})
}

func fresh(u *telebot.Update, maxAge time.Duration, now time.Time) bool {
	if u.Message == nil || u.Message.Text == "" {
		return false
	}
	return now.Sub(u.Message.Time()) <= maxAge
}
