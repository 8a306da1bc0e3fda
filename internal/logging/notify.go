package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kiselevos/wordchain_game_bot/internal/game"
)

var _ game.Alerter = (*Notifier)(nil)

// Sender - любой канал в чат-платформу, обычно тот же нотификатор, что у игры.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Notifier шлёт алерты админам в личку. Не чаще раза в min, остальное только в лог.
type Notifier struct {
	sender   Sender
	adminIDs []int64
	log      *slog.Logger

	mu   sync.Mutex
	last time.Time
	min  time.Duration
	now  func() time.Time
}

func NewNotifier(s Sender, admins []int64, log *slog.Logger) *Notifier {
	return &Notifier{
		sender:   s,
		adminIDs: admins,
		log:      log,
		min:      30 * time.Second,
		now:      time.Now,
	}
}

func (n *Notifier) Alert(ctx context.Context, msg string, attrs ...any) {
	if n == nil || n.sender == nil || len(n.adminIDs) == 0 {
		return
	}

	n.mu.Lock()
	now := n.now()
	if !n.last.IsZero() && now.Sub(n.last) < n.min {
		n.mu.Unlock()
		return
	}
	n.last = now
	n.mu.Unlock()

	text := format(msg, attrs...)
	for _, id := range n.adminIDs {
		if err := n.sender.Send(ctx, id, text); err != nil {
			n.log.Warn("admin alert not delivered", "admin_id", id, "err", err)
		}
	}
}

func format(msg string, attrs ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 %s", msg)
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(&b, "\n%v=%v", attrs[i], attrs[i+1])
	}
	return b.String()
}
