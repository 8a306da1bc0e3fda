package game

import (
	"context"
	"sync"
	"time"
)

type TimerKind string

const (
	WordTimer TimerKind = "word"
	VoteTimer TimerKind = "vote"
)

type timerKey struct {
	sessionID int64
	kind      TimerKind
}

type timerEntry struct {
	cancel context.CancelFunc
}

// Timers - отложенные вызовы по (сессия, назначение). Новый Arm того же
// назначения отменяет предыдущий.
type Timers struct {
	mu      sync.Mutex
	entries map[timerKey]*timerEntry
	stopped bool

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewTimers() *Timers {
	base, stop := context.WithCancel(context.Background())
	return &Timers{
		entries: make(map[timerKey]*timerEntry),
		base:    base,
		stop:    stop,
	}
}

// Arm ставит fn через delay. ctx внутри fn отменяется при Stop.
func (t *Timers) Arm(sessionID int64, kind TimerKind, delay time.Duration, fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	key := timerKey{sessionID: sessionID, kind: kind}
	if old, ok := t.entries[key]; ok {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(t.base)
	e := &timerEntry{cancel: cancel}
	t.entries[key] = e

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Снимаем запись, только если её не заменили, пока ждали лок
		t.mu.Lock()
		cur, ok := t.entries[key]
		if !ok || cur != e {
			t.mu.Unlock()
			return
		}
		delete(t.entries, key)
		t.mu.Unlock()

		fn(ctx)
	}()
}

func (t *Timers) Cancel(sessionID int64, kind TimerKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := timerKey{sessionID: sessionID, kind: kind}
	if e, ok := t.entries[key]; ok {
		e.cancel()
		delete(t.entries, key)
	}
}

func (t *Timers) CancelSession(sessionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, e := range t.entries {
		if key.sessionID == sessionID {
			e.cancel()
			delete(t.entries, key)
		}
	}
}

func (t *Timers) Armed(sessionID int64, kind TimerKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.entries[timerKey{sessionID: sessionID, kind: kind}]
	return ok
}

func (t *Timers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stop отменяет всё и ждёт уже сработавшие колбэки.
func (t *Timers) Stop() {
	t.mu.Lock()
	t.stopped = true
	for key, e := range t.entries {
		e.cancel()
		delete(t.entries, key)
	}
	t.mu.Unlock()

	t.stop()
	t.wg.Wait()
}
