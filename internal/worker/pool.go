package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiselevos/wordchain_game_bot/internal/updates"
)

var ErrPoolClosed = errors.New("worker pool is closed")

type Handler interface {
	Handle(ctx context.Context, u updates.Update) error
}

type HandlerFunc func(ctx context.Context, u updates.Update) error

func (f HandlerFunc) Handle(ctx context.Context, u updates.Update) error {
	return f(ctx, u)
}

// Pool - N воркеров над неограниченной очередью в памяти.
// Порядок обработки внутри одной сессии не гарантируется.
type Pool struct {
	handler Handler
	workers int
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []updates.Update
	closed bool

	wg sync.WaitGroup
}

func NewPool(h Handler, workers int, timeout time.Duration, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{
		handler: h,
		workers: max(workers, 1),
		timeout: timeout,
		log:     log,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit никогда не блокируется.
func (p *Pool) Submit(u updates.Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, u)
	p.cond.Signal()
	return nil
}

func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Run запускает воркеров и блокируется до отмены ctx. После отмены новые
// апдейты не принимаются, а уже принятые дорабатываются.
func (p *Pool) Run(ctx context.Context) {
	base := context.WithoutCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(base, i)
	}
	p.log.Info("worker pool started", "workers", p.workers)

	<-ctx.Done()
	p.Close()
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *Pool) next() (updates.Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return updates.Update{}, false
	}

	u := p.queue[0]
	p.queue[0] = updates.Update{}
	p.queue = p.queue[1:]
	return u, true
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		u, ok := p.next()
		if !ok {
			return
		}
		p.handle(ctx, id, u)
	}
}

func (p *Pool) handle(ctx context.Context, id int, u updates.Update) {
	log := p.log.With(
		"trace_id", uuid.NewString(),
		"worker", id,
		"update_id", u.UpdateID,
		"chat_id", u.Message.ChatID,
	)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.safeHandle(ctx, u)
	if err != nil {
		log.Error("handle update failed", "err", err, "took", time.Since(start))
		return
	}
	log.Debug("update handled", "took", time.Since(start))
}

func (p *Pool) safeHandle(ctx context.Context, u updates.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return p.handler.Handle(ctx, u)
}
