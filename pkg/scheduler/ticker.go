package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Ticker schedules jobs on clockwork tickers, one goroutine per job.
type Ticker struct {
	clock  clockwork.Clock
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

func NewTicker(clock clockwork.Clock, logger *slog.Logger) *Ticker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Ticker{
		clock:  clock,
		logger: logger.With("module", "ticker_scheduler"),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]chan struct{}),
	}
}

// TickerFactory returns a Factory sharing clock across every scheduler it builds.
func TickerFactory(clock clockwork.Clock) Factory {
	return func(logger *slog.Logger) Scheduler {
		return NewTicker(clock, logger)
	}
}

func (t *Ticker) Every(name string, period time.Duration, job Job) error {
	if err := validate(name, period); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrStopped
	}

	if _, exists := t.jobs[name]; exists {
		return fmt.Errorf("job %s: %w", name, ErrDuplicateJob)
	}

	done := make(chan struct{})
	t.jobs[name] = done
	ticker := t.clock.NewTicker(period)

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-t.ctx.Done():
				return
			case <-ticker.Chan():
				select {
				case <-done:
					return
				default:
				}

				t.logger.Debug("Running scheduled job", "job", name)
				safeRun(t.ctx, t.logger, name, job)
			}
		}
	}()

	t.logger.Info("Scheduled job", "job", name, "period", period)

	return nil
}

func (t *Ticker) Cancel(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	done, exists := t.jobs[name]
	if !exists {
		return false
	}

	close(done)
	delete(t.jobs, name)

	return true
}

// Stop cancels every job and waits for running bodies to return. It must not
// be called from inside a job of the same scheduler.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()

		return
	}

	t.stopped = true
	for name, done := range t.jobs {
		close(done)
		delete(t.jobs, name)
	}
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}
