package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron schedules jobs as robfig/cron "@every" entries. Overlapping runs are
// skipped and panics are recovered by the cron job chain.
type Cron struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
	stopped bool
}

func NewCron(logger *slog.Logger) *Cron {
	logger = logger.With("module", "cron_scheduler")
	cronLogger := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cron{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(
				cron.SkipIfStillRunning(cronLogger),
				cron.Recover(cronLogger),
			),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
	c.cron.Start()

	return c
}

func CronFactory() Factory {
	return func(logger *slog.Logger) Scheduler {
		return NewCron(logger)
	}
}

// Spec renders period as a robfig/cron descriptor. Periods are truncated to
// whole seconds with a one second floor.
func Spec(period time.Duration) string {
	period = period.Truncate(time.Second)
	if period < time.Second {
		period = time.Second
	}

	return "@every " + period.String()
}

func (c *Cron) Every(name string, period time.Duration, job Job) error {
	if err := validate(name, period); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}

	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("job %s: %w", name, ErrDuplicateJob)
	}

	id, err := c.cron.AddFunc(Spec(period), func() {
		c.logger.Debug("Running scheduled job", "job", name)
		job(c.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}

	c.entries[name] = id
	c.logger.Info("Scheduled job", "job", name, "spec", Spec(period))

	return nil
}

func (c *Cron) Cancel(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, exists := c.entries[name]
	if !exists {
		return false
	}

	c.cron.Remove(id)
	delete(c.entries, name)

	return true
}

// Stop removes every entry and waits for running jobs to complete.
func (c *Cron) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()

		return
	}

	c.stopped = true
	for name, id := range c.entries {
		c.cron.Remove(id)
		delete(c.entries, name)
	}
	c.mu.Unlock()

	c.cancel()
	<-c.cron.Stop().Done()
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
