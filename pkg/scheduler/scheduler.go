// Package scheduler runs named jobs on independent repeating periods.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrDuplicateJob  = errors.New("job already scheduled")
	ErrInvalidPeriod = errors.New("period must be positive")
	ErrStopped       = errors.New("scheduler stopped")
)

// Job is the body of a repeating task. It receives the scheduler's context,
// which is cancelled by Stop.
type Job func(ctx context.Context)

// Scheduler runs named jobs on independent periods. Runs of the same job
// never overlap.
type Scheduler interface {
	Every(name string, period time.Duration, job Job) error
	Cancel(name string) bool
	Stop()
}

// Factory builds a fresh scheduler for one owner (a workflow or the coordinator).
type Factory func(logger *slog.Logger) Scheduler

func validate(name string, period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("job %s: %w", name, ErrInvalidPeriod)
	}

	return nil
}

func safeRun(ctx context.Context, logger *slog.Logger, name string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Scheduled job panicked", "job", name, "panic", r)
		}
	}()

	job(ctx)
}
