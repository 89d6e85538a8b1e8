// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/journal"
	"github.com/dukex/teamflow/pkg/journal/file"
	"github.com/dukex/teamflow/pkg/journal/postgresql"
	"github.com/dukex/teamflow/pkg/metrics"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

const (
	SchedulerTicker = "ticker"
	SchedulerCron   = "cron"

	ProviderDeterministic = "deterministic"
	ProviderHTTP          = "http"

	// AnalysisCacheTTL bounds how long a memoized analysis is reused.
	AnalysisCacheTTL = time.Hour

	providerTimeout = 10 * time.Second
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

func NewSchedulerFactory(kind string, clock clockwork.Clock) (scheduler.Factory, error) {
	switch kind {
	case "", SchedulerTicker:
		return scheduler.TickerFactory(clock), nil
	case SchedulerCron:
		return scheduler.CronFactory(), nil
	default:
		return nil, fmt.Errorf("%w: scheduler %q", ErrUnsupportedProvider, kind)
	}
}

// NewCache connects to Redis when redisURL is set and keeps values in memory
// otherwise.
func NewCache(ctx context.Context, logger *slog.Logger, redisURL string, clock clockwork.Clock) (cache.Provider, error) {
	if redisURL == "" {
		logger.InfoContext(ctx, "Using in-memory cache")

		return cache.NewMemoryProvider(clock), nil
	}

	redisCache, err := cache.NewRedisProvider(ctx, redisURL, "teamflow:")
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Using Redis cache")

	return redisCache, nil
}

// NewProvider builds the capability provider named by kind, memoized in c,
// traced with tracer and observed by the provider latency histogram.
func NewProvider(kind, url string, seed int64, c cache.Provider, tracer trace.Tracer, logger *slog.Logger) (provider.Provider, error) {
	var base provider.Provider

	switch kind {
	case "", ProviderDeterministic:
		base = provider.NewDeterministic(seed)
	case ProviderHTTP:
		if url == "" {
			return nil, fmt.Errorf("%w: http provider requires a url", ErrUnsupportedProvider)
		}

		base = provider.NewHTTPProvider(url, providerTimeout)
	default:
		return nil, fmt.Errorf("%w: capability provider %q", ErrUnsupportedProvider, kind)
	}

	if c != nil {
		base = provider.WithCache(base, c, AnalysisCacheTTL, logger)
	}

	return provider.WithTracing(metrics.InstrumentProvider(base), tracer), nil
}

var supportedJournalProviders = []string{"file", "postgres", "postgresql"}

// NewJournal opens the event journal at journalURL: file:// paths use JSONL
// files, postgres:// URLs use PostgreSQL and an empty URL keeps entries in
// memory.
func NewJournal(ctx context.Context, logger *slog.Logger, journalURL string) (journal.Journal, error) {
	switch parseJournalProvider(journalURL) {
	case "memory":
		return journal.NewMemory(0), nil
	case "postgres", "postgresql":
		j, err := postgresql.NewJournal(ctx, logger, journalURL)
		if err != nil {
			return nil, err
		}

		return j, nil
	default:
		j, err := file.NewJournal(journalURL)
		if err != nil {
			return nil, err
		}

		return j, nil
	}
}

func parseJournalProvider(journalURL string) string {
	if journalURL == "" {
		return "memory"
	}

	parts := strings.SplitN(journalURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	provider := parts[0]
	for _, supported := range supportedJournalProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
