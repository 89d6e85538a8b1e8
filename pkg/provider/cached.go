package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/models"
)

type cachedProvider struct {
	next   Provider
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// WithCache memoizes analyses per (team, process, instance, run), so a
// restarted process instance always reaches the wrapped provider. Cache
// failures fall through to the wrapped provider.
func WithCache(next Provider, c cache.Provider, ttl time.Duration, logger *slog.Logger) Provider {
	return &cachedProvider{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("module", "provider_cache"),
	}
}

func CacheKey(process string, input Input) string {
	return fmt.Sprintf("analysis:%s:%s:%s:%d", input.Team, process, input.InstanceID, input.Run)
}

func (p *cachedProvider) Analyze(ctx context.Context, process string, input Input) (models.Analysis, error) {
	key := CacheKey(process, input)

	payload, err := p.cache.Get(ctx, key)
	if err == nil {
		var analysis models.Analysis
		if err := json.Unmarshal(payload, &analysis); err == nil {
			return analysis, nil
		}

		p.logger.WarnContext(ctx, "Discarding undecodable cached analysis", "key", key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		p.logger.WarnContext(ctx, "Cache lookup failed", "key", key, "error", err)
	}

	analysis, err := p.next.Analyze(ctx, process, input)
	if err != nil {
		return analysis, err
	}

	payload, err = json.Marshal(analysis)
	if err == nil {
		err = p.cache.Set(ctx, key, payload, p.ttl)
	}

	if err != nil {
		p.logger.WarnContext(ctx, "Cache store failed", "key", key, "error", err)
	}

	return analysis, nil
}
