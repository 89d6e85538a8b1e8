package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryProvider keeps values in process memory. A zero TTL never expires.
type MemoryProvider struct {
	clock   clockwork.Clock
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryProvider(clock clockwork.Clock) *MemoryProvider {
	return &MemoryProvider{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.lookup(key)
	if !ok {
		return nil, ErrCacheMiss
	}

	return append([]byte(nil), entry.value...), nil
}

func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.store(key, value, ttl)

	return nil
}

func (p *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.lookup(key); ok {
		return false, nil
	}

	p.store(key, value, ttl)

	return true, nil
}

func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.entries, key)

	return nil
}

func (p *MemoryProvider) Close() error { return nil }

func (p *MemoryProvider) lookup(key string) (memoryEntry, bool) {
	entry, ok := p.entries[key]
	if !ok {
		return memoryEntry{}, false
	}

	if !entry.expiresAt.IsZero() && !p.clock.Now().Before(entry.expiresAt) {
		delete(p.entries, key)

		return memoryEntry{}, false
	}

	return entry, true
}

func (p *MemoryProvider) store(key string, value []byte, ttl time.Duration) {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = p.clock.Now().Add(ttl)
	}

	p.entries[key] = entry
}
