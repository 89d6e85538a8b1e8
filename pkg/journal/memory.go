package journal

import (
	"context"
	"sync"
)

// Memory keeps the last capacity entries in process.
type Memory struct {
	capacity int

	mu      sync.Mutex
	entries []Entry
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}

	return &Memory{capacity: capacity}
}

func (m *Memory) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.capacity {
		m.entries = append([]Entry(nil), m.entries[len(m.entries)-m.capacity:]...)
	}

	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Newest(m.entries, limit), nil
}

func (m *Memory) HealthCheck(context.Context) error {
	return nil
}

func (m *Memory) Close(context.Context) error {
	return nil
}

// Newest returns up to limit entries of an oldest-first slice, newest first.
func Newest(entries []Entry, limit int) []Entry {
	limit = normalizeLimit(limit)
	if limit > len(entries) {
		limit = len(entries)
	}

	recent := make([]Entry, 0, limit)
	for i := len(entries) - 1; i >= len(entries)-limit; i-- {
		recent = append(recent, entries[i])
	}

	return recent
}
