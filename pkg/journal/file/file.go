// Package file provides a JSON-lines event journal on the local file system.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/teamflow/pkg/journal"
)

const fileName = "events.jsonl"

// Journal appends entries to <root>/events.jsonl.
type Journal struct {
	root string
	path string
	mu   sync.Mutex
}

// NewJournal creates root when missing. root may carry a file:// prefix.
func NewJournal(root string) (*Journal, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(cleanRoot, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &Journal{
		root: cleanRoot,
		path: filepath.Join(cleanRoot, fileName),
	}, nil
}

func (j *Journal) Append(_ context.Context, entry journal.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}

	return nil
}

// Recent reads the whole journal and returns the newest entries first.
// Lines that fail to decode are skipped.
func (j *Journal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return []journal.Entry{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var entries []journal.Entry

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var entry journal.Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}

		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return journal.Newest(entries, limit), nil
}

func (j *Journal) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(j.root); err != nil {
		return fmt.Errorf("journal directory unavailable: %w", err)
	}

	return nil
}

func (j *Journal) Close(_ context.Context) error {
	return nil
}
