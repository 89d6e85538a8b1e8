// Package postgresql provides a PostgreSQL event journal.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/journal"
	"github.com/dukex/teamflow/pkg/journal/sqlbase"
	_ "github.com/lib/pq"
)

type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJournal connects to databaseURL and runs the journal migrations.
func NewJournal(ctx context.Context, logger *slog.Logger, databaseURL string) (*Journal, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgres_journal")

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Journal{db: database, logger: logger}, nil
}

// Append stores entry once; a repeated ID is ignored.
func (j *Journal) Append(ctx context.Context, entry journal.Entry) error {
	query := `
		INSERT INTO journal_entries (id, event_type, team, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := j.db.ExecContext(ctx, query, entry.ID, string(entry.Type), entry.Team, entry.Timestamp, []byte(entry.Payload))
	if err != nil {
		return fmt.Errorf("failed to insert journal entry %s: %w", entry.ID, err)
	}

	return nil
}

func (j *Journal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		limit = journal.DefaultRecentLimit
	}

	query := `
		SELECT id, event_type, team, occurred_at, payload
		FROM journal_entries
		ORDER BY seq DESC
		LIMIT $1
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			j.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	entries := []journal.Entry{}

	for rows.Next() {
		var (
			entry     journal.Entry
			eventType string
			payload   []byte
		)

		if err := rows.Scan(&entry.ID, &eventType, &entry.Team, &entry.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		entry.Type = events.EventType(eventType)
		entry.Payload = payload
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	return entries, nil
}

func (j *Journal) HealthCheck(ctx context.Context) error {
	if err := j.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (j *Journal) Close(_ context.Context) error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
