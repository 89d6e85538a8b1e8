package postgresql_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/journal"
	"github.com/dukex/teamflow/pkg/journal/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupJournal(t *testing.T) (*postgresql.Journal, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("teamflow_test"),
		postgres.WithUsername("teamflow"),
		postgres.WithPassword("teamflow"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	j, err := postgresql.NewJournal(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = j.Close(context.Background()) })

	return j, ctx, databaseURL
}

func TestJournal_AppendAndRecent(t *testing.T) {
	j, ctx, _ := setupJournal(t)

	require.NoError(t, j.HealthCheck(ctx))

	now := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, j.Append(ctx, journal.Entry{
			ID:        id,
			Type:      events.TeamAlertEvent,
			Team:      "healthcare",
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Payload:   []byte(`{"alert":{"kind":"staffing_risk"}}`),
		}))
	}

	require.NoError(t, j.Append(ctx, journal.Entry{ID: "e1", Type: events.TeamAlertEvent, Team: "healthcare", Timestamp: now, Payload: []byte(`{}`)}))

	recent, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "e3", recent[0].ID)
	assert.Equal(t, events.TeamAlertEvent, recent[0].Type)
	assert.JSONEq(t, `{"alert":{"kind":"staffing_risk"}}`, string(recent[0].Payload))
	assert.True(t, now.Add(2*time.Second).Equal(recent[0].Timestamp))

	recent, err = j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestNewJournal_MigrationsAreIdempotent(t *testing.T) {
	_, ctx, databaseURL := setupJournal(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	again, err := postgresql.NewJournal(ctx, logger, databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}
