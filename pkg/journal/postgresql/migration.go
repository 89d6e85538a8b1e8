package postgresql

import "github.com/dukex/teamflow/pkg/journal/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{
			Version:     1,
			Description: "journal entries",
			SQL: `
				CREATE TABLE journal_entries (
					seq BIGSERIAL PRIMARY KEY,
					id VARCHAR(255) NOT NULL UNIQUE,
					event_type VARCHAR(100) NOT NULL,
					team VARCHAR(255) NOT NULL,
					occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
					payload JSONB NOT NULL,
					recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_journal_entries_event_type ON journal_entries(event_type);
				CREATE INDEX idx_journal_entries_team ON journal_entries(team);
			`,
		},
	}
}
