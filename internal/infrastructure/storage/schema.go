package storage

import (
	"fmt"
	"strings"

	"FilingsScanner/internal/domain"
)

// schema is portable between Postgres and SQLite; timestamps are TEXT on both.
func schema() []string {
	statuses := make([]string, 0, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		statuses = append(statuses, "'"+string(s)+"'")
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS market_documents (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK (status IN (%s)),
	ticker TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	fund_description TEXT NOT NULL DEFAULT '',
	trading_name TEXT NOT NULL DEFAULT '',
	file_extension TEXT NOT NULL DEFAULT '',
	tldr TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	notified_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`, strings.Join(statuses, ", ")),
		`CREATE INDEX IF NOT EXISTS market_documents_status_idx ON market_documents (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL UNIQUE REFERENCES market_documents (id),
	document_external_id TEXT NOT NULL,
	file_extension TEXT NOT NULL DEFAULT '',
	ticker TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	published_at TEXT NOT NULL,
	type TEXT NOT NULL,
	metrics TEXT NOT NULL DEFAULT '{}'
)`,
	}
}
