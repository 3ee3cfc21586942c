package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

const driverName = "sqlite"

const migrationV1 = `
CREATE TABLE IF NOT EXISTS search_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    query TEXT NOT NULL,
    search_type TEXT NOT NULL DEFAULT 'hybrid',
    filters TEXT NOT NULL DEFAULT '{}',
    results_count INTEGER NOT NULL DEFAULT 0,
    response_time_ms INTEGER,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_user_created
    ON search_history(user_id, created_at DESC);
`

// SQLiteStore persists search history in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, migrationV1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts rec.
func (s *SQLiteStore) Append(ctx context.Context, rec domain.HistoryRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	filters := []byte("{}")
	if len(rec.Filters) > 0 {
		b, err := json.Marshal(rec.Filters)
		if err != nil {
			return fmt.Errorf("marshal filters: %w", err)
		}
		filters = b
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (user_id, query, search_type, filters, results_count, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.Query, rec.Mode, string(filters), rec.ResultCount,
		rec.ResponseTime.Milliseconds(), rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// RecentQueries returns up to limit query texts, newest first.
func (s *SQLiteStore) RecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	if userID == "" || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query FROM search_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// HealthCheck pings the database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
