package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteRecords implements RecordStore on a SQLite database. Play time is
// stored in milliseconds and converted back to seconds on read.
type SQLiteRecords struct {
	db *sql.DB
}

// NewSQLiteRecords opens (or creates) the database at dsn and enables WAL
// mode for concurrent readers.
func NewSQLiteRecords(dsn string) (*SQLiteRecords, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open records database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &SQLiteRecords{db: db}, nil
}

// Migrate ensures the schema. The ordering index matches the leaderboard
// contract so pages come straight off the index.
func (s *SQLiteRecords) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS retired_players (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT NOT NULL,
			score        INTEGER NOT NULL,
			play_time_ms INTEGER NOT NULL,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retired_players_rank
			ON retired_players (score DESC, play_time_ms ASC, name ASC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteRecords) AddRecord(ctx context.Context, name string, score int, playTimeSeconds float64) error {
	playTimeMs := int64(playTimeSeconds * 1000)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retired_players (name, score, play_time_ms) VALUES (?, ?, ?)`,
		name, score, playTimeMs,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLiteRecords) GetRecords(ctx context.Context, start, maxItems int) ([]PlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, score, play_time_ms FROM retired_players
		 ORDER BY score DESC, play_time_ms ASC, name ASC
		 LIMIT ? OFFSET ?`,
		maxItems, start,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []PlayerRecord
	for rows.Next() {
		var r PlayerRecord
		var playTimeMs int64
		if err := rows.Scan(&r.Name, &r.Score, &playTimeMs); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.PlayTime = float64(playTimeMs) / 1000.0
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

func (s *SQLiteRecords) Close() error {
	return s.db.Close()
}
