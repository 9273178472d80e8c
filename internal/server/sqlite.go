package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fakeyudi/stint/internal/store"
)

// DB wraps the SQLite connection holding ingested interval records.
type DB struct {
	*sql.DB
}

// OpenDB creates or opens the SQLite database at the given path, runs schema
// initialization, and configures WAL mode.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS intervals (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			start       INTEGER NOT NULL,
			"end"       INTEGER NOT NULL,
			reason      TEXT,
			payload     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_intervals_kind ON intervals(kind);
		CREATE INDEX IF NOT EXISTS idx_intervals_start ON intervals(start);
	`)
	return err
}

// InsertBatch stores a batch of records, skipping duplicates by ID so a
// retried push never double-counts. Returns the number actually inserted.
func (db *DB) InsertBatch(records []store.Record) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO intervals (id, kind, start, "end", reason, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return inserted, fmt.Errorf("encode record payload: %w", err)
		}
		res, err := stmt.Exec(r.ID, string(r.Kind), r.Start, r.End, string(r.Reason), string(payload))
		if err != nil {
			return inserted, fmt.Errorf("insert record %s: %w", r.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert batch: %w", err)
	}
	return inserted, nil
}

// ListIntervals returns stored records ordered by start time, optionally
// filtered by kind. limit <= 0 means no limit.
func (db *DB) ListIntervals(kind string, limit int) ([]store.Record, error) {
	q := `SELECT payload FROM intervals`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY start`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan interval row: %w", err)
		}
		var r store.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode interval payload: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
