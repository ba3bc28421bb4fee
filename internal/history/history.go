// Package history records batch run outcomes in a local SQLite database.
// Recording is best effort: failures are reported to the caller, and callers
// log rather than abort the processing run.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a batch run history sink backed by SQLite.
type Store struct {
	db *sql.DB
}

// Run is one recorded batch invocation.
type Run struct {
	ID       int64
	Command  string
	Started  time.Time
	Finished time.Time
	Total    int
	Failed   int
}

// Item is the outcome of one matched stem within a run.
type Item struct {
	Stem   string
	Output string
	Status string
	Error  string
}

// Item status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Open opens (and creates if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER,
		total INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	)`)
	if err == nil {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS items (
			run_id INTEGER NOT NULL,
			stem TEXT NOT NULL,
			output TEXT,
			status TEXT NOT NULL,
			error TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun records the start of a batch run and returns its id.
func (s *Store) StartRun(command string) (int64, error) {
	res, err := s.db.Exec("INSERT INTO runs (command, started) VALUES (?, ?)",
		command, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to record run start: %w", err)
	}
	return res.LastInsertId()
}

// RecordItem records the outcome of one matched stem.
func (s *Store) RecordItem(runID int64, item Item) error {
	_, err := s.db.Exec("INSERT INTO items (run_id, stem, output, status, error) VALUES (?, ?, ?, ?, ?)",
		runID, item.Stem, item.Output, item.Status, item.Error)
	if err != nil {
		return fmt.Errorf("failed to record item %s: %w", item.Stem, err)
	}
	return nil
}

// FinishRun records run completion with final counts.
func (s *Store) FinishRun(runID int64, total, failed int) error {
	_, err := s.db.Exec("UPDATE runs SET finished = ?, total = ?, failed = ? WHERE id = ?",
		time.Now().Unix(), total, failed, runID)
	if err != nil {
		return fmt.Errorf("failed to record run completion: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		"SELECT id, command, started, COALESCE(finished, 0), total, failed FROM runs ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Command, &started, &finished, &r.Total, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Started = time.Unix(started, 0)
		if finished > 0 {
			r.Finished = time.Unix(finished, 0)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Items returns the recorded items of one run in insertion order.
func (s *Store) Items(runID int64) ([]Item, error) {
	rows, err := s.db.Query(
		"SELECT stem, COALESCE(output, ''), status, COALESCE(error, '') FROM items WHERE run_id = ? ORDER BY rowid",
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Stem, &it.Output, &it.Status, &it.Error); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
