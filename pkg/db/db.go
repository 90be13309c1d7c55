// Package db provides the persistence layer used by the application. It wraps
// a SQLite database holding a journal of every query sent to the Spotify
// Metadata API. Responses are never stored; the journal only answers what
// was asked, when, and how the service responded. Callers are expected to
// open a single DB instance using New and reuse it for all operations.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"Spotify-Metadata-Go/pkg/spotify"
)

// DB wraps a sql.DB connection and exposes helper methods for the
// application's persistence layer.
type DB struct {
	*sql.DB
}

// DB is used as the client's journal.
var _ spotify.Recorder = (*DB)(nil)

// New opens the SQLite database located at path. If the file does not
// exist it is created along with the required schema.
func New(path string) (*DB, error) {
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// ":memory:" databases are per connection.
	d.SetMaxOpenConns(1)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			path TEXT NOT NULL,
			params TEXT NOT NULL,
			format TEXT NOT NULL,
			status INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			requested_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_requested_at ON queries(requested_at)`,
	}
	for _, s := range stmts {
		if _, err := d.Exec(s); err != nil {
			d.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
	}
	return &DB{d}, nil
}

// RecordQuery appends rec to the journal. Query parameters are stored in
// their URL encoded form.
func (db *DB) RecordQuery(ctx context.Context, rec spotify.QueryRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO queries(request_id, path, params, format, status, outcome, duration_ms, requested_at) VALUES(?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Path, rec.Params.Encode(), string(rec.Format), rec.Status, rec.Outcome,
		rec.Duration.Milliseconds(), rec.RequestedAt.UTC())
	return err
}

// Query is a journal entry as read back from the database.
type Query struct {
	RequestID   string        `json:"request_id"`
	Path        string        `json:"path"`
	Params      url.Values    `json:"params"`
	Format      string        `json:"format"`
	Status      int           `json:"status"`
	Outcome     string        `json:"outcome"`
	Duration    time.Duration `json:"duration_ns"`
	RequestedAt time.Time     `json:"requested_at"`
}

// RecentQueries returns up to limit entries, newest first.
func (db *DB) RecentQueries(ctx context.Context, limit int) ([]Query, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT request_id, path, params, format, status, outcome, duration_ms, requested_at FROM queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Query
	for rows.Next() {
		var (
			q      Query
			params string
			ms     int64
		)
		if err := rows.Scan(&q.RequestID, &q.Path, &params, &q.Format, &q.Status, &q.Outcome, &ms, &q.RequestedAt); err != nil {
			return nil, err
		}
		if q.Params, err = url.ParseQuery(params); err != nil {
			return nil, fmt.Errorf("query %s: bad params: %w", q.RequestID, err)
		}
		q.Duration = time.Duration(ms) * time.Millisecond
		res = append(res, q)
	}
	return res, rows.Err()
}

// OutcomeCount represents how many journal entries share an outcome.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// OutcomeCounts groups the journal by outcome, most frequent first.
func (db *DB) OutcomeCounts(ctx context.Context) ([]OutcomeCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT outcome, COUNT(*) c FROM queries GROUP BY outcome ORDER BY c DESC, outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []OutcomeCount
	for rows.Next() {
		var oc OutcomeCount
		if err := rows.Scan(&oc.Outcome, &oc.Count); err != nil {
			return nil, err
		}
		res = append(res, oc)
	}
	return res, rows.Err()
}
