// Package stats counts post views in a small SQLite database.
package stats

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// PostViews is the view total of one post.
type PostViews struct {
	Identifier string
	Views      int64
	LastSeen   time.Time
}

// Store wraps a SQLite database of per-day view counters.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the dashboard read while a request records a view; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS post_views (
    identifier TEXT NOT NULL,
    day TEXT NOT NULL,
    views INTEGER NOT NULL DEFAULT 0,
    last_seen TEXT NOT NULL,
    PRIMARY KEY (identifier, day)
);
`)
	return err
}

// RecordView adds one view of the post to today's counter.
func (s *Store) RecordView(identifier string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
INSERT INTO post_views (identifier, day, views, last_seen) VALUES (?, ?, 1, ?)
ON CONFLICT(identifier, day) DO UPDATE SET views = views + 1, last_seen = excluded.last_seen`,
		identifier, now.Format("2006-01-02"), now.Format(time.RFC3339))
	return err
}

// Views returns the total number of views recorded for a post.
func (s *Store) Views(identifier string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(views), 0) FROM post_views WHERE identifier = ?`, identifier).Scan(&n)
	return n, err
}

// AllViews returns view totals for every post with at least one view,
// keyed by identifier.
func (s *Store) AllViews() (map[string]PostViews, error) {
	rows, err := s.db.Query(`SELECT identifier, SUM(views), MAX(last_seen) FROM post_views GROUP BY identifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]PostViews)
	for rows.Next() {
		var pv PostViews
		var lastSeen string
		if err := rows.Scan(&pv.Identifier, &pv.Views, &lastSeen); err != nil {
			return nil, err
		}
		pv.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		out[pv.Identifier] = pv
	}
	return out, rows.Err()
}

// TopPosts returns the n most viewed posts, most viewed first.
func (s *Store) TopPosts(n int) ([]PostViews, error) {
	rows, err := s.db.Query(`SELECT identifier, SUM(views) AS total, MAX(last_seen) FROM post_views GROUP BY identifier ORDER BY total DESC, identifier DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PostViews
	for rows.Next() {
		var pv PostViews
		var lastSeen string
		if err := rows.Scan(&pv.Identifier, &pv.Views, &lastSeen); err != nil {
			return nil, err
		}
		pv.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		out = append(out, pv)
	}
	return out, rows.Err()
}

// Forget removes all counters of a post, e.g. after it was deleted.
func (s *Store) Forget(identifier string) error {
	_, err := s.db.Exec(`DELETE FROM post_views WHERE identifier = ?`, identifier)
	return err
}
