package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rvbeek/repolens/internal/manifest"
	"github.com/rvbeek/repolens/internal/protocol"
)

// Store keeps a history of parsed manifest views in a local sqlite file.
// It is advisory data for the history API; the live overlay never reads
// from it.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS manifest_views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			first_seen_utc TEXT NOT NULL,
			last_seen_utc TEXT NOT NULL,
			parse_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS manifest_repositories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			view_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			vcs_type TEXT NOT NULL,
			url TEXT NOT NULL,
			version TEXT NOT NULL DEFAULT '',
			UNIQUE(view_id, name),
			FOREIGN KEY(view_id) REFERENCES manifest_views(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_manifest_views_last_seen ON manifest_views(last_seen_utc);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// RecordParse upserts the view row for url and replaces its repository
// rows with the outcome of the latest successful parse.
func (s *Store) RecordParse(url string, records map[string]manifest.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := tx.Exec(`
		INSERT INTO manifest_views (url, first_seen_utc, last_seen_utc, parse_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(url) DO UPDATE SET
			last_seen_utc = excluded.last_seen_utc,
			parse_count = parse_count + 1
	`, url, now, now); err != nil {
		return fmt.Errorf("upsert manifest view: %w", err)
	}

	var viewID int64
	if err := tx.QueryRow(`SELECT id FROM manifest_views WHERE url = ?`, url).Scan(&viewID); err != nil {
		return fmt.Errorf("resolve manifest view: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM manifest_repositories WHERE view_id = ?`, viewID); err != nil {
		return fmt.Errorf("clear manifest repositories: %w", err)
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rec := records[name]
		if _, err := tx.Exec(`
			INSERT INTO manifest_repositories (view_id, name, vcs_type, url, version)
			VALUES (?, ?, ?, ?, ?)
		`, viewID, rec.Name, rec.Type, rec.URL, rec.Version); err != nil {
			return fmt.Errorf("insert manifest repository: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RecentViews returns up to limit views, most recently seen first.
func (s *Store) RecentViews(limit int) ([]protocol.ManifestViewSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT v.id, v.url, v.first_seen_utc, v.last_seen_utc, v.parse_count,
			(SELECT COUNT(*) FROM manifest_repositories r WHERE r.view_id = v.id)
		FROM manifest_views v
		ORDER BY v.last_seen_utc DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query manifest views: %w", err)
	}
	defer rows.Close()

	var out []protocol.ManifestViewSummary
	for rows.Next() {
		var v protocol.ManifestViewSummary
		if err := rows.Scan(&v.ID, &v.URL, &v.FirstSeenUTC, &v.LastSeenUTC, &v.ParseCount, &v.Repositories); err != nil {
			return nil, fmt.Errorf("scan manifest view: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manifest views: %w", err)
	}
	return out, nil
}

// ViewRepositories returns the stored repositories of one view, sorted by
// name.
func (s *Store) ViewRepositories(viewID int64) ([]protocol.ManifestRepository, error) {
	rows, err := s.db.Query(`
		SELECT name, vcs_type, url, version
		FROM manifest_repositories
		WHERE view_id = ?
		ORDER BY name
	`, viewID)
	if err != nil {
		return nil, fmt.Errorf("query manifest repositories: %w", err)
	}
	defer rows.Close()

	var out []protocol.ManifestRepository
	for rows.Next() {
		var r protocol.ManifestRepository
		if err := rows.Scan(&r.Name, &r.Type, &r.URL, &r.Version); err != nil {
			return nil, fmt.Errorf("scan manifest repository: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manifest repositories: %w", err)
	}
	return out, nil
}
