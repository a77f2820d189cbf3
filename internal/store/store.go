// Package store persists the exclusion list and favorites in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/pipeline"
)

// ErrNotFound is returned when deleting a row that does not exist.
var ErrNotFound = errors.New("not found")

const timeLayout = time.RFC3339Nano

// Store is safe for concurrent use.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Exclusion is a URL that is never reported.
type Exclusion struct {
	URL     string    `json:"url"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"addedAt"`
}

// Favorite is an article the reader starred.
type Favorite struct {
	ArticleID string    `json:"articleId"`
	Date      string    `json:"date"`
	Title     string    `json:"title"`
	AddedAt   time.Time `json:"addedAt"`
}

// Open opens or creates the database at dbPath. ":memory:" gives an
// in-memory database shared by every Open in the process.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exclusions (
		url TEXT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		added_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		article_id TEXT PRIMARY KEY,
		date TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		added_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_added ON favorites(added_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddExclusion records url. It reports false when url was already excluded;
// the existing reason is kept.
func (s *Store) AddExclusion(ctx context.Context, url, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, sq.Insert("exclusions").
		Options("OR IGNORE").
		Columns("url", "reason", "added_at").
		Values(url, reason, s.now().UTC().Format(timeLayout)))
	if err != nil {
		return false, fmt.Errorf("insert exclusion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveExclusion deletes url, or returns ErrNotFound.
func (s *Store) RemoveExclusion(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, sq.Delete("exclusions").Where(sq.Eq{"url": url}))
	if err != nil {
		return fmt.Errorf("delete exclusion: %w", err)
	}
	return expectRow(res)
}

// ListExclusions returns every exclusion ordered by URL.
func (s *Store) ListExclusions(ctx context.Context) ([]Exclusion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(ctx, sq.Select("url", "reason", "added_at").From("exclusions").OrderBy("url"))
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	out := []Exclusion{}
	for rows.Next() {
		var (
			e       Exclusion
			addedAt string
		)
		if err := rows.Scan(&e.URL, &e.Reason, &addedAt); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		e.AddedAt = parseTime(addedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusions: %w", err)
	}
	return out, nil
}

// Exclusions returns the exclusion list as the set the pipeline consumes.
func (s *Store) Exclusions(ctx context.Context) (pipeline.ExclusionSet, error) {
	list, err := s.ListExclusions(ctx)
	if err != nil {
		return nil, err
	}
	set := make(pipeline.ExclusionSet, len(list))
	for _, e := range list {
		set[e.URL] = struct{}{}
	}
	return set, nil
}

// Favorites returns favorites oldest first.
func (s *Store) Favorites(ctx context.Context) ([]Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(ctx, sq.Select("article_id", "date", "title", "added_at").
		From("favorites").
		OrderBy("added_at", "article_id"))
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	out := []Favorite{}
	for rows.Next() {
		var (
			f       Favorite
			addedAt string
		)
		if err := rows.Scan(&f.ArticleID, &f.Date, &f.Title, &addedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		f.AddedAt = parseTime(addedAt)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return out, nil
}

// AddFavorite stores f stamped with the current time. It reports false when
// the article is already a favorite.
func (s *Store) AddFavorite(ctx context.Context, f Favorite) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, sq.Insert("favorites").
		Options("OR IGNORE").
		Columns("article_id", "date", "title", "added_at").
		Values(f.ArticleID, f.Date, f.Title, s.now().UTC().Format(timeLayout)))
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveFavorite deletes the favorite for articleID, or returns ErrNotFound.
func (s *Store) RemoveFavorite(ctx context.Context, articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, sq.Delete("favorites").Where(sq.Eq{"article_id": articleID}))
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
