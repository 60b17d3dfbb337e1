package semindex

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bookforge/internal/config"
	"bookforge/internal/versions"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Entry is one indexed version: its ledger identity, metadata, and vector.
type Entry struct {
	Key         versions.Key
	VersionType versions.Type
	Snippet     string
	Vector      []float32
	IndexedAt   time.Time
}

// Store persists embedding vectors in a SQLite database parallel to the
// version ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the vector index database for the configured data dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.IndexPath())
}

// OpenPath opens the vector index at an explicit database path. Pragmas go in
// the DSN so every pooled connection gets them, not just the one an Exec
// happens to run on.
func OpenPath(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Upsert stores or replaces the entry for its ledger identity. Replacing
// keeps the original row id, so insertion order survives re-indexing.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	data, err := encodeVector(entry.Vector)
	if err != nil {
		return err
	}
	indexedAt := entry.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO vectors (chapter_id, sequence, version_type, snippet, embedding, indexed_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (chapter_id, sequence) DO UPDATE SET
             version_type = excluded.version_type,
             snippet = excluded.snippet,
             embedding = excluded.embedding,
             indexed_at = excluded.indexed_at`,
		entry.Key.ChapterID,
		entry.Key.Sequence,
		entry.VersionType,
		entry.Snippet,
		data,
		indexedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", entry.Key, err)
	}
	return nil
}

// All returns every indexed entry in insertion order.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT chapter_id, sequence, version_type, snippet, embedding, indexed_at FROM vectors ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			typeStr   string
			data      []byte
			indexedAt string
		)
		if err := rows.Scan(&entry.Key.ChapterID, &entry.Key.Sequence, &typeStr, &entry.Snippet, &data, &indexedAt); err != nil {
			return nil, err
		}
		entry.VersionType = versions.Type(typeStr)
		if entry.Vector, err = decodeVector(data); err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, indexedAt); err == nil {
			entry.IndexedAt = parsed
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of indexed entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM vectors`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return count, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
