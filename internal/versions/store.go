package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"bookforge/internal/config"
	"bookforge/internal/services"
)

// Observer receives a copy of every committed version after the append
// transaction completes.
type Observer func(Version)

// Store manages chapter version persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	locks chapterLocks

	mu        sync.RWMutex
	observers []Observer
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the ledger at an explicit database path. Pragmas travel in
// the DSN so every pooled connection gets them; an Exec would configure only
// the one connection that served it, and concurrent appends on fresh
// connections would fail with SQLITE_BUSY instead of waiting.
func OpenPath(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Subscribe registers an observer for committed appends.
func (s *Store) Subscribe(observer Observer) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, observer)
	s.mu.Unlock()
}

// LockChapter acquires the single-writer critical section for a chapter and
// returns its release function. Writers for other chapters are unaffected.
func (s *Store) LockChapter(chapterID string) func() {
	return s.locks.acquire(chapterID)
}

// Append persists a new version for a chapter. The sequence number is
// assigned inside the insert statement so histories stay gapless under
// concurrent writers. Callers that need an authorization check to be atomic
// with the append hold LockChapter around both.
func (s *Store) Append(ctx context.Context, chapterID string, versionType Type, content, auxReference string) (*Version, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return nil, services.Wrap(services.ErrValidation, "versions", "append", "chapter id is empty", nil)
	}
	if strings.TrimSpace(content) == "" {
		return nil, services.Wrap(services.ErrValidation, "versions", "append", "content is empty", nil)
	}
	if _, ok := typeSet[versionType]; !ok {
		return nil, services.Wrap(services.ErrValidation, "versions", "append", fmt.Sprintf("unknown version type %q", versionType), nil)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chapter_versions (chapter_id, version_type, sequence, content, aux_reference, created_at)
         VALUES (?, ?, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM chapter_versions WHERE chapter_id = ?), ?, ?, ?)`,
		chapterID,
		versionType,
		chapterID,
		content,
		nullableString(auxReference),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	version, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notify(version)
	return version, nil
}

// ListVersions returns a chapter's history ordered by sequence. An unknown
// chapter yields an empty slice, not an error.
func (s *Store) ListVersions(ctx context.Context, chapterID string) ([]*Version, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+versionColumns+` FROM chapter_versions WHERE chapter_id = ? ORDER BY sequence`,
		chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var list []*Version
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, version)
	}
	return list, rows.Err()
}

// GetLatest returns the version with the greatest sequence among those of the
// given type, or ErrNotFound.
func (s *Store) GetLatest(ctx context.Context, chapterID string, versionType Type) (*Version, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+versionColumns+` FROM chapter_versions
         WHERE chapter_id = ? AND version_type = ?
         ORDER BY sequence DESC LIMIT 1`,
		chapterID,
		versionType,
	)
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "versions", "get latest",
			fmt.Sprintf("chapter %q has no %s version", chapterID, versionType), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest: %w", err)
	}
	return version, nil
}

// GetBySequence returns one version by ledger identity, or ErrNotFound.
func (s *Store) GetBySequence(ctx context.Context, chapterID string, sequence int64) (*Version, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+versionColumns+` FROM chapter_versions WHERE chapter_id = ? AND sequence = ?`,
		chapterID,
		sequence,
	)
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "versions", "get by sequence",
			fmt.Sprintf("no version %s#%d", chapterID, sequence), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get by sequence: %w", err)
	}
	return version, nil
}

// Scan returns up to limit versions with row id greater than afterID, in row
// id order, plus the cursor for the next call. It is the restartable
// iteration the semantic index uses to bootstrap.
func (s *Store) Scan(ctx context.Context, afterID int64, limit int) ([]*Version, int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+versionColumns+` FROM chapter_versions WHERE id > ? ORDER BY id LIMIT ?`,
		afterID,
		limit,
	)
	if err != nil {
		return nil, afterID, fmt.Errorf("scan versions: %w", err)
	}
	defer rows.Close()

	var list []*Version
	next := afterID
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, afterID, err
		}
		list = append(list, version)
		next = version.ID
	}
	return list, next, rows.Err()
}

// Chapters returns the distinct chapter ids present in the ledger.
func (s *Store) Chapters(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT chapter_id FROM chapter_versions ORDER BY chapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chapters = append(chapters, id)
	}
	return chapters, rows.Err()
}

// Stats returns a count of versions grouped by type.
func (s *Store) Stats(ctx context.Context) (map[Type]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version_type, COUNT(1) FROM chapter_versions GROUP BY version_type`)
	if err != nil {
		return nil, fmt.Errorf("version stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Type]int)
	for rows.Next() {
		var versionType Type
		var count int
		if err := rows.Scan(&versionType, &count); err != nil {
			return nil, err
		}
		stats[versionType] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the ledger database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat ledger database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("ledger database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping ledger database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'chapter_versions'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return health, nil
		}
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TableExists = true

	row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM chapter_versions")
	if err := row.Scan(&health.TotalVersions); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count versions: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func (s *Store) notify(version *Version) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, observer := range observers {
		observer(*version)
	}
}

func (s *Store) getByID(ctx context.Context, id int64) (*Version, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM chapter_versions WHERE id = ?`, id)
	version, err := scanVersion(row)
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

const versionColumns = "id, chapter_id, version_type, sequence, content, aux_reference, created_at"

func scanVersion(scanner interface{ Scan(dest ...any) error }) (*Version, error) {
	var (
		id        int64
		chapterID string
		typeStr   string
		sequence  int64
		content   string
		auxRef    sql.NullString
		createdAt sql.NullString
	)

	if err := scanner.Scan(&id, &chapterID, &typeStr, &sequence, &content, &auxRef, &createdAt); err != nil {
		return nil, err
	}

	version := &Version{
		ID:           id,
		ChapterID:    chapterID,
		Type:         Type(typeStr),
		Sequence:     sequence,
		Content:      content,
		AuxReference: auxRef.String,
	}
	if created, err := parseTimeString(createdAt.String); err == nil {
		version.CreatedAt = created
	}
	return version, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
