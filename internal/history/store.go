// Package history records backup run outcomes in a SQLite database so
// past runs can be listed, inspected, and pruned.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; old databases must be deleted or pruned by hand.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different
// release.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// ErrNotFound indicates no run with the requested id exists.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// Record is one backup run outcome.
type Record struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          string
	ArtifactPath    string
	ArtifactSize    int64
	ArtifactSHA256  string
	ItemCount       int
	AttachmentCount int
	ErrorMessage    string
}

// Duration returns the wall-clock length of the run.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
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

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Record inserts or replaces the outcome of one run.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return fmt.Errorf("record run: empty run id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
            run_id, started_at, finished_at, status,
            artifact_path, artifact_size, artifact_sha256,
            item_count, attachment_count, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.Status,
		nullableString(rec.ArtifactPath),
		rec.ArtifactSize,
		nullableString(rec.ArtifactSHA256),
		rec.ItemCount,
		rec.AttachmentCount,
		nullableString(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. A limit of zero or
// less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT run_id, started_at, finished_at, status,
        artifact_path, artifact_size, artifact_sha256,
        item_count, attachment_count, error_message
        FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, runID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, status,
        artifact_path, artifact_size, artifact_sha256,
        item_count, attachment_count, error_message
        FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rec, err
}

// Prune deletes runs that finished before the cutoff and returns the
// number removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE finished_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec          Record
		started      string
		finished     string
		artifactPath sql.NullString
		artifactSum  sql.NullString
		errorMessage sql.NullString
	)
	err := row.Scan(
		&rec.RunID, &started, &finished, &rec.Status,
		&artifactPath, &rec.ArtifactSize, &artifactSum,
		&rec.ItemCount, &rec.AttachmentCount, &errorMessage,
	)
	if err != nil {
		return Record{}, err
	}
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Record{}, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Record{}, fmt.Errorf("parse finished_at: %w", err)
	}
	rec.ArtifactPath = artifactPath.String
	rec.ArtifactSHA256 = artifactSum.String
	rec.ErrorMessage = errorMessage.String
	return rec, nil
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
