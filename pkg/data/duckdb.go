package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb/v2"
)

func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          VARCHAR PRIMARY KEY,
		comic       VARCHAR NOT NULL,
		source      VARCHAR NOT NULL,
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		issues      INTEGER DEFAULT 0,
		failed      INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS archives (
		run_id      VARCHAR NOT NULL,
		comic       VARCHAR NOT NULL,
		issue       VARCHAR NOT NULL,
		path        VARCHAR,
		state       VARCHAR NOT NULL,
		pages       INTEGER DEFAULT 0,
		dropped     INTEGER DEFAULT 0,
		error       VARCHAR,
		recorded_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Repository keeps a history of runs and the archives they produced. It is
// informational only: an archive on disk is what marks an issue complete.
type Repository struct {
	db *sql.DB
}

// ArchiveRecord is one processed issue as stored in the history.
type ArchiveRecord struct {
	RunID      string
	Comic      string
	Issue      string
	Path       string
	State      IssueState
	Pages      int
	Dropped    int
	Error      string
	RecordedAt time.Time
}

// NewDuckDBRepository opens (or creates) the history database at path.
func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// StartRun registers a new run and returns its id.
func (r *Repository) StartRun(comic, source string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(
		`INSERT INTO runs (id, comic, source, started_at) VALUES (?, ?, ?, ?)`,
		id, comic, source, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the totals of a finished run.
func (r *Repository) FinishRun(runID string, issues, failed int) error {
	_, err := r.db.Exec(
		`UPDATE runs SET finished_at = ?, issues = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), issues, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordIssue appends the outcome of one issue to the history.
func (r *Repository) RecordIssue(runID, comic string, result IssueResult) error {
	var errText sql.NullString
	if result.Err != nil {
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}
	_, err := r.db.Exec(
		`INSERT INTO archives (run_id, comic, issue, path, state, pages, dropped, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, comic, result.Issue.Name, result.ArchivePath, string(result.State),
		result.Pages, result.Dropped, errText, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record issue %s: %w", result.Issue.Name, err)
	}
	return nil
}

// ListArchives returns recorded issues, newest first. An empty comic lists all.
func (r *Repository) ListArchives(comic string) ([]*ArchiveRecord, error) {
	query := `SELECT run_id, comic, issue, COALESCE(path, ''), state, pages, dropped,
		COALESCE(error, ''), recorded_at FROM archives`
	var args []any
	if comic != "" {
		query += ` WHERE comic = ?`
		args = append(args, comic)
	}
	query += ` ORDER BY recorded_at DESC, issue DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archives: %w", err)
	}
	defer rows.Close()

	var records []*ArchiveRecord
	for rows.Next() {
		rec := &ArchiveRecord{}
		var state string
		if err := rows.Scan(&rec.RunID, &rec.Comic, &rec.Issue, &rec.Path, &state,
			&rec.Pages, &rec.Dropped, &rec.Error, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive: %w", err)
		}
		rec.State = IssueState(state)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountRuns returns how many runs were recorded for a comic.
func (r *Repository) CountRuns(comic string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE comic = ?`, comic).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
