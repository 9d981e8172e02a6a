package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultLimit is used when Recent is called with a non-positive limit.
const DefaultLimit = 50

// History keeps an audit trail of cleanup actions in SQLite
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the audit database at dbPath
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			repo TEXT NOT NULL,
			deployment_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			message TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_repo_id
		ON actions(owner, repo, id DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordAction stores one audited action and returns its row id.
// CreatedAt defaults to now when unset.
func (h *History) RecordAction(ctx context.Context, record *Record) (int64, error) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO actions
		(owner, repo, deployment_id, action, outcome, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.Owner,
		record.Repo,
		record.DeploymentID,
		record.Action,
		record.Outcome,
		record.Message,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert action record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// Recent returns the latest actions newest first. An empty owner or repo
// lists actions across all repositories.
func (h *History) Recent(ctx context.Context, owner, repo string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if owner == "" || repo == "" {
		rows, err = h.db.QueryContext(ctx, `
			SELECT id, owner, repo, deployment_id, action, outcome, message, created_at
			FROM actions
			ORDER BY id DESC
			LIMIT ?
		`, limit)
	} else {
		rows, err = h.db.QueryContext(ctx, `
			SELECT id, owner, repo, deployment_id, action, outcome, message, created_at
			FROM actions
			WHERE owner = ? AND repo = ?
			ORDER BY id DESC
			LIMIT ?
		`, owner, repo, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query action history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var record Record
	var createdAtStr string

	err := s.Scan(
		&record.ID,
		&record.Owner,
		&record.Repo,
		&record.DeploymentID,
		&record.Action,
		&record.Outcome,
		&record.Message,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	record.CreatedAt = createdAt

	return &record, nil
}
