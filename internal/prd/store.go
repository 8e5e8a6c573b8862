package prd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"loom/internal/config"
	"loom/internal/services"
)

// Store manages document persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the document database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir(), "documents.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
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

const documentColumns = "id, title, status, content, created_at, updated_at, archived"

// Create inserts a new draft document.
func (s *Store) Create(ctx context.Context, title, content string) (*Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "", "create document", "title required", nil)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO documents (title, status, content, created_at, updated_at, archived)
         VALUES (?, ?, ?, ?, ?, 0)`,
		title,
		StatusDraft,
		content,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a document by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// List returns documents ordered by id, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateContent replaces a document's title and content.
func (s *Store) UpdateContent(ctx context.Context, id int64, title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return services.Wrap(services.ErrValidation, "", "update document", "title required", nil)
	}
	return s.update(ctx, id, `UPDATE documents SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		title, content, time.Now().UTC().Format(time.RFC3339Nano), id)
}

// SetStatus commits a status value. Callers are expected to be the workflow
// engine or the administrative override path; the store only checks that the
// value is a known status.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return services.Wrap(services.ErrValidation, "", "set status", fmt.Sprintf("unknown status %q", status), nil)
	}
	return s.update(ctx, id, `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), id)
}

// Archive marks a document archived without deleting its history.
func (s *Store) Archive(ctx context.Context, id int64) error {
	return s.update(ctx, id, `UPDATE documents SET archived = 1, status = ?, updated_at = ? WHERE id = ?`,
		StatusArchived, time.Now().UTC().Format(time.RFC3339Nano), id)
}

// Counts aggregates document totals per lifecycle status.
func (s *Store) Counts(ctx context.Context) (CountSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM documents GROUP BY status`)
	if err != nil {
		return CountSummary{}, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	var summary CountSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return CountSummary{}, fmt.Errorf("scan count: %w", err)
		}
		summary.Total += count
		switch status {
		case StatusDraft:
			summary.Draft = count
		case StatusInReview:
			summary.InReview = count
		case StatusApproved:
			summary.Approved = count
		case StatusInProgress:
			summary.InProgress = count
		case StatusComplete:
			summary.Complete = count
		case StatusArchived:
			summary.Archived = count
		}
	}
	return summary, rows.Err()
}

func (s *Store) update(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "update", fmt.Sprintf("document %d", id), nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var status string
	var createdAt, updatedAt string
	var archived int
	if err := row.Scan(&doc.ID, &doc.Title, &status, &doc.Content, &createdAt, &updatedAt, &archived); err != nil {
		return nil, err
	}
	doc.Status = Status(status)
	doc.Archived = archived != 0
	doc.CreatedAt = parseTimestamp(createdAt)
	doc.UpdatedAt = parseTimestamp(updatedAt)
	return &doc, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
