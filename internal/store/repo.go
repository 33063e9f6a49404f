package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ModifiedAt returns the stored modification time for id. found is false
// when no row exists.
func (db *DB) ModifiedAt(ctx context.Context, id string) (string, bool, error) {
	var modified string
	err := db.conn.QueryRowContext(ctx, `SELECT modified_at FROM records WHERE id = ?`, id).Scan(&modified)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: modified at: %w", err)
	}
	return modified, true, nil
}

// Get returns the full record for id, or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (*models.Record, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, created_at, modified_at, body, collection, attachments
		FROM records WHERE id = ?
	`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return r, nil
}

// UpsertAll inserts or fully replaces every record inside one transaction.
// Either all rows become visible or none do.
func (db *DB) UpsertAll(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &apperr.PersistenceError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, title, created_at, modified_at, body, collection, attachments, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			created_at  = excluded.created_at,
			modified_at = excluded.modified_at,
			body        = excluded.body,
			collection  = excluded.collection,
			attachments = excluded.attachments,
			synced_at   = excluded.synced_at
	`)
	if err != nil {
		return &apperr.PersistenceError{Op: "prepare upsert", Err: err}
	}
	defer stmt.Close()

	syncedAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		attachments := r.Attachments
		if attachments == nil {
			attachments = []models.Attachment{}
		}
		manifest, err := json.Marshal(attachments)
		if err != nil {
			return &apperr.PersistenceError{Op: "encode manifest " + r.ID, Err: err}
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.CreatedAt, r.ModifiedAt, r.Body, r.Collection, string(manifest), syncedAt,
		); err != nil {
			return &apperr.PersistenceError{Op: "upsert " + r.ID, Err: err}
		}
		if err := ftsUpsert(tx, r.ID, r.Title, r.Body); err != nil {
			return &apperr.PersistenceError{Op: "index " + r.ID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &apperr.PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

// List returns summaries ordered by most recently modified. An empty
// collection lists every record.
func (db *DB) List(ctx context.Context, collection string) ([]models.RecordSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, collection, created_at, modified_at, LENGTH(CAST(body AS BLOB)), attachments
		FROM records
		WHERE ? = '' OR collection = ?
		ORDER BY modified_at DESC
	`, collection, collection)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []models.RecordSummary{}
	for rows.Next() {
		var (
			s        models.RecordSummary
			manifest string
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Collection, &s.CreatedAt, &s.ModifiedAt, &s.BodySize, &manifest); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		attachments, err := decodeManifest(manifest)
		if err != nil {
			return nil, fmt.Errorf("store: list %s: %w", s.ID, err)
		}
		s.AttachmentCount = len(attachments)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Records returns full rows ordered by most recently modified.
func (db *DB) Records(ctx context.Context, collection string) ([]models.Record, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, created_at, modified_at, body, collection, attachments
		FROM records
		WHERE ? = '' OR collection = ?
		ORDER BY modified_at DESC
	`, collection, collection)
	if err != nil {
		return nil, fmt.Errorf("store: records: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: records: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		r        models.Record
		manifest string
	)
	if err := s.Scan(&r.ID, &r.Title, &r.CreatedAt, &r.ModifiedAt, &r.Body, &r.Collection, &manifest); err != nil {
		return nil, err
	}
	attachments, err := decodeManifest(manifest)
	if err != nil {
		return nil, err
	}
	r.Attachments = attachments
	return &r, nil
}

func decodeManifest(raw string) ([]models.Attachment, error) {
	out := []models.Attachment{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if out == nil {
		out = []models.Attachment{}
	}
	return out, nil
}
