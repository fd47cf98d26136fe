package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64        `json:"id"`
	Path        string       `json:"path"`
	Type        string       `json:"type"`
	LastScanned sql.NullTime `json:"-"`
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	if err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Source{}, fmt.Errorf("source %s: %w", path, ErrNotFound)
		}
		return Source{}, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return s, nil
}

// AllSources retrieves all stored sources from the database.
func (db *DB) AllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned sets the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, at.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and the ingested cards that came from it.
// Student-created cards are kept and detached.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of source ID %d: %w", sourceID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %d: %w", sourceID, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM review_log WHERE card_id IN (
			SELECT id FROM cards WHERE source_id = ? AND created_by_student = 0
		)
	`, sourceID); err != nil {
		return fmt.Errorf("failed to delete review log for source ID %d: %w", sourceID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cards WHERE source_id = ? AND created_by_student = 0`, sourceID); err != nil {
		return fmt.Errorf("failed to delete cards for source ID %d: %w", sourceID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET source_id = NULL WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to detach cards from source ID %d: %w", sourceID, err)
	}
	return tx.Commit()
}
