package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrNotFound is returned when a card or source does not exist.
var ErrNotFound = errors.New("not found")

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const cardColumns = `id, front, back, category, difficulty, correct_count, incorrect_count,
	last_reviewed_at, next_review_at, created_by_student, source_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c          domain.Card
		lastReview sql.NullTime
		nextReview sql.NullTime
		sourceID   sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Front,
		&c.Back,
		&c.Category,
		&c.Difficulty,
		&c.CorrectCount,
		&c.IncorrectCount,
		&lastReview,
		&nextReview,
		&c.CreatedByStudent,
		&sourceID,
	)
	if err != nil {
		return domain.Card{}, err
	}
	if lastReview.Valid {
		t := lastReview.Time.UTC()
		c.LastReviewedAt = &t
	}
	if nextReview.Valid {
		t := nextReview.Time.UTC()
		c.NextReviewAt = &t
	}
	if sourceID.Valid {
		c.SourceID = sourceID.Int64
	}
	return c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullSource(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// Load returns the whole deck in insertion order.
func (db *DB) Load(ctx context.Context) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	return cards, nil
}

// Save upserts every card of deck in one transaction. Cards missing from
// deck are left alone; removing cards is DeleteCard's job.
func (db *DB) Save(ctx context.Context, deck []domain.Card) error {
	for _, c := range deck {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			front = excluded.front,
			back = excluded.back,
			category = excluded.category,
			difficulty = excluded.difficulty,
			correct_count = excluded.correct_count,
			incorrect_count = excluded.incorrect_count,
			last_reviewed_at = excluded.last_reviewed_at,
			next_review_at = excluded.next_review_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save: %w", err)
	}
	defer stmt.Close()

	for _, c := range deck {
		if _, err := stmt.ExecContext(ctx, cardArgs(c)...); err != nil {
			return fmt.Errorf("failed to save card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

func cardArgs(c domain.Card) []any {
	return []any{
		c.ID,
		c.Front,
		c.Back,
		c.Category,
		c.Difficulty,
		c.CorrectCount,
		c.IncorrectCount,
		nullTime(c.LastReviewedAt),
		nullTime(c.NextReviewAt),
		c.CreatedByStudent,
		nullSource(c.SourceID),
	}
}

// InsertCard adds a new card to the end of the deck.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cardArgs(card)...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// FindCard retrieves a card by its id.
func (db *DB) FindCard(ctx context.Context, id string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return c, nil
}

// CardsBySource retrieves all cards ingested from a source.
func (db *DB) CardsBySource(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE source_id = ? ORDER BY seq`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for source ID %d: %w", sourceID, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// DeleteCard removes a card and its review history.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card with id %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_log WHERE card_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete review log for card %s: %w", id, err)
	}
	return tx.Commit()
}

// ResetProgress clears a card's counters and schedule, making it new again.
func (db *DB) ResetProgress(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET correct_count = 0, incorrect_count = 0, last_reviewed_at = NULL, next_review_at = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to reset progress for card %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordReview appends a committed response to the review log.
func (db *DB) RecordReview(ctx context.Context, entry domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_log (card_id, reviewed_at, correct, bucket, next_due)
		VALUES (?, ?, ?, ?, ?)
	`, entry.CardID, entry.Timestamp.UTC(), entry.Correct, entry.Bucket, entry.NextDue.UTC())
	if err != nil {
		return fmt.Errorf("failed to record review for card %s: %w", entry.CardID, err)
	}
	return nil
}

// ReviewsForCard returns a card's review history, oldest first.
func (db *DB) ReviewsForCard(ctx context.Context, id string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, reviewed_at, correct, bucket, next_due
		FROM review_log WHERE card_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for card %s: %w", id, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(&l.CardID, &l.Timestamp, &l.Correct, &l.Bucket, &l.NextDue); err != nil {
			return nil, fmt.Errorf("failed to scan review row for card %s: %w", id, err)
		}
		l.Timestamp = l.Timestamp.UTC()
		l.NextDue = l.NextDue.UTC()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
