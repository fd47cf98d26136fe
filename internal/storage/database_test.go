package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
	"github.com/conorfennell/knolreview/internal/session"
	"github.com/google/go-cmp/cmp"
)

var (
	_ session.Store          = (*DB)(nil)
	_ session.ReviewRecorder = (*DB)(nil)
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadPreservesOrderAndFields(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	deck := []domain.Card{
		{ID: "z", Front: "last letter", Back: "z", Category: "alphabet", Difficulty: "easy"},
		{ID: "a", Front: "first letter", Back: "a", CorrectCount: 3, IncorrectCount: 1,
			LastReviewedAt: ptr(t0), NextReviewAt: ptr(t0.Add(72 * time.Hour)), CreatedByStudent: true},
	}
	if err := db.Save(ctx, deck); err != nil {
		t.Fatalf("Save() returned an unexpected error: %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if diff := cmp.Diff(deck, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Saving again updates in place without reordering.
	deck[0].IncorrectCount = 1
	deck[0].LastReviewedAt = ptr(t0)
	deck[0].NextReviewAt = ptr(t0.Add(time.Hour))
	if err := db.Save(ctx, deck); err != nil {
		t.Fatalf("Save() returned an unexpected error: %v", err)
	}
	got, err = db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if diff := cmp.Diff(deck, got); diff != "" {
		t.Errorf("Load() after update mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRejectsInvalidCards(t *testing.T) {
	db := openTestDB(t)
	err := db.Save(context.Background(), []domain.Card{{ID: "a", CorrectCount: -1}})
	if !errors.Is(err, domain.ErrInvalidCard) {
		t.Errorf("Expected ErrInvalidCard, got %v", err)
	}
}

func TestManageDeck(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	card := domain.Card{ID: "a", Front: "f", Back: "b", CorrectCount: 2, IncorrectCount: 1,
		LastReviewedAt: ptr(t0), NextReviewAt: ptr(t0.Add(24 * time.Hour))}
	if err := db.InsertCard(ctx, card); err != nil {
		t.Fatalf("InsertCard() returned an unexpected error: %v", err)
	}
	if err := db.InsertCard(ctx, card); err == nil {
		t.Error("Expected inserting a duplicate id to fail")
	}

	t.Run("reset progress", func(t *testing.T) {
		if err := db.ResetProgress(ctx, "a"); err != nil {
			t.Fatalf("ResetProgress() returned an unexpected error: %v", err)
		}
		got, err := db.FindCard(ctx, "a")
		if err != nil {
			t.Fatalf("FindCard() returned an unexpected error: %v", err)
		}
		if got.CorrectCount != 0 || got.IncorrectCount != 0 || got.NextReviewAt != nil || got.LastReviewedAt != nil {
			t.Errorf("Expected a fresh card, got %+v", got)
		}
		if got.Front != "f" {
			t.Errorf("Reset changed content: %+v", got)
		}
	})

	t.Run("review log", func(t *testing.T) {
		entry := domain.ReviewLog{CardID: "a", Timestamp: t0, Correct: true, Bucket: "review", NextDue: t0.Add(24 * time.Hour)}
		if err := db.RecordReview(ctx, entry); err != nil {
			t.Fatalf("RecordReview() returned an unexpected error: %v", err)
		}
		logs, err := db.ReviewsForCard(ctx, "a")
		if err != nil {
			t.Fatalf("ReviewsForCard() returned an unexpected error: %v", err)
		}
		if diff := cmp.Diff([]domain.ReviewLog{entry}, logs); diff != "" {
			t.Errorf("ReviewsForCard() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := db.DeleteCard(ctx, "a"); err != nil {
			t.Fatalf("DeleteCard() returned an unexpected error: %v", err)
		}
		if _, err := db.FindCard(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := db.DeleteCard(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
		if err := db.ResetProgress(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound on reset, got %v", err)
		}
	})
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.InsertSource(ctx, "/notes", SourceLocal)
	if err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}
	if _, err := db.InsertSource(ctx, "/notes", SourceLocal); err == nil {
		t.Error("Expected duplicate source path to fail")
	}

	s, err := db.FindSourceByPath(ctx, "/notes")
	if err != nil {
		t.Fatalf("FindSourceByPath() returned an unexpected error: %v", err)
	}
	if s.ID != id || s.Type != SourceLocal || s.LastScanned.Valid {
		t.Errorf("Unexpected source: %+v", s)
	}
	if err := db.UpdateSourceLastScanned(ctx, id, t0); err != nil {
		t.Fatalf("UpdateSourceLastScanned() returned an unexpected error: %v", err)
	}

	ingested := domain.Card{ID: "parsed", Front: "q", Back: "a", SourceID: id}
	student := domain.Card{ID: "mine", Front: "q2", Back: "a2", SourceID: id, CreatedByStudent: true}
	if err := db.Save(ctx, []domain.Card{ingested, student}); err != nil {
		t.Fatalf("Save() returned an unexpected error: %v", err)
	}
	bySource, err := db.CardsBySource(ctx, id)
	if err != nil || len(bySource) != 2 {
		t.Fatalf("Expected 2 cards for source, got %d (%v)", len(bySource), err)
	}

	if err := db.DeleteSource(ctx, id); err != nil {
		t.Fatalf("DeleteSource() returned an unexpected error: %v", err)
	}
	deck, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if len(deck) != 1 || deck[0].ID != "mine" || deck[0].SourceID != 0 {
		t.Errorf("Expected only the detached student card, got %+v", deck)
	}
	sources, err := db.AllSources(ctx)
	if err != nil || len(sources) != 0 {
		t.Errorf("Expected no sources, got %v (%v)", sources, err)
	}
	if _, err := db.FindSourceByPath(ctx, "/notes"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
