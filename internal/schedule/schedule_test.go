package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestNextReviewScenarios(t *testing.T) {
	testCases := []struct {
		name    string
		card    domain.Card
		correct bool
		want    CardUpdate
	}{
		{
			name:    "new card answered correctly lands in review",
			card:    domain.Card{ID: "a"},
			correct: true,
			want: CardUpdate{
				NextReviewAt:   now.Add(24 * time.Hour),
				LastReviewedAt: now,
				CorrectCount:   1,
				Bucket:         Review,
			},
		},
		{
			name:    "third correct attempt is mastered",
			card:    domain.Card{ID: "a", CorrectCount: 2},
			correct: true,
			want: CardUpdate{
				NextReviewAt:   now.Add(72 * time.Hour),
				LastReviewedAt: now,
				CorrectCount:   3,
				Bucket:         Mastered,
			},
		},
		{
			name:    "incorrect on a mastered card forces learning",
			card:    domain.Card{ID: "a", CorrectCount: 5},
			correct: false,
			want: CardUpdate{
				NextReviewAt:   now.Add(time.Hour),
				LastReviewedAt: now,
				CorrectCount:   5,
				IncorrectCount: 1,
				Bucket:         Learning,
			},
		},
		{
			name:    "new card answered incorrectly",
			card:    domain.Card{ID: "a"},
			correct: false,
			want: CardUpdate{
				NextReviewAt:   now.Add(time.Hour),
				LastReviewedAt: now,
				IncorrectCount: 1,
				Bucket:         Learning,
			},
		},
		{
			name:    "half right is review",
			card:    domain.Card{ID: "a", CorrectCount: 1, IncorrectCount: 2},
			correct: true,
			want: CardUpdate{
				NextReviewAt:   now.Add(24 * time.Hour),
				LastReviewedAt: now,
				CorrectCount:   2,
				IncorrectCount: 2,
				Bucket:         Review,
			},
		},
		{
			name:    "low success rate stays learning even when correct",
			card:    domain.Card{ID: "a", IncorrectCount: 3},
			correct: true,
			want: CardUpdate{
				NextReviewAt:   now.Add(time.Hour),
				LastReviewedAt: now,
				CorrectCount:   1,
				IncorrectCount: 3,
				Bucket:         Learning,
			},
		},
		{
			name:    "exactly eighty percent is mastered",
			card:    domain.Card{ID: "a", CorrectCount: 3, IncorrectCount: 1},
			correct: true,
			want: CardUpdate{
				NextReviewAt:   now.Add(72 * time.Hour),
				LastReviewedAt: now,
				CorrectCount:   4,
				IncorrectCount: 1,
				Bucket:         Mastered,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextReview(tc.card, tc.correct, now)
			if err != nil {
				t.Fatalf("NextReview() returned an unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("NextReview() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNextReviewIncorrectIsAlwaysOneHour(t *testing.T) {
	for correct := 0; correct <= 12; correct++ {
		for incorrect := 0; incorrect <= 12; incorrect++ {
			card := domain.Card{ID: "a", CorrectCount: correct, IncorrectCount: incorrect}
			got, err := NextReview(card, false, now)
			if err != nil {
				t.Fatalf("NextReview(%d,%d) returned an unexpected error: %v", correct, incorrect, err)
			}
			if !got.NextReviewAt.Equal(now.Add(time.Hour)) {
				t.Errorf("card (%d,%d): expected next review in 1h, got %v", correct, incorrect, got.NextReviewAt.Sub(now))
			}
			if got.IncorrectCount != incorrect+1 || got.CorrectCount != correct {
				t.Errorf("card (%d,%d): counters became (%d,%d)", correct, incorrect, got.CorrectCount, got.IncorrectCount)
			}
		}
	}
}

func TestNextReviewNeverBeforeLastReview(t *testing.T) {
	for _, correct := range []bool{true, false} {
		got, err := NextReview(domain.Card{ID: "a", CorrectCount: 7, IncorrectCount: 1}, correct, now)
		if err != nil {
			t.Fatalf("NextReview() returned an unexpected error: %v", err)
		}
		if got.NextReviewAt.Before(got.LastReviewedAt) {
			t.Errorf("next review %v is before last review %v", got.NextReviewAt, got.LastReviewedAt)
		}
	}
}

func TestNextReviewRejectsInvalidInput(t *testing.T) {
	t.Run("negative counter", func(t *testing.T) {
		_, err := NextReview(domain.Card{ID: "a", CorrectCount: -1}, true, now)
		if !errors.Is(err, domain.ErrInvalidCard) {
			t.Errorf("Expected ErrInvalidCard, got %v", err)
		}
	})

	t.Run("zero time", func(t *testing.T) {
		_, err := NextReview(domain.Card{ID: "a"}, true, time.Time{})
		if !errors.Is(err, ErrInvalidTime) {
			t.Errorf("Expected ErrInvalidTime, got %v", err)
		}
	})
}

func TestCardUpdateApply(t *testing.T) {
	card := domain.Card{ID: "a", Front: "f", Back: "b", Category: "c", CorrectCount: 2}
	update, err := NextReview(card, true, now)
	if err != nil {
		t.Fatalf("NextReview() returned an unexpected error: %v", err)
	}

	got := update.Apply(card)
	if got.Front != "f" || got.Back != "b" || got.Category != "c" {
		t.Errorf("Apply changed content fields: %+v", got)
	}
	if got.CorrectCount != 3 || !got.NextReviewAt.Equal(now.Add(72*time.Hour)) || !got.LastReviewedAt.Equal(now) {
		t.Errorf("Apply did not copy scheduling fields: %+v", got)
	}
	if card.NextReviewAt != nil {
		t.Error("Apply mutated the original card")
	}
}

func TestCustomParams(t *testing.T) {
	p := DefaultParams()
	p.MasteredMinAttempts = 1
	p.MasteredInterval = 96 * time.Hour

	got, err := p.NextReview(domain.Card{ID: "a"}, true, now)
	if err != nil {
		t.Fatalf("NextReview() returned an unexpected error: %v", err)
	}
	if got.Bucket != Mastered || !got.NextReviewAt.Equal(now.Add(96*time.Hour)) {
		t.Errorf("Expected mastered in 96h, got %s in %v", got.Bucket, got.NextReviewAt.Sub(now))
	}
}
