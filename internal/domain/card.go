package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidCard is returned when a card fails validation.
var ErrInvalidCard = errors.New("invalid card")

// Card is a single study item with cumulative performance counters and
// scheduling fields. Front and Back are opaque to the scheduler.
type Card struct {
	ID         string `json:"id" validate:"required"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`

	CorrectCount   int `json:"correctCount" validate:"gte=0"`
	IncorrectCount int `json:"incorrectCount" validate:"gte=0"`

	// LastReviewedAt is set on every response.
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
	// NextReviewAt is nil for a card that has never been scheduled,
	// which makes it due immediately.
	NextReviewAt *time.Time `json:"nextReviewAt,omitempty"`

	CreatedByStudent bool  `json:"createdByStudent"`
	SourceID         int64 `json:"sourceId,omitempty"`
}

// Attempts returns the number of responses recorded for the card.
func (c Card) Attempts() int {
	return c.CorrectCount + c.IncorrectCount
}

// IsNew reports whether the card has never been answered.
func (c Card) IsNew() bool {
	return c.Attempts() == 0
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the card invariants: a non-empty id, non-negative
// counters, and a next review time that is not before the last review.
func (c Card) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCard, c.ID, err)
	}
	if c.NextReviewAt != nil && c.LastReviewedAt != nil && c.NextReviewAt.Before(*c.LastReviewedAt) {
		return fmt.Errorf("%w %q: next review %s is before last review %s",
			ErrInvalidCard, c.ID, c.NextReviewAt.Format(time.RFC3339), c.LastReviewedAt.Format(time.RFC3339))
	}
	return nil
}

// ReviewLog records a single committed response to a card.
type ReviewLog struct {
	CardID    string    `json:"cardId"`
	Timestamp time.Time `json:"timestamp"`
	Correct   bool      `json:"correct"`
	Bucket    string    `json:"bucket"`
	NextDue   time.Time `json:"nextDue"`
}
