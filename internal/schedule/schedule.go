// Package schedule implements the three-bucket spaced-repetition model:
// which cards are due, when a card is seen next after a response, and
// what mastery level a learner has reached on it.
//
// Every function here is pure and deterministic given its arguments.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
)

// ErrInvalidTime is returned when a zero timestamp is passed as "now".
var ErrInvalidTime = errors.New("invalid review time")

// Bucket is the scheduling class a response lands a card in.
type Bucket string

const (
	Learning Bucket = "learning"
	Review   Bucket = "review"
	Mastered Bucket = "mastered"
)

// Params holds the thresholds and intervals of the bucket model.
type Params struct {
	MasteredRate        float64       // minimum success rate for the mastered bucket
	MasteredMinAttempts int           // minimum attempts before a card can be mastered
	ReviewRate          float64       // minimum success rate for the review bucket
	LearningInterval    time.Duration
	ReviewInterval      time.Duration
	MasteredInterval    time.Duration
}

// DefaultParams returns the standard model: 80% over at least three
// attempts is mastered (72h), 50% is review (24h), anything else is
// learning (1h).
func DefaultParams() *Params {
	return &Params{
		MasteredRate:        0.8,
		MasteredMinAttempts: 3,
		ReviewRate:          0.5,
		LearningInterval:    time.Hour,
		ReviewInterval:      24 * time.Hour,
		MasteredInterval:    72 * time.Hour,
	}
}

// Interval returns the fixed delay for a bucket.
func (p *Params) Interval(b Bucket) time.Duration {
	switch b {
	case Mastered:
		return p.MasteredInterval
	case Review:
		return p.ReviewInterval
	default:
		return p.LearningInterval
	}
}

// CardUpdate is the set of scheduling fields produced by a response.
type CardUpdate struct {
	NextReviewAt   time.Time
	LastReviewedAt time.Time
	CorrectCount   int
	IncorrectCount int
	Bucket         Bucket
}

// Apply returns a copy of card with the update written into it.
func (u CardUpdate) Apply(card domain.Card) domain.Card {
	next, last := u.NextReviewAt, u.LastReviewedAt
	card.NextReviewAt = &next
	card.LastReviewedAt = &last
	card.CorrectCount = u.CorrectCount
	card.IncorrectCount = u.IncorrectCount
	return card
}

// bucketFor picks the first matching bucket for a success rate and attempt count.
func (p *Params) bucketFor(correct, attempts int) Bucket {
	rate := float64(correct) / float64(attempts)
	switch {
	case rate >= p.MasteredRate && attempts >= p.MasteredMinAttempts:
		return Mastered
	case rate >= p.ReviewRate:
		return Review
	default:
		return Learning
	}
}

// NextReview computes the scheduling fields after a response to card at now.
//
// The success rate counts the current attempt. An incorrect response always
// lands in the learning bucket, however good the card's history is.
func (p *Params) NextReview(card domain.Card, correct bool, now time.Time) (CardUpdate, error) {
	if err := card.Validate(); err != nil {
		return CardUpdate{}, err
	}
	if now.IsZero() {
		return CardUpdate{}, fmt.Errorf("%w: zero time for card %q", ErrInvalidTime, card.ID)
	}

	correctCount, incorrectCount := card.CorrectCount, card.IncorrectCount
	if correct {
		correctCount++
	} else {
		incorrectCount++
	}

	bucket := p.bucketFor(correctCount, card.Attempts()+1)
	if !correct {
		bucket = Learning
	}

	return CardUpdate{
		NextReviewAt:   now.Add(p.Interval(bucket)),
		LastReviewedAt: now,
		CorrectCount:   correctCount,
		IncorrectCount: incorrectCount,
		Bucket:         bucket,
	}, nil
}

// NextReview schedules a response with DefaultParams.
func NextReview(card domain.Card, correct bool, now time.Time) (CardUpdate, error) {
	return DefaultParams().NextReview(card, correct, now)
}
