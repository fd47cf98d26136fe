// Package session walks a queue of due cards one at a time, applies
// responses through the schedule package and keeps per-session tallies.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
	"github.com/conorfennell/knolreview/internal/schedule"
	"github.com/google/uuid"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrSessionComplete = errors.New("session is complete")
	ErrUnknownCard     = errors.New("unknown card")
	ErrCardMismatch    = errors.New("card is not the current card")
)

// State is the position of a session in its review state machine.
type State string

const (
	StateFront    State = "reviewing.front"
	StateBack     State = "reviewing.back"
	StateComplete State = "complete"
)

// Tally counts the responses given during one session.
type Tally struct {
	Reviewed  int `json:"reviewed"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// Session is one pass through the due queue. It is a value: Reveal and
// Respond return a new Session and leave their argument untouched.
type Session struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	Queue     []domain.Card `json:"queue"`
	Index     int           `json:"index"`
	State     State         `json:"state"`
	Tally     Tally         `json:"tally"`

	params *schedule.Params
}

// Start builds a session over the cards of deck that are due at now.
func Start(deck []domain.Card, now time.Time) Session {
	return StartWithParams(schedule.DefaultParams(), deck, now)
}

// StartWithParams is Start with explicit scheduling parameters.
func StartWithParams(p *schedule.Params, deck []domain.Card, now time.Time) Session {
	s := Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		Queue:     schedule.SelectDue(deck, now),
		State:     StateFront,
		params:    p,
	}
	if len(s.Queue) == 0 {
		s.State = StateComplete
	}
	return s
}

// Current returns the card being reviewed, or false once complete.
func (s Session) Current() (domain.Card, bool) {
	if s.State == StateComplete || s.Index < 0 || s.Index >= len(s.Queue) {
		return domain.Card{}, false
	}
	return s.Queue[s.Index], true
}

// Remaining is the number of cards not yet answered.
func (s Session) Remaining() int {
	if s.State == StateComplete {
		return 0
	}
	return len(s.Queue) - s.Index
}

// Revealed reports whether the back of the current card is shown.
func (s Session) Revealed() bool {
	return s.State == StateBack
}

// Reveal flips the current card to its back. Revealing an already
// revealed card is a no-op.
func Reveal(s Session) (Session, error) {
	switch s.State {
	case StateComplete:
		return s, ErrSessionComplete
	case StateFront:
		s.State = StateBack
	}
	return s, nil
}

// Respond records a response to the current card. It returns the advanced
// session, the card with its new scheduling fields, and the update that
// produced it. Responding without revealing first is allowed.
func Respond(s Session, correct bool, now time.Time) (Session, domain.Card, schedule.CardUpdate, error) {
	card, ok := s.Current()
	if !ok {
		return s, domain.Card{}, schedule.CardUpdate{}, ErrSessionComplete
	}

	p := s.params
	if p == nil {
		p = schedule.DefaultParams()
	}
	update, err := p.NextReview(card, correct, now)
	if err != nil {
		return s, domain.Card{}, schedule.CardUpdate{}, fmt.Errorf("respond to card %q: %w", card.ID, err)
	}
	updated := update.Apply(card)

	queue := make([]domain.Card, len(s.Queue))
	copy(queue, s.Queue)
	queue[s.Index] = updated
	s.Queue = queue

	s.Tally.Reviewed++
	if correct {
		s.Tally.Correct++
	} else {
		s.Tally.Incorrect++
	}

	s.Index++
	if s.Index >= len(s.Queue) {
		s.State = StateComplete
	} else {
		s.State = StateFront
	}
	return s, updated, update, nil
}
