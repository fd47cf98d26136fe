package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
	"github.com/conorfennell/knolreview/internal/schedule"
)

// Store is the persistence collaborator. Save receives the whole deck.
type Store interface {
	Load(ctx context.Context) ([]domain.Card, error)
	Save(ctx context.Context, deck []domain.Card) error
}

// ReviewRecorder is implemented by stores that keep a review history.
type ReviewRecorder interface {
	RecordReview(ctx context.Context, entry domain.ReviewLog) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// Result is the outcome of a committed response.
type Result struct {
	Session Session
	Card    domain.Card
	Update  schedule.CardUpdate
	// SaveErr is set when the store rejected the write. The session has
	// advanced regardless.
	SaveErr error
}

// Controller drives one review session at a time against a Store.
type Controller struct {
	store  Store
	clock  Clock
	params *schedule.Params
	logger *slog.Logger

	mu      sync.Mutex
	deck    []domain.Card
	session *Session
}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(c Clock) Option { return func(ctl *Controller) { ctl.clock = c } }

func WithParams(p *schedule.Params) Option { return func(ctl *Controller) { ctl.params = p } }

func WithLogger(l *slog.Logger) Option { return func(ctl *Controller) { ctl.logger = l } }

// NewController returns a Controller with no active session.
func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		clock:  SystemClock,
		params: schedule.DefaultParams(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params returns the scheduling parameters in use.
func (c *Controller) Params() *schedule.Params {
	return c.params
}

// Now returns the controller clock's current time.
func (c *Controller) Now() time.Time {
	return c.clock.Now()
}

// Start loads the deck and begins a new session over its due cards,
// replacing any session in progress.
func (c *Controller) Start(ctx context.Context) (Session, error) {
	deck, err := c.store.Load(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load deck: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := StartWithParams(c.params, deck, c.clock.Now())
	c.deck = deck
	c.session = &s
	c.logger.Info("review session started", "session", s.ID, "deck", len(deck), "due", len(s.Queue))
	return s, nil
}

// Session returns the active session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Abandon drops the active session. Responses already given stay saved.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.logger.Info("review session abandoned", "session", c.session.ID, "reviewed", c.session.Tally.Reviewed)
	}
	c.session = nil
	c.deck = nil
}

// Reveal shows the back of the current card.
func (c *Controller) Reveal() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, ErrNoSession
	}
	s, err := Reveal(*c.session)
	if err != nil {
		return s, err
	}
	c.session = &s
	return s, nil
}

// Respond answers the current card, which must be cardID. The updated
// card is written into the deck and the deck is saved before returning.
// A failed save is logged and reported in Result.SaveErr; it does not
// hold the session back.
func (c *Controller) Respond(ctx context.Context, cardID string, correct bool) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Result{}, ErrNoSession
	}
	current, ok := c.session.Current()
	if !ok {
		return Result{Session: *c.session}, ErrSessionComplete
	}
	deckIndex := c.indexOf(cardID)
	if deckIndex < 0 {
		return Result{Session: *c.session}, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}
	if current.ID != cardID {
		return Result{Session: *c.session}, fmt.Errorf("%w: got %q, reviewing %q", ErrCardMismatch, cardID, current.ID)
	}

	now := c.clock.Now()
	next, updated, update, err := Respond(*c.session, correct, now)
	if err != nil {
		return Result{Session: *c.session}, err
	}

	c.deck[deckIndex] = updated
	c.session = &next

	res := Result{Session: next, Card: updated, Update: update}
	if err := c.store.Save(ctx, c.deck); err != nil {
		c.logger.Error("failed to save deck", "session", next.ID, "card", cardID, "error", err)
		res.SaveErr = err
	}
	if rec, ok := c.store.(ReviewRecorder); ok {
		entry := domain.ReviewLog{
			CardID:    cardID,
			Timestamp: now,
			Correct:   correct,
			Bucket:    string(update.Bucket),
			NextDue:   update.NextReviewAt,
		}
		if err := rec.RecordReview(ctx, entry); err != nil {
			c.logger.Warn("failed to record review", "card", cardID, "error", err)
		}
	}

	c.logger.Debug("card reviewed",
		"session", next.ID,
		"card", cardID,
		"correct", correct,
		"bucket", update.Bucket,
		"next_review", update.NextReviewAt,
	)
	if next.State == StateComplete {
		c.logger.Info("review session complete",
			"session", next.ID,
			"reviewed", next.Tally.Reviewed,
			"correct", next.Tally.Correct,
			"incorrect", next.Tally.Incorrect,
		)
	}
	return res, nil
}

func (c *Controller) indexOf(id string) int {
	for i, card := range c.deck {
		if card.ID == id {
			return i
		}
	}
	return -1
}
