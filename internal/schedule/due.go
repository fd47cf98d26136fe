package schedule

import (
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
)

// IsDue reports whether a card may be reviewed at now. A card that was
// never scheduled is always due, and the boundary is inclusive.
func IsDue(card domain.Card, now time.Time) bool {
	return card.NextReviewAt == nil || !card.NextReviewAt.After(now)
}

// SelectDue returns the due cards of deck in their original order.
func SelectDue(deck []domain.Card, now time.Time) []domain.Card {
	due := make([]domain.Card, 0, len(deck))
	for _, card := range deck {
		if IsDue(card, now) {
			due = append(due, card)
		}
	}
	return due
}
