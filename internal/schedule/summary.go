package schedule

import (
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
)

// Summary aggregates a deck for display.
type Summary struct {
	Total   int           `json:"total"`
	Due     int           `json:"due"`
	Stars   int           `json:"stars"`
	ByLevel map[Level]int `json:"byLevel"`
}

// Summarize counts due cards and mastery levels across deck.
func (p *Params) Summarize(deck []domain.Card, now time.Time) Summary {
	s := Summary{
		Total: len(deck),
		ByLevel: map[Level]int{
			LevelNew:           0,
			LevelNeedsPractice: 0,
			LevelLearning:      0,
			LevelMastered:      0,
		},
	}
	for _, card := range deck {
		if IsDue(card, now) {
			s.Due++
		}
		m := p.Classify(card)
		s.ByLevel[m.Level]++
		s.Stars += m.Stars
	}
	return s
}
