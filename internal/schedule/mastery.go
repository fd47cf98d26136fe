package schedule

import "github.com/conorfennell/knolreview/internal/domain"

// Level is a lifetime proficiency label, independent of the scheduling bucket.
type Level string

const (
	LevelNew           Level = "New"
	LevelNeedsPractice Level = "NeedsPractice"
	LevelLearning      Level = "Learning"
	LevelMastered      Level = "Mastered"
)

// Mastery is the result of classifying a card.
type Mastery struct {
	Level Level `json:"level"`
	Stars int   `json:"stars"`
}

// Classify derives a mastery level from the card's cumulative counters.
// Unlike NextReview it never looks at the latest response: a single miss
// does not demote a card with a strong history.
func (p *Params) Classify(card domain.Card) Mastery {
	total := card.Attempts()
	if total <= 0 {
		return Mastery{Level: LevelNew, Stars: 0}
	}
	switch p.bucketFor(card.CorrectCount, total) {
	case Mastered:
		return Mastery{Level: LevelMastered, Stars: 3}
	case Review:
		return Mastery{Level: LevelLearning, Stars: 2}
	default:
		return Mastery{Level: LevelNeedsPractice, Stars: 1}
	}
}

// Classify classifies a card with DefaultParams.
func Classify(card domain.Card) Mastery {
	return DefaultParams().Classify(card)
}
