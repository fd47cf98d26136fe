// Package knol derives card identifiers. Ingested cards are identified by
// a hash of their normalized content so that re-parsing the same notes
// yields the same ids; student-written cards get a random id.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/knolreview/internal/domain"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// idLength is the number of hex characters of the hash used as a card ID.
const idLength = 16

// Normalize concatenates the card's content after cleaning each part.
// Difficulty is left out so that re-grading a note keeps its progress.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	// Joined with newlines so "ab"+"c" and "a"+"bc" differ.
	return strings.Join([]string{
		normalizePart(card.Front),
		normalizePart(card.Back),
		normalizePart(card.Category),
	}, "\n")
}

// Hash returns the SHA-256 of the normalized card as a hex string.
func Hash(card domain.Card) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(Normalize(card))))
}

// ID returns the stable identifier of an ingested card.
func ID(card domain.Card) string {
	return Hash(card)[:idLength]
}

// NewStudentID returns a random identifier for a student-created card.
func NewStudentID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate card id: %w", err)
	}
	return "s_" + id, nil
}
