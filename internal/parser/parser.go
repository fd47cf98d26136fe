// Package parser extracts cards from markdown notes.
//
// A card starts at a "Q:" line and may carry "A:" (answer), "C:" (category)
// and "D:" (difficulty) blocks. Blocks run until the next prefix, a "---"
// separator or the next question. Question and answer may span lines.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knolreview/internal/domain"
)

type field int

const (
	seeking field = iota
	readingFront
	readingBack
	readingCategory
	readingDifficulty
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", readingFront},
	{"A:", readingBack},
	{"C:", readingCategory},
	{"D:", readingDifficulty},
}

const separator = "---"

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

type cardBuilder struct {
	cards   []domain.Card
	current domain.Card
	state   field
	block   []string
}

// flushBlock stores the accumulated lines into the field being read.
func (b *cardBuilder) flushBlock() {
	if len(b.block) == 0 {
		return
	}
	content := strings.Join(b.block, "\n")
	switch b.state {
	case readingFront:
		b.current.Front = strings.TrimRight(content, "\n ")
	case readingBack:
		b.current.Back = strings.TrimRight(content, "\n ")
	case readingCategory:
		b.current.Category = strings.TrimSpace(content)
	case readingDifficulty:
		b.current.Difficulty = strings.ToLower(strings.TrimSpace(content))
	}
	b.block = nil
}

func (b *cardBuilder) finishCard() {
	b.flushBlock()
	if b.current.Front != "" {
		b.cards = append(b.cards, b.current)
	}
	b.current = domain.Card{}
	b.state = seeking
}

// Parse reads from an io.Reader and extracts all cards. Cards have no ID;
// callers derive one with knol.Hash.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	b := &cardBuilder{}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			b.finishCard()
			continue
		}

		matched := false
		for _, p := range prefixes {
			if !strings.HasPrefix(line, p.prefix) {
				continue
			}
			matched = true
			if p.field == readingFront && b.state != seeking {
				b.finishCard() // A new question always starts a new card
			}
			b.flushBlock()
			b.state = p.field
			b.block = append(b.block, strings.TrimPrefix(line[len(p.prefix):], " "))
			break
		}

		if !matched && b.state != seeking {
			b.block = append(b.block, line)
		}
	}

	b.finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.cards, nil
}
