// Package review runs a shuffled pass over the stored cards.
package review

import (
	"math/rand/v2"

	"github.com/parsely/flipcards/internal/db"
)

// Session walks a shuffled copy of the cards. An empty session is valid and has no current card.
type Session struct {
	cards          []db.Card
	index          int
	showDefinition bool
}

// NewSession shuffles a copy of cards. A nil rng uses the global source.
func NewSession(cards []db.Card, rng *rand.Rand) *Session {
	s := &Session{cards: append([]db.Card(nil), cards...)}
	shuffle(s.cards, rng)
	return s
}

// shuffle is a Fisher-Yates shuffle
func shuffle(cards []db.Card, rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := intN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Empty reports whether there is nothing to review
func (s *Session) Empty() bool {
	return len(s.cards) == 0
}

// Current returns the card under review
func (s *Session) Current() (db.Card, bool) {
	if s.Empty() {
		return db.Card{}, false
	}
	return s.cards[s.index], true
}

// Next moves to the following card, wrapping after the last, and hides the definition
func (s *Session) Next() {
	s.showDefinition = false
	if s.Empty() {
		return
	}
	s.index = (s.index + 1) % len(s.cards)
}

// ToggleDefinition shows or hides the definition of the current card
func (s *Session) ToggleDefinition() {
	s.showDefinition = !s.showDefinition
}

// ShowDefinition reports whether the definition is visible
func (s *Session) ShowDefinition() bool {
	return s.showDefinition
}

// Position returns the 1-based position of the current card and the session length
func (s *Session) Position() (int, int) {
	if s.Empty() {
		return 0, 0
	}
	return s.index + 1, len(s.cards)
}

// Restart reshuffles and goes back to the first card
func (s *Session) Restart(rng *rand.Rand) {
	shuffle(s.cards, rng)
	s.index = 0
	s.showDefinition = false
}

// IDs returns the card IDs in review order
func (s *Session) IDs() []int64 {
	ids := make([]int64, len(s.cards))
	for i, c := range s.cards {
		ids[i] = c.ID
	}
	return ids
}

// Cards returns the cards in review order
func (s *Session) Cards() []db.Card {
	return append([]db.Card(nil), s.cards...)
}
