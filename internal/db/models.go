package db

import (
	"strings"
	"sync"
	"time"
)

// Palette is the fixed set of card swatches. The first entry is the default.
var Palette = []string{
	"#4F46E5",
	"#059669",
	"#DC2626",
	"#7C2D12",
	"#7C3AED",
	"#DB2777",
}

// DefaultColor is used when a card has no swatch set
const DefaultColor = "#4F46E5"

// DefaultDifficulty is stored on every new card
const DefaultDifficulty = "medium"

// Card represents a vocabulary card as stored in the card list
type Card struct {
	ID            int64      `json:"id"`
	Word          string     `json:"word"`
	Pronunciation string     `json:"pronunciation"`
	MultiVoice    bool       `json:"multiVoice,omitempty"`
	Means         []Meaning  `json:"means"`
	Idioms        []Idiom    `json:"Idioms"`
	Color         string     `json:"color"`
	CreatedAt     time.Time  `json:"createdAt"`
	ReviewCount   int        `json:"reviewCount"`
	LastReviewed  *time.Time `json:"lastReviewed"`
	Difficulty    string     `json:"difficulty"`
}

// Meaning is one sense of a card's word
type Meaning struct {
	Translate     string `json:"translate"`
	Definition    string `json:"definition"`
	Example       string `json:"example"`
	Image         string `json:"image"`
	Pronunciation string `json:"pronunciation,omitempty"`
}

// Idiom is an expression built around a card's word
type Idiom struct {
	Idiom   string `json:"idiom"`
	Meaning string `json:"meaning"`
	Usage   string `json:"usage"`
	Example string `json:"example"`
}

// IsPaletteColor reports whether color is one of the palette swatches
func IsPaletteColor(color string) bool {
	for _, c := range Palette {
		if strings.EqualFold(c, color) {
			return true
		}
	}
	return false
}

// NormalizeColor returns color if it belongs to the palette, DefaultColor otherwise
func NormalizeColor(color string) string {
	for _, c := range Palette {
		if strings.EqualFold(c, color) {
			return c
		}
	}
	return DefaultColor
}

// IDGenerator hands out card IDs based on the wall clock in milliseconds.
// IDs are strictly increasing even when two cards are created in the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

// Next returns a new ID derived from now
func (g *IDGenerator) Next(now time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe makes sure future IDs are greater than id (used after loading stored cards)
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
