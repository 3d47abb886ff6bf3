package editor

import (
	"time"

	"github.com/google/uuid"

	"github.com/parsely/flipcards/internal/db"
)

// EntryKind selects which dynamic list of the draft an operation targets
type EntryKind int

const (
	KindMeaning EntryKind = iota
	KindIdiom
)

func (k EntryKind) String() string {
	switch k {
	case KindMeaning:
		return "meaning"
	case KindIdiom:
		return "idiom"
	default:
		return "unknown"
	}
}

// Draft is the in-progress card being edited. It is not validated until submit.
type Draft struct {
	Word          string         `json:"word" validate:"required"`
	Pronunciation string         `json:"pronunciation"`
	MultiVoice    bool           `json:"multiVoice"`
	Color         string         `json:"color"`
	Means         []MeaningEntry `json:"means" validate:"min=1,dive"`
	Idioms        []IdiomEntry   `json:"idioms" validate:"dive"`
}

// MeaningEntry is a meaning in the draft with a stable identity
type MeaningEntry struct {
	ID            string `json:"id,omitempty"`
	Translate     string `json:"translate"`
	Definition    string `json:"definition" validate:"required"`
	Example       string `json:"example"`
	Image         string `json:"image"`
	Pronunciation string `json:"pronunciation,omitempty"`
}

// IdiomEntry is an idiom in the draft with a stable identity
type IdiomEntry struct {
	ID      string `json:"id,omitempty"`
	Idiom   string `json:"idiom" validate:"required"`
	Meaning string `json:"meaning" validate:"required"`
	Usage   string `json:"usage"`
	Example string `json:"example"`
}

// NewDraft returns an empty draft with one blank meaning and one blank idiom
func NewDraft() Draft {
	return Draft{
		Color:  db.DefaultColor,
		Means:  []MeaningEntry{newMeaning()},
		Idioms: []IdiomEntry{newIdiom()},
	}
}

func newMeaning() MeaningEntry {
	return MeaningEntry{ID: uuid.New().String()}
}

func newIdiom() IdiomEntry {
	return IdiomEntry{ID: uuid.New().String()}
}

// clone returns a copy of d that shares no slices with it
func (d Draft) clone() Draft {
	out := d
	out.Means = append([]MeaningEntry(nil), d.Means...)
	out.Idioms = append([]IdiomEntry(nil), d.Idioms...)
	return out
}

// ensureIDs assigns IDs to entries that arrived without one (e.g. decoded from JSON)
func (d *Draft) ensureIDs() {
	for i := range d.Means {
		if d.Means[i].ID == "" {
			d.Means[i].ID = uuid.New().String()
		}
	}
	for i := range d.Idioms {
		if d.Idioms[i].ID == "" {
			d.Idioms[i].ID = uuid.New().String()
		}
	}
}

func (d Draft) meaningIndex(id string) int {
	for i, m := range d.Means {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// toCard builds the stored record. Per-meaning pronunciations only survive in multi-voice mode,
// and the card level pronunciation is dropped there.
func (d Draft) toCard(id int64, createdAt time.Time) db.Card {
	var card db.Card
	card.ID = id
	card.CreatedAt = createdAt
	card.Word = d.Word
	card.MultiVoice = d.MultiVoice
	card.Color = db.NormalizeColor(d.Color)
	card.Difficulty = db.DefaultDifficulty
	if !d.MultiVoice {
		card.Pronunciation = d.Pronunciation
	}

	card.Means = make([]db.Meaning, 0, len(d.Means))
	for _, m := range d.Means {
		meaning := db.Meaning{
			Translate:  m.Translate,
			Definition: m.Definition,
			Example:    m.Example,
			Image:      m.Image,
		}
		if d.MultiVoice {
			meaning.Pronunciation = m.Pronunciation
		}
		card.Means = append(card.Means, meaning)
	}

	card.Idioms = make([]db.Idiom, 0, len(d.Idioms))
	for _, i := range d.Idioms {
		card.Idioms = append(card.Idioms, db.Idiom{
			Idiom:   i.Idiom,
			Meaning: i.Meaning,
			Usage:   i.Usage,
			Example: i.Example,
		})
	}

	return card
}
