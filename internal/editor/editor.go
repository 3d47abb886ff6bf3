// Package editor holds the card draft being composed and the rules for turning it into a stored card.
//
// An Editor is meant to be driven from a single goroutine (the UI loop). The only work that leaves
// that goroutine is image decoding: AttachImage hands back an ImageTask that may run anywhere, and
// its ImageResult has to be brought back through ApplyImage, which drops results that no longer
// apply (entry removed, or a newer attach started for the same entry).
package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/imaging"
)

var (
	// ErrIndexOutOfRange is returned when an entry index does not exist
	ErrIndexOutOfRange = errors.New("entry index out of range")
	// ErrUnknownField is returned for field names the entry kind does not have
	ErrUnknownField = errors.New("unknown field")
)

// CardAppender is the part of the card store the editor submits into
type CardAppender interface {
	NextID(now time.Time) int64
	Append(card db.Card) error
}

type pendingImage struct {
	seq    uint64
	cancel context.CancelFunc
}

// Editor owns a Draft and applies edits to it
type Editor struct {
	draft   Draft
	decoder imaging.ImageDecoder
	pending map[string]pendingImage
	seq     uint64
	zone    DropZone
	now     func() time.Time
	log     *zap.Logger
}

// New creates an editor holding an empty draft
func New(decoder imaging.ImageDecoder, log *zap.Logger) *Editor {
	return FromDraft(NewDraft(), decoder, log)
}

// FromDraft creates an editor around an existing draft (e.g. one decoded from a request body)
func FromDraft(d Draft, decoder imaging.ImageDecoder, log *zap.Logger) *Editor {
	if decoder == nil {
		decoder = imaging.NewDecoder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	d = d.clone()
	d.ensureIDs()
	return &Editor{
		draft:   d,
		decoder: decoder,
		pending: make(map[string]pendingImage),
		now:     time.Now,
		log:     log,
	}
}

// Draft returns a copy of the current draft
func (e *Editor) Draft() Draft {
	return e.draft.clone()
}

// AddMeaning appends a blank meaning and returns its ID
func (e *Editor) AddMeaning() string {
	m := newMeaning()
	e.draft.Means = append(e.draft.clone().Means, m)
	return m.ID
}

// AddIdiom appends a blank idiom and returns its ID
func (e *Editor) AddIdiom() string {
	i := newIdiom()
	e.draft.Idioms = append(e.draft.clone().Idioms, i)
	return i.ID
}

// RemoveMeaning removes the meaning at index. It returns false for an index that does not exist.
// A pending image decode for the removed meaning is cancelled.
func (e *Editor) RemoveMeaning(index int) bool {
	if index < 0 || index >= len(e.draft.Means) {
		return false
	}
	e.cancelPending(e.draft.Means[index].ID)

	means := make([]MeaningEntry, 0, len(e.draft.Means)-1)
	means = append(means, e.draft.Means[:index]...)
	means = append(means, e.draft.Means[index+1:]...)
	e.draft.Means = means
	return true
}

// RemoveIdiom removes the idiom at index. It returns false for an index that does not exist.
func (e *Editor) RemoveIdiom(index int) bool {
	if index < 0 || index >= len(e.draft.Idioms) {
		return false
	}
	idioms := make([]IdiomEntry, 0, len(e.draft.Idioms)-1)
	idioms = append(idioms, e.draft.Idioms[:index]...)
	idioms = append(idioms, e.draft.Idioms[index+1:]...)
	e.draft.Idioms = idioms
	return true
}

// SetField sets one field of one meaning or idiom. The entry list is replaced rather than
// modified in place, so copies handed out earlier by Draft never change.
func (e *Editor) SetField(kind EntryKind, index int, field, value string) error {
	switch kind {
	case KindMeaning:
		if index < 0 || index >= len(e.draft.Means) {
			return fmt.Errorf("meaning %d: %w", index, ErrIndexOutOfRange)
		}
		means := append([]MeaningEntry(nil), e.draft.Means...)
		m := &means[index]
		switch field {
		case "translate":
			m.Translate = value
		case "definition":
			m.Definition = value
		case "example":
			m.Example = value
		case "image":
			e.cancelPending(m.ID)
			m.Image = value
		case "pronunciation":
			m.Pronunciation = value
		default:
			return fmt.Errorf("meaning field %q: %w", field, ErrUnknownField)
		}
		e.draft.Means = means

	case KindIdiom:
		if index < 0 || index >= len(e.draft.Idioms) {
			return fmt.Errorf("idiom %d: %w", index, ErrIndexOutOfRange)
		}
		idioms := append([]IdiomEntry(nil), e.draft.Idioms...)
		i := &idioms[index]
		switch field {
		case "idiom":
			i.Idiom = value
		case "meaning":
			i.Meaning = value
		case "usage":
			i.Usage = value
		case "example":
			i.Example = value
		default:
			return fmt.Errorf("idiom field %q: %w", field, ErrUnknownField)
		}
		e.draft.Idioms = idioms

	default:
		return fmt.Errorf("entry kind %d: %w", kind, ErrUnknownField)
	}
	return nil
}

// SetCardField sets a card level field: word, pronunciation, color or multiVoice
func (e *Editor) SetCardField(field, value string) error {
	switch field {
	case "word":
		e.draft.Word = value
	case "pronunciation":
		e.draft.Pronunciation = value
	case "color":
		if !db.IsPaletteColor(value) {
			return fmt.Errorf("color %q is not in the palette", value)
		}
		e.draft.Color = db.NormalizeColor(value)
	case "multiVoice":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("multiVoice: %w", err)
		}
		e.draft.MultiVoice = on
	default:
		return fmt.Errorf("card field %q: %w", field, ErrUnknownField)
	}
	return nil
}

// ClearImage removes the image from the meaning at index
func (e *Editor) ClearImage(index int) error {
	return e.SetField(KindMeaning, index, "image", "")
}

// ApplySuggestion replaces pronunciation, meanings and idioms with suggested values.
// The word, color and voice mode are kept.
func (e *Editor) ApplySuggestion(pronunciation string, means []db.Meaning, idioms []db.Idiom) {
	e.cancelAll()

	d := e.draft.clone()
	d.Pronunciation = pronunciation
	d.Means = make([]MeaningEntry, 0, len(means))
	for _, m := range means {
		entry := newMeaning()
		entry.Translate = m.Translate
		entry.Definition = m.Definition
		entry.Example = m.Example
		entry.Image = m.Image
		entry.Pronunciation = m.Pronunciation
		d.Means = append(d.Means, entry)
	}
	if len(d.Means) == 0 {
		d.Means = append(d.Means, newMeaning())
	}
	d.Idioms = make([]IdiomEntry, 0, len(idioms))
	for _, i := range idioms {
		entry := newIdiom()
		entry.Idiom = i.Idiom
		entry.Meaning = i.Meaning
		entry.Usage = i.Usage
		entry.Example = i.Example
		d.Idioms = append(d.Idioms, entry)
	}
	e.draft = d
}

// Submit validates the draft and, if it is valid, appends the resulting card to store and
// resets the draft. On any failure neither the store nor the draft changes.
func (e *Editor) Submit(store CardAppender) (db.Card, error) {
	if err := Validate(e.draft); err != nil {
		e.log.Debug("draft rejected", zap.Error(err))
		return db.Card{}, err
	}

	now := e.now()
	card := e.draft.toCard(store.NextID(now), now.UTC())
	if err := store.Append(card); err != nil {
		return db.Card{}, fmt.Errorf("failed to add card: %w", err)
	}

	e.Reset()
	return card, nil
}

// Reset discards the draft and any pending image decodes
func (e *Editor) Reset() {
	e.cancelAll()
	e.draft = NewDraft()
}

func (e *Editor) cancelPending(entryID string) {
	if p, ok := e.pending[entryID]; ok {
		p.cancel()
		delete(e.pending, entryID)
	}
}

func (e *Editor) cancelAll() {
	for id := range e.pending {
		e.cancelPending(id)
	}
}
