// Package viewer models a card as a sequence of faces and the flip between them.
package viewer

import (
	"time"

	"github.com/parsely/flipcards/internal/db"
)

// FlipDelay is how long a flip takes before the target face becomes current
const FlipDelay = 300 * time.Millisecond

// FaceKind identifies what a face shows
type FaceKind int

const (
	FaceMain FaceKind = iota
	FaceMeaning
	FaceIdioms
)

// Face is one side of a card
type Face struct {
	Kind    FaceKind
	Meaning int // index into Card.Means for FaceMeaning
}

// Faces lists a card's faces: the main face, one per meaning, then the idioms face when there are idioms
func Faces(card db.Card) []Face {
	faces := make([]Face, 0, len(card.Means)+2)
	faces = append(faces, Face{Kind: FaceMain})
	for i := range card.Means {
		faces = append(faces, Face{Kind: FaceMeaning, Meaning: i})
	}
	if len(card.Idioms) > 0 {
		faces = append(faces, Face{Kind: FaceIdioms})
	}
	return faces
}

// Transition is a pending flip. Seq identifies it for Commit; Deadline is when it should land.
type Transition struct {
	Target   int
	Seq      uint64
	Deadline time.Time
}

// FlipCard tracks the visible face of one card. At most one transition is in flight;
// requesting another supersedes it.
type FlipCard struct {
	Card    db.Card
	faces   []Face
	current int
	pending *Transition
	seq     uint64
}

// New creates a viewer on the main face of card
func New(card db.Card) *FlipCard {
	return &FlipCard{Card: card, faces: Faces(card)}
}

// GoToFace starts a flip to face i. Asking for the current face cancels any flip in progress
// and starts nothing, as does an index out of range.
func (f *FlipCard) GoToFace(i int, now time.Time) (Transition, bool) {
	if i < 0 || i >= len(f.faces) {
		return Transition{}, false
	}
	if i == f.current {
		f.pending = nil
		return Transition{}, false
	}

	f.seq++
	t := Transition{Target: i, Seq: f.seq, Deadline: now.Add(FlipDelay)}
	f.pending = &t
	return t, true
}

// Commit lands the pending flip if seq is still the current one. It reports whether the face changed.
func (f *FlipCard) Commit(seq uint64) bool {
	if f.pending == nil || f.pending.Seq != seq {
		return false
	}
	f.current = f.pending.Target
	f.pending = nil
	return true
}

// Advance commits the pending flip once its deadline has passed
func (f *FlipCard) Advance(now time.Time) bool {
	if f.pending == nil || now.Before(f.pending.Deadline) {
		return false
	}
	return f.Commit(f.pending.Seq)
}

// Reset flips back to the main face
func (f *FlipCard) Reset(now time.Time) (Transition, bool) {
	return f.GoToFace(0, now)
}

// Next flips to the following face, wrapping to the main face after the last
func (f *FlipCard) Next(now time.Time) (Transition, bool) {
	return f.GoToFace((f.target()+1)%len(f.faces), now)
}

// Prev flips to the previous face, wrapping to the last after the main face
func (f *FlipCard) Prev(now time.Time) (Transition, bool) {
	return f.GoToFace((f.target()-1+len(f.faces))%len(f.faces), now)
}

// target is where the card is heading: the pending face if flipping, else the current one
func (f *FlipCard) target() int {
	if f.pending != nil {
		return f.pending.Target
	}
	return f.current
}

// Flipping reports whether a transition is in flight
func (f *FlipCard) Flipping() bool {
	return f.pending != nil
}

// Current returns the index of the visible face
func (f *FlipCard) Current() int {
	return f.current
}

// Face returns the visible face
func (f *FlipCard) Face() Face {
	return f.faces[f.current]
}

// Len returns the number of faces
func (f *FlipCard) Len() int {
	return len(f.faces)
}
