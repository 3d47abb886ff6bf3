package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/editor"
)

type refKind int

const (
	refCard refKind = iota
	refMeaning
	refIdiom
)

// fieldRef addresses one editable field of the draft
type fieldRef struct {
	kind  refKind
	index int
	name  string
}

var (
	meaningFields = []string{"translate", "definition", "example", "image"}
	idiomFields   = []string{"idiom", "meaning", "usage", "example"}
)

// formFields lists the draft's fields in display order. Pronunciation moves from the card to
// each meaning in multi-voice mode.
func formFields(d editor.Draft) []fieldRef {
	refs := []fieldRef{{kind: refCard, name: "word"}}
	if !d.MultiVoice {
		refs = append(refs, fieldRef{kind: refCard, name: "pronunciation"})
	}
	refs = append(refs,
		fieldRef{kind: refCard, name: "color"},
		fieldRef{kind: refCard, name: "multiVoice"},
	)

	for i := range d.Means {
		for _, name := range meaningFields {
			refs = append(refs, fieldRef{kind: refMeaning, index: i, name: name})
		}
		if d.MultiVoice {
			refs = append(refs, fieldRef{kind: refMeaning, index: i, name: "pronunciation"})
		}
	}
	for i := range d.Idioms {
		for _, name := range idiomFields {
			refs = append(refs, fieldRef{kind: refIdiom, index: i, name: name})
		}
	}
	return refs
}

// editable reports whether the field is typed into, as opposed to toggled or picked
func (r fieldRef) editable() bool {
	if r.kind == refCard {
		return r.name != "color" && r.name != "multiVoice"
	}
	return !r.isImage()
}

func (r fieldRef) isImage() bool {
	return r.kind == refMeaning && r.name == "image"
}

func (r fieldRef) value(d editor.Draft) string {
	switch r.kind {
	case refCard:
		switch r.name {
		case "word":
			return d.Word
		case "pronunciation":
			return d.Pronunciation
		case "color":
			return d.Color
		case "multiVoice":
			return strconv.FormatBool(d.MultiVoice)
		}
	case refMeaning:
		if r.index >= len(d.Means) {
			return ""
		}
		m := d.Means[r.index]
		switch r.name {
		case "translate":
			return m.Translate
		case "definition":
			return m.Definition
		case "example":
			return m.Example
		case "image":
			return m.Image
		case "pronunciation":
			return m.Pronunciation
		}
	case refIdiom:
		if r.index >= len(d.Idioms) {
			return ""
		}
		i := d.Idioms[r.index]
		switch r.name {
		case "idiom":
			return i.Idiom
		case "meaning":
			return i.Meaning
		case "usage":
			return i.Usage
		case "example":
			return i.Example
		}
	}
	return ""
}

// set writes value through the editor so its update rules apply
func (r fieldRef) set(ed *editor.Editor, value string) error {
	switch r.kind {
	case refCard:
		return ed.SetCardField(r.name, value)
	case refMeaning:
		return ed.SetField(editor.KindMeaning, r.index, r.name, value)
	default:
		return ed.SetField(editor.KindIdiom, r.index, r.name, value)
	}
}

// path matches the field names reported in validation errors
func (r fieldRef) path() string {
	switch r.kind {
	case refMeaning:
		return fmt.Sprintf("means[%d].%s", r.index, r.name)
	case refIdiom:
		return fmt.Sprintf("idioms[%d].%s", r.index, r.name)
	default:
		return r.name
	}
}

func (r fieldRef) label() string {
	name := r.name
	if name == "multiVoice" {
		name = "multi-voice"
	}
	switch r.kind {
	case refMeaning:
		return fmt.Sprintf("Meaning %d %s", r.index+1, name)
	case refIdiom:
		return fmt.Sprintf("Idiom %d %s", r.index+1, name)
	default:
		return strings.ToUpper(name[:1]) + name[1:]
	}
}

// nextColor returns the palette swatch after current, wrapping around
func nextColor(current string, step int) string {
	at := 0
	for i, c := range db.Palette {
		if strings.EqualFold(c, current) {
			at = i
			break
		}
	}
	n := len(db.Palette)
	return db.Palette[((at+step)%n+n)%n]
}

// droppedPath turns what a terminal pastes for a dragged file into a path:
// surrounding quotes, a file:// prefix and backslash-escaped spaces are removed.
func droppedPath(raw string) string {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
		p = p[1 : len(p)-1]
	}
	if strings.HasPrefix(p, "file://") {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
		}
	}
	return strings.ReplaceAll(p, `\ `, " ")
}
