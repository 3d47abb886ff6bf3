// Package tui is the interactive terminal front end: card editor, flip-card browser and review session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/ai"
	"github.com/parsely/flipcards/internal/core"
	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/editor"
	"github.com/parsely/flipcards/internal/imaging"
	"github.com/parsely/flipcards/internal/review"
	"github.com/parsely/flipcards/internal/viewer"
)

type view int

const (
	viewMenu view = iota
	viewEditor
	viewList
	viewCard
	viewReview
	viewInput
	viewLoading
	viewResults
)

type inputMode int

const (
	inputModeImportPath inputMode = iota
	inputModeExportPath
)

const defaultExportPath = "vocabulary_export.json"

var menuItems = []string{
	"Add card",
	"Browse cards",
	"Review",
	"Import document",
	"Export to JSON",
	"Exit",
}

// importResultMsg carries the result of an async document import
type importResultMsg struct {
	result *core.ImportResult
	err    error
}

// imageResultMsg carries a finished image decode back to the UI loop
type imageResultMsg struct {
	res editor.ImageResult
}

// flipMsg fires when a flip's delay has elapsed. It only lands on the viewer that started it.
type flipMsg struct {
	card *viewer.FlipCard
	seq  uint64
}

// suggestionMsg carries an AI suggestion for word
type suggestionMsg struct {
	word       string
	suggestion *ai.Suggestion
	err        error
}

// Model is the bubbletea model of the application
type Model struct {
	view    view
	cursor  int
	service *core.Service
	log     *zap.Logger
	ctx     context.Context

	editor     *editor.Editor
	focus      int
	formErr    error
	notice     string
	suggesting bool

	cards      []db.Card
	listCursor int
	card       *viewer.FlipCard

	session *review.Session

	result   *core.ImportResult
	exported string
	err      error

	input     textinput.Model
	inputMode inputMode
	spinner   spinner.Model
}

// New creates the model on the main menu
func New(ctx context.Context, service *core.Service, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		view:    viewMenu,
		service: service,
		log:     log,
		ctx:     ctx,
		editor:  service.NewEditor(),
		input:   textinput.New(),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case importResultMsg:
		m.result, m.err, m.exported = msg.result, msg.err, ""
		m.view = viewResults
		return m, nil

	case imageResultMsg:
		applied, err := m.editor.ApplyImage(msg.res)
		if err != nil {
			m.formErr = err
		} else if applied {
			m.formErr = nil
			m.notice = "Image attached"
		}
		return m, nil

	case suggestionMsg:
		m.suggesting = false
		return m.applySuggestion(msg), nil

	case flipMsg:
		if m.card != nil && msg.card == m.card {
			m.card.Commit(msg.seq)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.view == viewMenu {
				return m, tea.Quit
			}
			return m.toMenu(), nil
		}

		switch m.view {
		case viewMenu:
			return m.updateMenu(msg)
		case viewEditor:
			return m.updateEditor(msg)
		case viewList:
			return m.updateList(msg)
		case viewCard:
			return m.updateCard(msg)
		case viewReview:
			return m.updateReview(msg)
		case viewInput:
			return m.updateInput(msg)
		case viewResults:
			switch msg.String() {
			case "enter", "esc", "q":
				return m.toMenu(), nil
			}
		}
	}

	// Handle text input when typing
	if m.view == viewInput || m.view == viewEditor {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) toMenu() Model {
	m.view = viewMenu
	m.cursor = 0
	m.err = nil
	m.card = nil
	m.input.Reset()
	m.input.Blur()
	return m
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "enter":
		return m.handleMenuSelection()
	}
	return m, nil
}

func (m Model) handleMenuSelection() (tea.Model, tea.Cmd) {
	switch m.cursor {
	case 0: // Add card
		m.view = viewEditor
		m.focus = 0
		m.notice = ""
		m.loadField()
		return m, textinput.Blink

	case 1: // Browse cards
		m.cards = m.service.ListCards()
		m.listCursor = 0
		m.view = viewList

	case 2: // Review
		m.session = m.service.NewReview(nil)
		m.view = viewReview

	case 3: // Import document
		m.view = viewInput
		m.inputMode = inputModeImportPath
		m.input.Placeholder = "Enter file path (TXT, PDF or DOCX)"
		m.input.Focus()
		return m, textinput.Blink

	case 4: // Export to JSON
		m.view = viewInput
		m.inputMode = inputModeExportPath
		m.input.Placeholder = "Enter export file path (default: " + defaultExportPath + ")"
		m.input.Focus()
		return m, textinput.Blink

	case 5: // Exit
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.toMenu(), nil
	case "enter":
		return m.handleInputSubmission()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleInputSubmission() (tea.Model, tea.Cmd) {
	inputValue := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch m.inputMode {
	case inputModeImportPath:
		m.view = viewLoading
		m.err = nil
		service := m.service
		processCmd := func() tea.Msg {
			result, err := service.ImportDocument(droppedPath(inputValue))
			return importResultMsg{result: result, err: err}
		}
		return m, tea.Batch(processCmd, m.spinner.Tick)

	case inputModeExportPath:
		if inputValue == "" {
			inputValue = defaultExportPath
		}

		m.result = nil
		m.exported = ""
		m.err = m.service.ExportCards(inputValue)
		if m.err == nil {
			m.exported = inputValue
		}
		m.view = viewResults
	}

	return m, nil
}

// Editor

func (m *Model) fields() []fieldRef {
	return formFields(m.editor.Draft())
}

// focused returns the field under the cursor, clamping the cursor to the current field list
func (m *Model) focused() fieldRef {
	refs := m.fields()
	if m.focus >= len(refs) {
		m.focus = len(refs) - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
	return refs[m.focus]
}

// loadField puts the focused field's value into the text input
func (m *Model) loadField() {
	ref := m.focused()
	m.input.Reset()
	m.input.Placeholder = ""
	if ref.isImage() {
		m.input.Placeholder = "path to an image, or drag a file here"
	}
	if ref.editable() {
		m.input.SetValue(ref.value(m.editor.Draft()))
	}
	m.input.Focus()
}

// commitField writes the text input back to the focused field
func (m *Model) commitField() {
	ref := m.focused()
	if !ref.editable() {
		return
	}
	if err := ref.set(m.editor, m.input.Value()); err != nil {
		m.formErr = err
	}
}

func (m *Model) moveFocus(step int) {
	m.commitField()
	n := len(m.fields())
	m.focus = ((m.focus+step)%n + n) % n
	m.loadField()
}

// focusEntry moves the cursor to the first field of the meaning or idiom at index
func (m *Model) focusEntry(kind refKind, index int) {
	for i, ref := range m.fields() {
		if ref.kind == kind && ref.index == index {
			m.focus = i
			break
		}
	}
	m.loadField()
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ref := m.focused()

	if msg.Paste && ref.isImage() {
		return m, m.attachImage(ref.index, string(msg.Runes))
	}

	switch msg.String() {
	case "esc":
		m.commitField()
		return m.toMenu(), nil

	case "tab", "down":
		m.moveFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil

	case "ctrl+s":
		m.commitField()
		card, err := m.editor.Submit(m.service.Store)
		if err != nil {
			m.formErr = err
			m.notice = ""
			return m, nil
		}
		m.log.Info("card added", zap.Int64("id", card.ID), zap.String("word", card.Word))
		m.formErr = nil
		m.notice = fmt.Sprintf("Saved %q", card.Word)
		m.focus = 0
		m.loadField()
		return m, nil

	case "ctrl+n":
		m.commitField()
		m.editor.AddMeaning()
		m.focusEntry(refMeaning, len(m.editor.Draft().Means)-1)
		return m, nil

	case "ctrl+t":
		m.commitField()
		m.editor.AddIdiom()
		m.focusEntry(refIdiom, len(m.editor.Draft().Idioms)-1)
		return m, nil

	case "ctrl+d":
		m.commitField()
		switch ref.kind {
		case refMeaning:
			m.editor.RemoveMeaning(ref.index)
		case refIdiom:
			m.editor.RemoveIdiom(ref.index)
		}
		m.loadField()
		return m, nil

	case "ctrl+x":
		if ref.kind == refMeaning {
			if err := m.editor.ClearImage(ref.index); err != nil {
				m.formErr = err
			}
		}
		return m, nil

	case "ctrl+p":
		m.commitField()
		m.service.Speak(m.editor.Draft().Word)
		return m, nil

	case "ctrl+g":
		return m.requestSuggestion()

	case "enter":
		switch {
		case ref.isImage():
			return m, m.attachImage(ref.index, m.input.Value())
		case ref.name == "color" && ref.kind == refCard:
			m.setCardField("color", nextColor(m.editor.Draft().Color, 1))
		case ref.name == "multiVoice":
			m.toggleMultiVoice()
		default:
			m.moveFocus(1)
		}
		return m, nil

	case "left", "right", " ":
		if ref.kind == refCard && ref.name == "color" {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			m.setCardField("color", nextColor(m.editor.Draft().Color, step))
			return m, nil
		}
		if ref.kind == refCard && ref.name == "multiVoice" {
			m.toggleMultiVoice()
			return m, nil
		}
	}

	if !ref.editable() && !ref.isImage() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) setCardField(field, value string) {
	if err := m.editor.SetCardField(field, value); err != nil {
		m.formErr = err
	}
}

func (m *Model) toggleMultiVoice() {
	on := !m.editor.Draft().MultiVoice
	m.setCardField("multiVoice", fmt.Sprint(on))
	// the field list changed shape; keep the cursor on the toggle
	for i, ref := range m.fields() {
		if ref.kind == refCard && ref.name == "multiVoice" {
			m.focus = i
		}
	}
	m.loadField()
}

// attachImage reads the file at raw and starts decoding it into the meaning at index.
// The decode runs as a command; its result comes back as an imageResultMsg.
func (m *Model) attachImage(index int, raw string) tea.Cmd {
	path := droppedPath(raw)
	if path == "" {
		return nil
	}

	data, err := imaging.ReadFile(path, imaging.MaxImageSize)
	if err != nil {
		m.formErr = err
		return nil
	}

	task, err := m.editor.Drop(m.ctx, index, []editor.DroppedFile{{Name: filepath.Base(path), Data: data}})
	if err != nil {
		m.formErr = err
		return nil
	}
	m.input.Reset()
	m.notice = "Decoding " + filepath.Base(path) + "..."
	if task == nil {
		return nil
	}
	return func() tea.Msg {
		return imageResultMsg{res: task.Run()}
	}
}

func (m Model) requestSuggestion() (tea.Model, tea.Cmd) {
	m.commitField()
	if !m.service.SuggestionsEnabled() {
		m.formErr = core.ErrSuggestionsDisabled
		return m, nil
	}

	word := strings.TrimSpace(m.editor.Draft().Word)
	if word == "" {
		m.formErr = errors.New("enter a word first")
		return m, nil
	}

	m.suggesting = true
	m.formErr = nil
	service, ctx := m.service, m.ctx
	suggestCmd := func() tea.Msg {
		s, err := service.Suggest(ctx, word)
		return suggestionMsg{word: word, suggestion: s, err: err}
	}
	return m, tea.Batch(suggestCmd, m.spinner.Tick)
}

// applySuggestion fills the draft unless the word was changed while waiting
func (m Model) applySuggestion(msg suggestionMsg) Model {
	if msg.err != nil {
		m.formErr = msg.err
		return m
	}
	if !strings.EqualFold(strings.TrimSpace(m.editor.Draft().Word), msg.word) {
		m.log.Debug("discarding suggestion for a changed word", zap.String("word", msg.word))
		return m
	}
	s := msg.suggestion
	m.editor.ApplySuggestion(s.Pronunciation, s.Means, s.Idioms)
	m.notice = fmt.Sprintf("Suggested %d meanings and %d idioms", len(s.Means), len(s.Idioms))
	if m.view == viewEditor {
		m.loadField()
	}
	return m
}

// Browse and flip

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return m.toMenu(), nil
	case "up", "k":
		if m.listCursor > 0 {
			m.listCursor--
		}
	case "down", "j":
		if m.listCursor < len(m.cards)-1 {
			m.listCursor++
		}
	case "enter":
		if len(m.cards) > 0 {
			m.card = viewer.New(m.cards[m.listCursor])
			m.view = viewCard
		}
	case "s":
		if len(m.cards) > 0 {
			m.service.Speak(m.cards[m.listCursor].Word)
		}
	case "d":
		if len(m.cards) == 0 {
			return m, nil
		}
		if err := m.service.DeleteCard(m.cards[m.listCursor].ID); err != nil {
			m.err = err
		}
		m.cards = m.service.ListCards()
		if m.listCursor >= len(m.cards) && m.listCursor > 0 {
			m.listCursor--
		}
	}
	return m, nil
}

func (m Model) updateCard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	var (
		t  viewer.Transition
		ok bool
	)

	switch key := msg.String(); key {
	case "esc", "q":
		m.card = nil
		m.view = viewList
		return m, nil
	case "right", "l", " ", "enter":
		t, ok = m.card.Next(now)
	case "left", "h":
		t, ok = m.card.Prev(now)
	case "0", "home":
		t, ok = m.card.Reset(now)
	case "s":
		m.service.Speak(speakText(m.card.Card, m.card.Face()))
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			t, ok = m.card.GoToFace(int(key[0]-'1'), now)
		}
	}

	if !ok {
		return m, nil
	}
	return m, flipAfter(m.card, t)
}

// flipAfter schedules the commit of t on card when its delay is over
func flipAfter(card *viewer.FlipCard, t viewer.Transition) tea.Cmd {
	seq := t.Seq
	return tea.Tick(time.Until(t.Deadline), func(time.Time) tea.Msg {
		return flipMsg{card: card, seq: seq}
	})
}

// speakText is what the speak key reads out on a face: the word, or the definition on a meaning face
func speakText(card db.Card, face viewer.Face) string {
	if face.Kind == viewer.FaceMeaning && face.Meaning < len(card.Means) {
		return card.Means[face.Meaning].Definition
	}
	return card.Word
}

// Review

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return m.toMenu(), nil
	case " ", "enter":
		m.session.ToggleDefinition()
	case "right", "n", "l":
		m.session.Next()
	case "r":
		m.session.Restart(nil)
	case "s":
		if card, ok := m.session.Current(); ok {
			m.service.Speak(card.Word)
		}
	}
	return m, nil
}
