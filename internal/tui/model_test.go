package tui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parsely/flipcards/internal/ai"
	"github.com/parsely/flipcards/internal/core"
	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/editor"
	"github.com/parsely/flipcards/internal/viewer"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	spoke []string
}

func (r *recordingSpeaker) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoke = append(r.spoke, text)
}

func (r *recordingSpeaker) Close() error { return nil }

func (r *recordingSpeaker) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spoke) == 0 {
		return ""
	}
	return r.spoke[len(r.spoke)-1]
}

type stubSuggester struct {
	suggestion *ai.Suggestion
	err        error
}

func (s *stubSuggester) SuggestCard(ctx context.Context, word string) (*ai.Suggestion, error) {
	return s.suggestion, s.err
}

func setupTestModel(t *testing.T, suggester ai.Suggester) (Model, *core.Service, *recordingSpeaker) {
	t.Helper()
	database, err := db.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := db.NewCardStore(database, "", nil)
	store.Load()
	speaker := &recordingSpeaker{}
	service := core.NewService(store, nil, speaker, suggester, nil)
	return New(context.Background(), service, nil), service, speaker
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out, cmd
}

func press(t *testing.T, m Model, keys ...tea.KeyType) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = update(t, m, tea.KeyMsg{Type: k})
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func key(t *testing.T, m Model, s string) (Model, tea.Cmd) {
	t.Helper()
	if s == " " {
		return update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	}
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// runCmd executes cmd, expanding batches, and returns the first message of type T
func runCmd[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	var zero T
	if cmd == nil {
		t.Fatal("Expected a command")
	}
	switch msg := cmd().(type) {
	case T:
		return msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if got, ok := c().(T); ok {
				return got
			}
		}
	}
	t.Fatalf("Command did not produce %T", zero)
	return zero
}

func mustCreate(t *testing.T, service *core.Service, word string, meanings int, idioms int) db.Card {
	t.Helper()
	d := editor.Draft{Word: word}
	for i := 0; i < meanings; i++ {
		d.Means = append(d.Means, editor.MeaningEntry{Definition: word + " definition " + string(rune('A'+i))})
	}
	for i := 0; i < idioms; i++ {
		d.Idioms = append(d.Idioms, editor.IdiomEntry{Idiom: word + " idiom", Meaning: "idiom meaning"})
	}
	card, err := service.CreateCard(d)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", word, err)
	}
	return card
}

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "my picture.png")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("Failed to write png: %v", err)
	}
	return path
}

// TestMenuNavigation tests cursor bounds and quitting
func TestMenuNavigation(t *testing.T) {
	m, _, _ := setupTestModel(t, nil)

	m = press(t, m, tea.KeyUp)
	if m.cursor != 0 {
		t.Errorf("Expected cursor to stay at 0, got %d", m.cursor)
	}

	for range menuItems {
		m = press(t, m, tea.KeyDown)
	}
	if m.cursor != len(menuItems)-1 {
		t.Errorf("Expected cursor at last item, got %d", m.cursor)
	}

	_, cmd := key(t, m, "q")
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected QuitMsg")
	}
}

// TestEditorAddsCard tests typing a card and saving it
func TestEditorAddsCard(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)

	m = press(t, m, tea.KeyEnter)
	if m.view != viewEditor {
		t.Fatalf("Expected editor view, got %v", m.view)
	}

	m = typeText(t, m, "Bank")
	// word -> pronunciation -> color -> multi-voice -> translate -> definition
	m = press(t, m, tea.KeyTab, tea.KeyTab, tea.KeyTab, tea.KeyTab, tea.KeyTab)
	if ref := m.focused(); ref.path() != "means[0].definition" {
		t.Fatalf("Expected focus on definition, got %s", ref.path())
	}
	m = typeText(t, m, "Financial Institution")

	// move to the blank idiom and remove it
	m = press(t, m, tea.KeyTab, tea.KeyTab, tea.KeyTab)
	if ref := m.focused(); ref.kind != refIdiom {
		t.Fatalf("Expected focus on idiom, got %s", ref.path())
	}
	m = press(t, m, tea.KeyCtrlD)
	if got := len(m.editor.Draft().Idioms); got != 0 {
		t.Fatalf("Expected idiom removed, got %d", got)
	}

	m = press(t, m, tea.KeyCtrlS)
	if m.formErr != nil {
		t.Fatalf("Expected save to succeed: %v", m.formErr)
	}

	cards := service.ListCards()
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(cards))
	}
	if cards[0].Word != "Bank" || cards[0].Means[0].Definition != "Financial Institution" {
		t.Errorf("Unexpected card: %+v", cards[0])
	}

	d := m.editor.Draft()
	if d.Word != "" || len(d.Means) != 1 || len(d.Idioms) != 1 {
		t.Errorf("Expected draft reset, got %+v", d)
	}
	if !strings.Contains(m.View(), `Saved "Bank"`) {
		t.Error("Expected saved notice in view")
	}
}

// TestEditorValidation tests that an incomplete card is not saved and errors are shown per field
func TestEditorValidation(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)

	m = press(t, m, tea.KeyEnter, tea.KeyCtrlS)

	var vErr *editor.ValidationError
	if !errors.As(m.formErr, &vErr) {
		t.Fatalf("Expected validation error, got %v", m.formErr)
	}
	for _, field := range []string{"word", "means[0].definition", "idioms[0].idiom", "idioms[0].meaning"} {
		if !vErr.Has(field) {
			t.Errorf("Expected error for %s", field)
		}
	}
	if service.Store.Count() != 0 {
		t.Error("Expected nothing saved")
	}

	view := m.View()
	if !strings.Contains(view, "is required") || !strings.Contains(view, "Card is incomplete") {
		t.Errorf("Expected validation messages in view:\n%s", view)
	}
}

// TestEditorColorAndVoice tests the palette picker and the multi-voice toggle
func TestEditorColorAndVoice(t *testing.T) {
	m, _, _ := setupTestModel(t, nil)
	m = press(t, m, tea.KeyEnter, tea.KeyTab, tea.KeyTab)

	m = press(t, m, tea.KeyRight)
	if got := m.editor.Draft().Color; got != db.Palette[1] {
		t.Errorf("Expected %s, got %s", db.Palette[1], got)
	}
	m = press(t, m, tea.KeyLeft, tea.KeyLeft)
	if got := m.editor.Draft().Color; got != db.Palette[len(db.Palette)-1] {
		t.Errorf("Expected wrap to last swatch, got %s", got)
	}

	m = press(t, m, tea.KeyTab)
	m, _ = key(t, m, " ")
	if !m.editor.Draft().MultiVoice {
		t.Fatal("Expected multi-voice on")
	}
	if ref := m.focused(); ref.name != "multiVoice" {
		t.Errorf("Expected focus to stay on the toggle, got %s", ref.path())
	}
	for _, ref := range m.fields() {
		if ref.kind == refCard && ref.name == "pronunciation" {
			t.Error("Card pronunciation should be hidden in multi-voice mode")
		}
	}
}

// TestEditorImagePaste tests that pasting a path onto an image field attaches the image
func TestEditorImagePaste(t *testing.T) {
	m, _, _ := setupTestModel(t, nil)
	path := writePNG(t)

	m = press(t, m, tea.KeyEnter)
	for !m.focused().isImage() {
		m = press(t, m, tea.KeyTab)
	}

	escaped := strings.ReplaceAll(path, " ", `\ `)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(escaped), Paste: true})
	if m.editor.PendingImages() != 1 {
		t.Fatalf("Expected a pending decode, got %d", m.editor.PendingImages())
	}

	msg := runCmd[imageResultMsg](t, cmd)
	m, _ = update(t, m, msg)

	img := m.editor.Draft().Means[0].Image
	if !strings.HasPrefix(img, "data:image/png;base64,") {
		t.Errorf("Expected png data URI, got %.40q", img)
	}

	m = press(t, m, tea.KeyCtrlX)
	if m.editor.Draft().Means[0].Image != "" {
		t.Error("Expected image cleared")
	}
}

// TestEditorImageNotAnImage tests that a non-image file is refused
func TestEditorImageNotAnImage(t *testing.T) {
	m, _, _ := setupTestModel(t, nil)
	path := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(path, []byte("just text"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	m = press(t, m, tea.KeyEnter)
	for !m.focused().isImage() {
		m = press(t, m, tea.KeyTab)
	}
	m = typeText(t, m, path)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	msg := runCmd[imageResultMsg](t, cmd)
	m, _ = update(t, m, msg)

	if m.formErr == nil {
		t.Error("Expected decode error")
	}
	if m.editor.Draft().Means[0].Image != "" {
		t.Error("Expected no image")
	}
}

// TestEditorSuggestion tests filling the draft from a suggestion
func TestEditorSuggestion(t *testing.T) {
	suggester := &stubSuggester{suggestion: &ai.Suggestion{
		Pronunciation: "/bæŋk/",
		Means:         []db.Meaning{{Definition: "a financial institution"}, {Definition: "the side of a river"}},
		Idioms:        []db.Idiom{{Idiom: "break the bank", Meaning: "cost too much"}},
	}}
	m, _, _ := setupTestModel(t, suggester)

	m = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "bank")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	if !m.suggesting {
		t.Fatal("Expected suggestion in progress")
	}

	msg := runCmd[suggestionMsg](t, cmd)
	m, _ = update(t, m, msg)

	d := m.editor.Draft()
	if d.Word != "bank" || d.Pronunciation != "/bæŋk/" {
		t.Errorf("Unexpected draft header: %q %q", d.Word, d.Pronunciation)
	}
	if len(d.Means) != 2 || len(d.Idioms) != 1 {
		t.Errorf("Expected 2 meanings and 1 idiom, got %d and %d", len(d.Means), len(d.Idioms))
	}
}

// TestEditorSuggestionStale tests that a suggestion for a word that has since changed is dropped
func TestEditorSuggestionStale(t *testing.T) {
	suggester := &stubSuggester{suggestion: &ai.Suggestion{Means: []db.Meaning{{Definition: "x"}}}}
	m, _, _ := setupTestModel(t, suggester)

	m = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "bank")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	msg := runCmd[suggestionMsg](t, cmd)

	m = typeText(t, m, "er")
	m = press(t, m, tea.KeyTab)
	m, _ = update(t, m, msg)

	if got := m.editor.Draft().Means[0].Definition; got != "" {
		t.Errorf("Expected stale suggestion dropped, got %q", got)
	}
}

// TestEditorSuggestionDisabled tests the message shown without a suggester
func TestEditorSuggestionDisabled(t *testing.T) {
	m, _, _ := setupTestModel(t, nil)

	m = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "bank")
	m = press(t, m, tea.KeyCtrlG)

	if !errors.Is(m.formErr, core.ErrSuggestionsDisabled) {
		t.Errorf("Expected ErrSuggestionsDisabled, got %v", m.formErr)
	}
}

// TestBrowseAndFlip tests opening a card and that a superseded flip does not land
func TestBrowseAndFlip(t *testing.T) {
	m, service, speaker := setupTestModel(t, nil)
	mustCreate(t, service, "Bank", 2, 1)

	m = press(t, m, tea.KeyDown, tea.KeyEnter)
	if m.view != viewList || len(m.cards) != 1 {
		t.Fatalf("Expected list with 1 card, got view %v with %d", m.view, len(m.cards))
	}
	m = press(t, m, tea.KeyEnter)
	if m.view != viewCard || m.card.Len() != 4 {
		t.Fatalf("Expected card view with 4 faces")
	}

	m, _ = key(t, m, "s")
	if speaker.last() != "Bank" {
		t.Errorf("Expected word spoken, got %q", speaker.last())
	}

	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if !m.card.Flipping() || m.card.Current() != 0 {
		t.Fatal("Expected flip in progress from the main face")
	}

	m, _ = update(t, m, runCmd[flipMsg](t, first))
	if m.card.Current() != 0 {
		t.Errorf("Superseded flip landed on face %d", m.card.Current())
	}
	m, _ = update(t, m, runCmd[flipMsg](t, second))
	if m.card.Current() != 2 {
		t.Errorf("Expected face 2, got %d", m.card.Current())
	}
	if m.card.Face().Kind != viewer.FaceMeaning {
		t.Errorf("Expected meaning face")
	}

	m, _ = key(t, m, "s")
	if speaker.last() != "Bank definition B" {
		t.Errorf("Expected definition spoken, got %q", speaker.last())
	}

	// asking for the current face starts nothing
	_, cmd := key(t, m, "3")
	if cmd != nil {
		t.Error("Expected no flip to the current face")
	}

	m = press(t, m, tea.KeyEsc)
	if m.view != viewList || m.card != nil {
		t.Error("Expected back on the list")
	}
}

// TestFlipFromPreviousCardIgnored tests that a flip timer started on one card does not land on the next
func TestFlipFromPreviousCardIgnored(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)
	mustCreate(t, service, "apple", 2, 0)
	mustCreate(t, service, "pear", 2, 0)

	m = press(t, m, tea.KeyDown, tea.KeyEnter, tea.KeyEnter)
	if m.card == nil || m.card.Card.Word != "apple" {
		t.Fatal("Expected apple opened")
	}
	m, appleFlip := update(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m = press(t, m, tea.KeyEsc, tea.KeyDown, tea.KeyEnter)
	if m.card == nil || m.card.Card.Word != "pear" {
		t.Fatal("Expected pear opened")
	}
	m, pearFlip := update(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m, _ = update(t, m, runCmd[flipMsg](t, appleFlip))
	if m.card.Current() != 0 || !m.card.Flipping() {
		t.Fatalf("Stale flip landed on pear: current=%d flipping=%v", m.card.Current(), m.card.Flipping())
	}

	m, _ = update(t, m, runCmd[flipMsg](t, pearFlip))
	if m.card.Current() != 1 || m.card.Flipping() {
		t.Errorf("Expected pear on face 1, got current=%d flipping=%v", m.card.Current(), m.card.Flipping())
	}
}

// TestBrowseDelete tests deleting a card from the list
func TestBrowseDelete(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)
	mustCreate(t, service, "apple", 1, 0)
	mustCreate(t, service, "pear", 1, 0)

	m = press(t, m, tea.KeyDown, tea.KeyEnter, tea.KeyDown)
	m, _ = key(t, m, "d")

	cards := service.ListCards()
	if len(cards) != 1 || cards[0].Word != "apple" {
		t.Fatalf("Expected only apple left, got %+v", cards)
	}
	if m.listCursor != 0 {
		t.Errorf("Expected cursor clamped to 0, got %d", m.listCursor)
	}
}

// TestReview tests walking a review session
func TestReview(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)
	for _, w := range []string{"one", "two", "three"} {
		mustCreate(t, service, w, 1, 0)
	}

	m = press(t, m, tea.KeyDown, tea.KeyDown, tea.KeyEnter)
	if m.view != viewReview {
		t.Fatalf("Expected review view, got %v", m.view)
	}
	if !strings.Contains(m.View(), "Card 1 of 3") {
		t.Error("Expected position in view")
	}

	m, _ = key(t, m, " ")
	if !m.session.ShowDefinition() {
		t.Error("Expected definition shown")
	}
	m, _ = key(t, m, "n")
	if m.session.ShowDefinition() {
		t.Error("Expected definition hidden after next")
	}
	if !strings.Contains(m.View(), "Card 2 of 3") {
		t.Error("Expected second card")
	}
}

// TestReviewEmpty tests the review screen without cards
func TestReviewEmpty(t *testing.T) {
	m, _, _ := setupTestModel(t, nil)
	m = press(t, m, tea.KeyDown, tea.KeyDown, tea.KeyEnter)

	if !strings.Contains(m.View(), "No cards to review") {
		t.Error("Expected empty review message")
	}
	m, _ = key(t, m, "n")
	m = press(t, m, tea.KeyEsc)
	if m.view != viewMenu {
		t.Error("Expected menu")
	}
}

// TestImportDocument tests importing a text file through the menu
func TestImportDocument(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "apple = a fruit\nbanana = a yellow fruit | I ate a banana\nnot a card line\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	m = press(t, m, tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyEnter)
	m = typeText(t, m, path)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != viewLoading {
		t.Fatalf("Expected loading view, got %v", m.view)
	}

	m, _ = update(t, m, runCmd[importResultMsg](t, cmd))
	if m.err != nil {
		t.Fatalf("Import failed: %v", m.err)
	}
	if m.result.Added != 2 || m.result.Invalid != 1 {
		t.Errorf("Expected 2 added and 1 invalid, got %+v", m.result)
	}
	if service.Store.Count() != 2 {
		t.Errorf("Expected 2 stored cards, got %d", service.Store.Count())
	}
	if !strings.Contains(m.View(), "Cards added: 2") {
		t.Error("Expected result in view")
	}
}

// TestExportCards tests exporting through the menu
func TestExportCards(t *testing.T) {
	m, service, _ := setupTestModel(t, nil)
	mustCreate(t, service, "apple", 1, 0)
	out := filepath.Join(t.TempDir(), "export.json")

	m = press(t, m, tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyEnter)
	m = typeText(t, m, out)
	m = press(t, m, tea.KeyEnter)

	if m.err != nil {
		t.Fatalf("Export failed: %v", m.err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if !strings.Contains(string(data), `"word": "apple"`) {
		t.Errorf("Unexpected export: %s", data)
	}
	if !strings.Contains(m.View(), "Export completed successfully!") {
		t.Error("Expected success message")
	}
}

// TestDroppedPath tests cleanup of pasted file paths
func TestDroppedPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/tmp/a.png", "/tmp/a.png"},
		{"  /tmp/a.png\n", "/tmp/a.png"},
		{"'/tmp/my file.png'", "/tmp/my file.png"},
		{`"/tmp/my file.png"`, "/tmp/my file.png"},
		{`/tmp/my\ file.png`, "/tmp/my file.png"},
		{"file:///tmp/my%20file.png", "/tmp/my file.png"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := droppedPath(tt.in); got != tt.want {
			t.Errorf("droppedPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestFormFields tests the field layout in both voice modes
func TestFormFields(t *testing.T) {
	d := editor.NewDraft()
	if got := len(formFields(d)); got != 4+4+4 {
		t.Errorf("Expected 12 fields, got %d", got)
	}

	d.MultiVoice = true
	refs := formFields(d)
	if got := len(refs); got != 3+5+4 {
		t.Errorf("Expected 12 fields in multi-voice mode, got %d", got)
	}
	if refs[7].path() != "means[0].pronunciation" {
		t.Errorf("Expected meaning pronunciation, got %s", refs[7].path())
	}
}

// TestNextColor tests palette cycling
func TestNextColor(t *testing.T) {
	if got := nextColor(db.Palette[0], 1); got != db.Palette[1] {
		t.Errorf("Expected %s, got %s", db.Palette[1], got)
	}
	if got := nextColor(db.Palette[0], -1); got != db.Palette[len(db.Palette)-1] {
		t.Errorf("Expected wrap, got %s", got)
	}
	if got := nextColor("#nothere", 1); got != db.Palette[1] {
		t.Errorf("Expected unknown color to start from the first swatch, got %s", got)
	}
}
