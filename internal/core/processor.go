package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/ai"
	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/editor"
	"github.com/parsely/flipcards/internal/imaging"
	"github.com/parsely/flipcards/internal/parser"
	"github.com/parsely/flipcards/internal/review"
	"github.com/parsely/flipcards/internal/speech"
)

// ErrSuggestionsDisabled is returned by Suggest when no AI key is configured
var ErrSuggestionsDisabled = errors.New("AI suggestions are disabled (set ANTHROPIC_API_KEY)")

// Service ties the card store to the editor, importers, review and speech.
// Both the TUI and the HTTP API drive the app through it.
type Service struct {
	Store     *db.CardStore
	Decoder   imaging.ImageDecoder
	Speaker   speech.Speaker
	Suggester ai.Suggester
	Log       *zap.Logger
}

// ImportResult contains the results of importing a document
type ImportResult struct {
	Added          int    `json:"added"`
	Duplicates     int    `json:"duplicates"`
	Invalid        int    `json:"invalid"`
	TotalProcessed int    `json:"totalProcessed"`
	Source         string `json:"source"`
}

// Stats summarizes the stored cards
type Stats struct {
	Cards    int `json:"cards"`
	Meanings int `json:"meanings"`
	Idioms   int `json:"idioms"`
	Images   int `json:"images"`
}

// NewService creates a new Service instance. A nil suggester disables suggestions.
func NewService(store *db.CardStore, decoder imaging.ImageDecoder, speaker speech.Speaker, suggester ai.Suggester, log *zap.Logger) *Service {
	if decoder == nil {
		decoder = imaging.NewDecoder()
	}
	if speaker == nil {
		speaker = speech.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:     store,
		Decoder:   decoder,
		Speaker:   speaker,
		Suggester: suggester,
		Log:       log,
	}
}

// NewEditor returns an editor with an empty draft
func (s *Service) NewEditor() *editor.Editor {
	return editor.New(s.Decoder, s.Log)
}

// CreateCard validates a complete draft and stores the resulting card
func (s *Service) CreateCard(d editor.Draft) (db.Card, error) {
	return editor.FromDraft(d, s.Decoder, s.Log).Submit(s.Store)
}

// ImportDocument reads card lines from a .txt, .pdf or .docx file and adds them
func (s *Service) ImportDocument(filePath string) (*ImportResult, error) {
	if err := validateFilePath(filePath); err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	if !isValidFileType(filePath) {
		return nil, fmt.Errorf("unsupported file type: %s (only .txt, .pdf and .docx are supported)", filepath.Ext(filePath))
	}

	text, err := parser.ParseDocument(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	return s.importText(text, filePath)
}

// ImportUpload is ImportDocument for an uploaded file
func (s *Service) ImportUpload(reader io.Reader, filename string, size int64) (*ImportResult, error) {
	text, err := parser.ParseUpload(reader, filename, size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return s.importText(text, filename)
}

// importText submits every card line through an editor so imported cards obey the same rules as
// typed ones. Words already stored, or seen earlier in the same text, are skipped as duplicates.
func (s *Service) importText(text, source string) (*ImportResult, error) {
	lines, invalid, err := parser.ParseCardLines(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	result := &ImportResult{Invalid: invalid, Source: source}

	for _, line := range lines {
		if s.Store.ExistsWord(line.Word) {
			result.Duplicates++
			continue
		}

		ed := s.NewEditor()
		if err := fillDraft(ed, line); err != nil {
			return nil, err
		}

		if _, err := ed.Submit(s.Store); err != nil {
			if editor.IsValidationError(err) {
				result.Invalid++
				continue
			}
			return nil, fmt.Errorf("failed to import line %d: %w", line.Line, err)
		}
		result.Added++
	}

	result.TotalProcessed = result.Added + result.Duplicates + result.Invalid
	s.Log.Info("import finished",
		zap.String("source", source),
		zap.Int("added", result.Added),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("invalid", result.Invalid))
	return result, nil
}

// fillDraft turns a card line into a draft with one meaning and no idioms
func fillDraft(ed *editor.Editor, line parser.CardLine) error {
	if err := ed.SetCardField("word", line.Word); err != nil {
		return err
	}
	if err := ed.SetField(editor.KindMeaning, 0, "definition", line.Definition); err != nil {
		return err
	}
	if err := ed.SetField(editor.KindMeaning, 0, "example", line.Example); err != nil {
		return err
	}
	ed.RemoveIdiom(0)
	return nil
}

// validateFilePath checks if a file path is valid, exists, and is a regular file
func validateFilePath(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file")
	}

	return nil
}

// isValidFileType checks if the file has a supported extension
func isValidFileType(filePath string) bool {
	return parser.DetectFileType(filePath) != parser.TypeUnknown
}

// ListCards retrieves all cards in insertion order
func (s *Service) ListCards() []db.Card {
	return s.Store.All()
}

// GetCard retrieves a card by ID
func (s *Service) GetCard(id int64) (db.Card, error) {
	return s.Store.Get(id)
}

// DeleteCard removes a card by ID
func (s *Service) DeleteCard(id int64) error {
	return s.Store.Delete(id)
}

// ExportCards exports all cards to a JSON file
func (s *Service) ExportCards(filePath string) error {
	return s.Store.ExportToJSON(filePath)
}

// WriteExport writes the JSON export to w
func (s *Service) WriteExport(w io.Writer) error {
	return s.Store.WriteJSON(w)
}

// Stats counts cards, meanings, idioms and attached images
func (s *Service) Stats() Stats {
	var st Stats
	for _, c := range s.Store.All() {
		st.Cards++
		st.Meanings += len(c.Means)
		st.Idioms += len(c.Idioms)
		for _, m := range c.Means {
			if m.Image != "" {
				st.Images++
			}
		}
	}
	return st
}

// NewReview starts a review over a shuffled copy of the stored cards
func (s *Service) NewReview(rng *rand.Rand) *review.Session {
	return review.NewSession(s.Store.All(), rng)
}

// Suggest asks the AI suggester for card content
func (s *Service) Suggest(ctx context.Context, word string) (*ai.Suggestion, error) {
	if s.Suggester == nil {
		return nil, ErrSuggestionsDisabled
	}
	return s.Suggester.SuggestCard(ctx, word)
}

// SuggestionsEnabled reports whether Suggest can reach an AI backend
func (s *Service) SuggestionsEnabled() bool {
	return s.Suggester != nil
}

// DecodeImage validates image bytes and returns them as a data URI
func (s *Service) DecodeImage(ctx context.Context, data []byte) (string, error) {
	return s.Decoder.Decode(ctx, data)
}

// Speak pronounces text in the background
func (s *Service) Speak(text string) {
	s.Speaker.Speak(text)
}
