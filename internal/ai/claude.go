package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/db"
)

// ErrUnavailable is returned while the circuit breaker is open
var ErrUnavailable = errors.New("suggestions temporarily unavailable")

// Suggester proposes card content for a word
type Suggester interface {
	SuggestCard(ctx context.Context, word string) (*Suggestion, error)
}

// Suggestion is the proposed content of a card
type Suggestion struct {
	Pronunciation string       `json:"pronunciation"`
	Means         []db.Meaning `json:"means"`
	Idioms        []db.Idiom   `json:"idioms"`
}

// ClaudeSuggester implements Suggester using Claude API
type ClaudeSuggester struct {
	client  *anthropic.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     *zap.Logger
}

// AIError represents an error from the AI API
type AIError struct {
	Message     string
	StatusCode  int
	RequestID   string
	RawResponse string
}

func (e *AIError) Error() string {
	msg := fmt.Sprintf("AI API error (%d): %s", e.StatusCode, e.Message)
	if e.RequestID != "" {
		msg += fmt.Sprintf("\n  request-id: %s", e.RequestID)
	}
	if e.RawResponse != "" {
		msg += fmt.Sprintf("\n  raw: %s", e.RawResponse)
	}
	return msg
}

// IsAIError checks if an error is an AIError
func IsAIError(err error) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr)
}

// NewClaudeSuggester creates a Claude backed suggester. Extra options are passed to the API client.
func NewClaudeSuggester(apiKey string, log *zap.Logger, opts ...option.RequestOption) (*ClaudeSuggester, error) {
	if err := validateAPIKey(apiKey); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "claude",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			// a reply we could not parse still means the API is up
			return err == nil || !IsAIError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ClaudeSuggester{
		client:  &client,
		breaker: breaker,
		timeout: 60 * time.Second,
		log:     log,
	}, nil
}

// SuggestCard asks Claude for a pronunciation, meanings and idioms for word
func (c *ClaudeSuggester) SuggestCard(ctx context.Context, word string) (*Suggestion, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("word cannot be empty")
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.suggest(ctx, word)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return res.(*Suggestion), nil
}

func (c *ClaudeSuggester) suggest(ctx context.Context, word string) (*Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaudeSonnet4_5_20250929,
		MaxTokens: 2000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(word))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &AIError{
				Message:     apiErr.Error(),
				StatusCode:  apiErr.StatusCode,
				RequestID:   apiErr.RequestID,
				RawResponse: apiErr.RawJSON(),
			}
		}
		return nil, &AIError{
			Message:    fmt.Sprintf("failed to call Claude API: %v", err),
			StatusCode: 500,
		}
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}

	suggestion, err := parseSuggestionResponse(b.String())
	if err != nil {
		c.log.Debug("unparseable suggestion", zap.String("word", word), zap.Error(err))
		return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
	}
	return sanitizeSuggestion(suggestion), nil
}

// buildPrompt constructs the prompt for Claude
func buildPrompt(word string) string {
	return fmt.Sprintf(`You are an English vocabulary tutor writing a flashcard for the word or phrase %q.

Return ONLY a JSON object of this shape:
{
  "pronunciation": "IPA transcription, e.g. /bæŋk/",
  "means": [
    {"translate": "short gloss", "definition": "clear definition", "example": "example sentence"}
  ],
  "idioms": [
    {"idiom": "idiom using the word", "meaning": "what it means", "usage": "when it is used", "example": "example sentence"}
  ]
}

Include:
- Every common meaning, most frequent first (at most 4)
- Up to 3 common idioms; use an empty array if there are none

Do NOT include:
- Markdown or commentary outside the JSON
- Rare or archaic senses`, word)
}

// parseSuggestionResponse extracts a Suggestion from Claude's JSON response,
// handling optional markdown code block wrappers.
func parseSuggestionResponse(response string) (*Suggestion, error) {
	response = strings.TrimSpace(response)

	// Remove markdown code blocks if present
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var s Suggestion
	if err := json.Unmarshal([]byte(response), &s); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return &s, nil
}

// sanitizeSuggestion trims whitespace and drops entries that would not pass card validation
func sanitizeSuggestion(s *Suggestion) *Suggestion {
	out := &Suggestion{Pronunciation: strings.TrimSpace(s.Pronunciation)}

	for _, m := range s.Means {
		m.Translate = strings.TrimSpace(m.Translate)
		m.Definition = strings.TrimSpace(m.Definition)
		m.Example = strings.TrimSpace(m.Example)
		m.Image = ""
		m.Pronunciation = ""
		if m.Definition != "" {
			out.Means = append(out.Means, m)
		}
	}

	seen := make(map[string]bool, len(s.Idioms))
	for _, i := range s.Idioms {
		i.Idiom = strings.TrimSpace(i.Idiom)
		i.Meaning = strings.TrimSpace(i.Meaning)
		i.Usage = strings.TrimSpace(i.Usage)
		i.Example = strings.TrimSpace(i.Example)
		key := strings.ToLower(i.Idiom)
		if i.Idiom == "" || i.Meaning == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.Idioms = append(out.Idioms, i)
	}

	return out
}

// validateAPIKey checks if the API key is valid
func validateAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	return nil
}
