package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StorageKey is the key the card list is kept under
const StorageKey = "vocabularyCards"

// ErrCardNotFound is returned when no card has the requested ID
var ErrCardNotFound = errors.New("card not found")

// CardStore keeps the ordered card list in memory and writes it through to a KeyValue backend
type CardStore struct {
	mu    sync.RWMutex
	kv    KeyValue
	key   string
	cards []Card
	ids   IDGenerator
	log   *zap.Logger
}

// NewCardStore creates a store bound to key in kv. An empty key means StorageKey.
// The store starts empty; call Load to read persisted cards.
func NewCardStore(kv KeyValue, key string, log *zap.Logger) *CardStore {
	if key == "" {
		key = StorageKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CardStore{
		kv:  kv,
		key: key,
		log: log,
	}
}

// Load replaces the in-memory list with the persisted one.
// A missing key, an unreadable backend or corrupt JSON all yield an empty list.
func (s *CardStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cards = nil

	data, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.log.Warn("failed to read stored cards, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		s.log.Warn("stored cards are not valid JSON, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	for _, c := range cards {
		s.ids.Observe(c.ID)
	}
	s.cards = cards
	s.log.Debug("loaded cards", zap.Int("count", len(cards)))
}

// Save writes the full list to the backend
func (s *CardStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *CardStore) saveLocked() error {
	cards := s.cards
	if cards == nil {
		cards = []Card{}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("failed to encode cards: %w", err)
	}
	if err := s.kv.Put(s.key, data); err != nil {
		return fmt.Errorf("failed to save cards: %w", err)
	}
	return nil
}

// NextID returns an ID greater than every ID handed out or loaded so far
func (s *CardStore) NextID(now time.Time) int64 {
	return s.ids.Next(now)
}

// Append adds card to the end of the list and saves.
// If saving fails the card is not kept.
func (s *CardStore) Append(card Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids.Observe(card.ID)
	s.cards = append(s.cards, card)
	if err := s.saveLocked(); err != nil {
		s.cards = s.cards[:len(s.cards)-1]
		return err
	}

	s.log.Info("card added", zap.Int64("id", card.ID), zap.String("word", card.Word))
	return nil
}

// All returns a copy of the cards in insertion order
func (s *CardStore) All() []Card {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// Get returns the card with the given ID
func (s *CardStore) Get(id int64) (Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return Card{}, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
}

// Delete removes the card with the given ID and saves
func (s *CardStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.cards {
		if c.ID != id {
			continue
		}
		previous := s.cards
		updated := make([]Card, 0, len(s.cards)-1)
		updated = append(updated, s.cards[:i]...)
		updated = append(updated, s.cards[i+1:]...)
		s.cards = updated
		if err := s.saveLocked(); err != nil {
			s.cards = previous
			return err
		}
		s.log.Info("card deleted", zap.Int64("id", id))
		return nil
	}

	return fmt.Errorf("card %d: %w", id, ErrCardNotFound)
}

// Count returns the number of cards
func (s *CardStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// ExistsWord reports whether a card with the given word exists (case-insensitive)
func (s *CardStore) ExistsWord(word string) bool {
	word = strings.TrimSpace(word)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cards {
		if strings.EqualFold(strings.TrimSpace(c.Word), word) {
			return true
		}
	}
	return false
}

// ExportToJSON writes all cards to a JSON file
func (s *CardStore) ExportToJSON(filePath string) error {
	// Create file with secure permissions (0600 - owner read/write only)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	return s.WriteJSON(file)
}

// WriteJSON writes all cards to w as an indented JSON array
func (s *CardStore) WriteJSON(w io.Writer) error {
	cards := s.All()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(cards); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
