package db

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryKV is an in-memory KeyValue for store tests
type memoryKV struct {
	data    map[string][]byte
	getErr  error
	putErr  error
	putCall int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) Put(key string, value []byte) error {
	m.putCall++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func sampleCard(id int64, word string) Card {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return Card{
		ID:            id,
		Word:          word,
		Pronunciation: "/bæŋk/",
		Means: []Meaning{
			{Translate: "بنك", Definition: "Financial Institution", Example: "I went to the bank.", Image: "data:image/png;base64,AAAA"},
			{Definition: "River's edge"},
		},
		Idioms: []Idiom{
			{Idiom: "Break the bank", Meaning: "Cost too much", Usage: "informal", Example: "This won't break the bank."},
		},
		Color:      DefaultColor,
		CreatedAt:  created,
		Difficulty: DefaultDifficulty,
	}
}

func TestCardStore_LoadMissingKey(t *testing.T) {
	store := NewCardStore(newMemoryKV(), "", nil)
	store.Load()

	assert.Equal(t, 0, store.Count())
	assert.Empty(t, store.All())
}

func TestCardStore_LoadCorruptJSON(t *testing.T) {
	kv := newMemoryKV()
	kv.data[StorageKey] = []byte("not json")

	store := NewCardStore(kv, StorageKey, nil)
	require.NotPanics(t, store.Load)

	assert.Equal(t, 0, store.Count())
}

func TestCardStore_LoadBackendError(t *testing.T) {
	kv := newMemoryKV()
	kv.getErr = errors.New("disk on fire")

	store := NewCardStore(kv, "", nil)
	store.Load()

	assert.Equal(t, 0, store.Count())
}

func TestCardStore_RoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := NewCardStore(kv, "", nil)

	reviewed := time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC)
	run := sampleCard(2, "Run")
	run.Pronunciation = ""
	run.MultiVoice = true
	run.Means[0].Pronunciation = "/rʌn/"
	run.Means[1].Pronunciation = "/rʌn/"
	run.Color = "#DB2777"
	run.ReviewCount = 3
	run.LastReviewed = &reviewed
	run.Difficulty = "hard"

	for _, c := range []Card{sampleCard(1, "Bank"), run} {
		require.NoError(t, store.Append(c))
	}

	reloaded := NewCardStore(kv, "", nil)
	reloaded.Load()

	assert.Equal(t, store.All(), reloaded.All())
}

func TestCardStore_StorageLayout(t *testing.T) {
	kv := newMemoryKV()
	store := NewCardStore(kv, "", nil)
	require.NoError(t, store.Append(sampleCard(7, "Bank")))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(kv.data[StorageKey], &raw))
	require.Len(t, raw, 1)

	for _, field := range []string{"id", "word", "pronunciation", "means", "Idioms", "color", "createdAt", "reviewCount", "lastReviewed", "difficulty"} {
		assert.Contains(t, raw[0], field)
	}
}

func TestCardStore_AppendWritesThrough(t *testing.T) {
	kv := newMemoryKV()
	store := NewCardStore(kv, "", nil)

	require.NoError(t, store.Append(sampleCard(1, "a")))
	require.NoError(t, store.Append(sampleCard(2, "b")))

	assert.Equal(t, 2, kv.putCall)
}

func TestCardStore_AppendRollsBackOnSaveFailure(t *testing.T) {
	kv := newMemoryKV()
	kv.putErr = errors.New("read-only")
	store := NewCardStore(kv, "", nil)

	err := store.Append(sampleCard(1, "Bank"))
	require.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestCardStore_AllReturnsCopy(t *testing.T) {
	store := NewCardStore(newMemoryKV(), "", nil)
	require.NoError(t, store.Append(sampleCard(1, "Bank")))

	cards := store.All()
	cards[0].Word = "mutated"

	got, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Bank", got.Word)
}

func TestCardStore_GetAndDelete(t *testing.T) {
	kv := newMemoryKV()
	store := NewCardStore(kv, "", nil)
	require.NoError(t, store.Append(sampleCard(1, "a")))
	require.NoError(t, store.Append(sampleCard(2, "b")))
	require.NoError(t, store.Append(sampleCard(3, "c")))

	require.NoError(t, store.Delete(2))

	_, err := store.Get(2)
	assert.ErrorIs(t, err, ErrCardNotFound)

	words := []string{}
	for _, c := range store.All() {
		words = append(words, c.Word)
	}
	assert.Equal(t, []string{"a", "c"}, words)

	reloaded := NewCardStore(kv, "", nil)
	reloaded.Load()
	assert.Equal(t, 2, reloaded.Count())

	assert.ErrorIs(t, store.Delete(42), ErrCardNotFound)
}

func TestCardStore_ExistsWord(t *testing.T) {
	store := NewCardStore(newMemoryKV(), "", nil)
	require.NoError(t, store.Append(sampleCard(1, "Bank")))

	assert.True(t, store.ExistsWord("bank"))
	assert.True(t, store.ExistsWord("  BANK "))
	assert.False(t, store.ExistsWord("river"))
}

func TestCardStore_NextIDAfterLoad(t *testing.T) {
	kv := newMemoryKV()
	first := NewCardStore(kv, "", nil)
	future := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, first.Append(sampleCard(future, "Bank")))

	store := NewCardStore(kv, "", nil)
	store.Load()

	id := store.NextID(time.Now())
	assert.Greater(t, id, future)
}

func TestCardStore_WithSQLite(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	store := NewCardStore(database, "", nil)
	store.Load()
	require.NoError(t, store.Append(sampleCard(1, "Bank")))

	reloaded := NewCardStore(database, "", nil)
	reloaded.Load()
	require.Equal(t, 1, reloaded.Count())

	require.NoError(t, database.Put(StorageKey, []byte("not json")))
	reloaded.Load()
	assert.Equal(t, 0, reloaded.Count())
}

func TestCardStore_ExportToJSON(t *testing.T) {
	store := NewCardStore(newMemoryKV(), "", nil)
	require.NoError(t, store.Append(sampleCard(1, "Bank")))

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, store.ExportToJSON(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var exported []Card
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Bank", exported[0].Word)
}

func TestIDGenerator_Monotonic(t *testing.T) {
	var g IDGenerator
	now := time.UnixMilli(1000)

	a := g.Next(now)
	b := g.Next(now)
	c := g.Next(now.Add(-time.Second))

	assert.Equal(t, int64(1000), a)
	assert.Equal(t, int64(1001), b)
	assert.Equal(t, int64(1002), c)
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultColor},
		{"#059669", "#059669"},
		{"#db2777", "#DB2777"},
		{"red", DefaultColor},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColor(tt.in))
		})
	}
	assert.True(t, IsPaletteColor("#7c3aed"))
	assert.False(t, IsPaletteColor("#000000"))
}
