// Package app wires the configured stores and engines into a core.Service for the front ends.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/ai"
	"github.com/parsely/flipcards/internal/config"
	"github.com/parsely/flipcards/internal/core"
	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/imaging"
	"github.com/parsely/flipcards/internal/speech"
)

// App holds the opened resources behind a Service
type App struct {
	Service *core.Service
	Speaker speech.Speaker

	database *db.Database
	log      *zap.Logger
}

// Open initializes the database, loads the cards and starts the speech engine
func Open(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	database, err := db.NewDatabase(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := db.NewCardStore(database, cfg.Storage.Key, log)
	store.Load()

	speaker := speech.New(cfg.SpeechSettings(), log)

	var suggester ai.Suggester
	if cfg.AI.AnthropicKey != "" {
		claude, err := ai.NewClaudeSuggester(cfg.AI.AnthropicKey, log)
		if err != nil {
			log.Warn("suggestions disabled", zap.Error(err))
		} else {
			suggester = claude
		}
	}

	log.Info("card store ready",
		zap.String("db", cfg.DB.Path),
		zap.Int("cards", store.Count()),
		zap.Bool("suggestions", suggester != nil))

	return &App{
		Service:  core.NewService(store, imaging.NewDecoder(), speaker, suggester, log),
		Speaker:  speaker,
		database: database,
		log:      log,
	}, nil
}

// Close stops speech and closes the database
func (a *App) Close() error {
	if err := a.Speaker.Close(); err != nil {
		a.log.Warn("failed to stop speech", zap.Error(err))
	}
	if err := a.database.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// WaitSpeech blocks until queued utterances have been played, then releases the engine
func (a *App) WaitSpeech() {
	if q, ok := a.Speaker.(interface{ Wait() }); ok {
		q.Wait()
	}
}
