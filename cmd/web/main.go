package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/api"
	"github.com/parsely/flipcards/internal/app"
	"github.com/parsely/flipcards/internal/config"
	"github.com/parsely/flipcards/internal/logging"
)

func main() {
	cfg, err := config.Load(nil, config.Options{ConfigFile: os.Getenv("FLIPCARDS_CONFIG")})
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := logging.Must(cfg.Env, cfg.Log.File)
	defer logger.Sync()

	a, err := app.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open card store", zap.Error(err))
	}
	defer a.Close()

	handler := &api.Handler{
		Service: a.Service,
		Log:     logger,
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Wrap(api.NewRouter(handler), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	fmt.Printf("Starting Flipcards web server on http://localhost%s\n", server.Addr)
	fmt.Printf("Database: %s\n", cfg.DB.Path)
	fmt.Println("\nAPI Endpoints:")
	fmt.Println("  GET    /api/cards        - List all cards")
	fmt.Println("  POST   /api/cards        - Create a card from a draft")
	fmt.Println("  GET    /api/cards/{id}   - Get card by ID")
	fmt.Println("  DELETE /api/cards/{id}   - Delete card by ID")
	fmt.Println("  POST   /api/images       - Decode an image into a data URI")
	fmt.Println("  POST   /api/import       - Import cards from a document")
	fmt.Println("  GET    /api/export       - Download cards as JSON")
	fmt.Println("  GET    /api/review       - Cards in shuffled review order")
	fmt.Println("  POST   /api/suggest      - Suggest card content for a word")
	fmt.Println("  GET    /api/stats        - Card statistics")
	fmt.Println("  GET    /health           - Health check")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
	}
}
