package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiraleos/sermon-assistant/internal/api"
	"github.com/kiraleos/sermon-assistant/internal/bible"
	"github.com/kiraleos/sermon-assistant/internal/bolls"
	"github.com/kiraleos/sermon-assistant/internal/config"
	"github.com/kiraleos/sermon-assistant/internal/core"
	"github.com/kiraleos/sermon-assistant/internal/logging"
	"github.com/kiraleos/sermon-assistant/internal/sermon"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	_, closeLog, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Journal: cfg.LogJournal,
	})
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.Debug("service starting in debug mode")

	// Initialize settings database
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize database", "path", cfg.DatabaseURL, "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	if err := seedAPIKey(dbStore, cfg.GeminiAPIKey); err != nil {
		slog.Warn("failed to seed api key from environment", "error", err)
	}

	llmService := core.NewLLMService(cfg.GeminiModel)
	defer llmService.Close()

	assistant := core.NewAssistant(llmService, dbStore)
	lookupService := core.NewLookupService(
		bible.NewParser(cfg.SimilarityThreshold),
		bolls.NewClient(cfg.BibleAPIURL, nil),
		dbStore,
	)
	sermons := sermon.NewStore(cfg.SermonFile)

	apiHandler := api.NewAPIHandler(api.Deps{
		Chat:        core.NewChatService(dbStore, assistant),
		Lookup:      lookupService,
		Notes:       core.NewNotesService(assistant, sermons, lookupService),
		Sermons:     sermons,
		Keys:        dbStore,
		JWTSecret:   cfg.JWTSecret,
		Translation: cfg.DefaultTranslation,
	})
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, API is unauthenticated")
	}
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // a rotation may try several keys
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("could not listen", "addr", serverAddr, "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exiting")
}

// seedAPIKey stores the GEMINI_API_KEY value when the key table is still empty.
func seedAPIKey(db *store.SQLiteStore, key string) error {
	if key == "" {
		return nil
	}
	keys, err := db.ListAPIKeys()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return nil
	}
	if err := db.AddAPIKey(key); err != nil {
		return err
	}
	slog.Info("seeded api key from environment")
	return nil
}
