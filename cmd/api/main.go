package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/api"
	"github.com/prompteval-hq/prompteval/internal/config"
	"github.com/prompteval-hq/prompteval/internal/db"
	"github.com/prompteval-hq/prompteval/internal/llm"
	"github.com/prompteval-hq/prompteval/internal/queue"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Connect to database (optional)
	var database *db.DB
	var store *db.Store
	if cfg.DatabaseURL != "" {
		database, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, storage endpoints disabled")
		} else {
			defer database.Close()
			store = db.NewStore(database)
			if err := store.InitSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to initialize schema")
			}
		}
	}

	// Connect to NATS (optional)
	var natsClient *queue.Client
	if cfg.NATSURL != "" {
		natsClient, err = queue.NewClient(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, run queuing disabled")
		} else {
			defer natsClient.Close()
			if err := natsClient.SetupStreams(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to setup streams")
			}
		}
	}

	// Create completion router and probe indirection before accepting traffic
	router, err := llm.NewRouter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completion router")
	}
	status := router.RefreshHealth(ctx)
	log.Info().Str("indirection", string(status)).Msg("completion router ready")

	serverCfg := api.ServerConfig{
		Config: cfg,
		LLM:    router,
	}
	if store != nil {
		serverCfg.Prompts = store
		serverCfg.Runs = store
		serverCfg.DB = database
	}
	if natsClient != nil {
		serverCfg.Publisher = natsClient
	}

	srv, err := api.NewServer(serverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Start server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Fatal().Err(err).Msg("could not gracefully shutdown the server")
		}
		close(done)
	}()

	log.Info().Int("port", cfg.Port).Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("could not listen on port")
	}

	<-done
	log.Info().Msg("server stopped")
}
