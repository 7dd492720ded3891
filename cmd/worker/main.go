package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/config"
	"github.com/prompteval-hq/prompteval/internal/db"
	"github.com/prompteval-hq/prompteval/internal/llm"
	"github.com/prompteval-hq/prompteval/internal/queue"
	"github.com/prompteval-hq/prompteval/internal/runner"
	"github.com/prompteval-hq/prompteval/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	store := db.NewStore(database)
	if err := store.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}

	// Connect to NATS
	natsClient, err := queue.NewClient(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer natsClient.Close()

	if err := natsClient.SetupStreams(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to setup streams")
	}

	// Create completion router and probe indirection
	router, err := llm.NewRouter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completion router")
	}
	status := router.RefreshHealth(ctx)
	log.Info().Str("indirection", string(status)).Msg("completion router ready")

	run := runner.New(router, runner.Config{
		Threshold:   cfg.LLM.PassThreshold,
		Concurrency: 4,
	})

	w := worker.New(worker.Config{
		NATS:   natsClient,
		Store:  store,
		Runner: run,
	})

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("worker is shutting down...")
		cancel()
	}()

	log.Info().Msg("starting run worker")
	if err := w.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker error")
	}

	log.Info().Msg("worker stopped")
}
