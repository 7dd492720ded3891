// Package worker drains queued suite runs from NATS and executes them
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/db"
	"github.com/prompteval-hq/prompteval/internal/queue"
	"github.com/prompteval-hq/prompteval/internal/runner"
	"github.com/prompteval-hq/prompteval/internal/suite"
)

// RunStore is the storage surface the worker needs
type RunStore interface {
	GetRun(ctx context.Context, id uuid.UUID) (*db.TestRun, error)
	MarkRunRunning(ctx context.Context, id uuid.UUID) error
	CompleteRun(ctx context.Context, id uuid.UUID, summary json.RawMessage) error
	FailRun(ctx context.Context, id uuid.UUID, message string) error
	SaveResult(ctx context.Context, result *db.TestResult) error
}

// RunWorker processes queued suite runs
type RunWorker struct {
	workerID   string
	nats       *queue.Client
	store      RunStore
	runner     *runner.Runner
	consumer   jetstream.Consumer
	pollPeriod time.Duration
}

// Config configures a RunWorker
type Config struct {
	WorkerID string
	NATS     *queue.Client
	Store    RunStore
	Runner   *runner.Runner
}

// New creates a run worker
func New(cfg Config) *RunWorker {
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = fmt.Sprintf("run-%s", uuid.New().String()[:8])
	}

	return &RunWorker{
		workerID:   workerID,
		nats:       cfg.NATS,
		store:      cfg.Store,
		runner:     cfg.Runner,
		pollPeriod: 5 * time.Second,
	}
}

// Run starts the worker processing loop
func (w *RunWorker) Run(ctx context.Context) error {
	logger := log.With().Str("worker_id", w.workerID).Logger()

	js := w.nats.JetStream()
	if js == nil {
		return fmt.Errorf("not connected to NATS")
	}

	consumer, err := js.Consumer(ctx, queue.StreamRuns, queue.ConsumerRunWorker)
	if err != nil {
		return fmt.Errorf("failed to get run consumer: %w", err)
	}
	w.consumer = consumer

	logger.Info().Msg("run worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("run worker stopping")
			return nil
		default:
			if err := w.processNext(ctx); err != nil {
				logger.Error().Err(err).Msg("error processing run")
			}
		}
	}
}

// processNext fetches and processes the next queued run
func (w *RunWorker) processNext(ctx context.Context) error {
	msgs, err := w.consumer.Fetch(1, jetstream.FetchMaxWait(w.pollPeriod))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil // Normal timeout, no runs queued
		}
		return fmt.Errorf("failed to fetch from NATS: %w", err)
	}

	for msg := range msgs.Messages() {
		runMsg, err := queue.DecodeRunMessage(msg.Data())
		if err != nil {
			log.Error().Err(err).Msg("failed to decode run message")
			msg.Nak()
			continue
		}

		if err := w.ProcessRun(ctx, runMsg.RunID); err != nil {
			log.Error().Err(err).Str("run_id", runMsg.RunID.String()).Msg("run failed")
			msg.Nak()
			continue
		}

		msg.Ack()
	}

	return nil
}

// ProcessRun loads a run's suite from the store, executes it, and
// persists the per-combination results and the summary
func (w *RunWorker) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	run, err := w.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	var s suite.Suite
	if err := json.Unmarshal(run.SuiteDef, &s); err != nil {
		w.failRun(ctx, runID, fmt.Sprintf("invalid suite definition: %v", err))
		return fmt.Errorf("invalid suite definition: %w", err)
	}
	if err := s.Validate(); err != nil {
		w.failRun(ctx, runID, err.Error())
		return err
	}

	if err := w.store.MarkRunRunning(ctx, runID); err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}

	log.Info().
		Str("run_id", runID.String()).
		Str("suite", s.Name).
		Msg("executing suite run")

	summary, err := w.runner.Run(ctx, &s)
	if err != nil {
		w.failRun(ctx, runID, err.Error())
		return err
	}

	for _, result := range summary.Results {
		row := &db.TestResult{
			RunID:           runID,
			CaseName:        result.CaseName,
			Provider:        string(result.Provider),
			Model:           result.Model,
			Passed:          result.Passed,
			Score:           result.Score,
			ExecutionTimeMS: result.ExecutionTimeMS,
		}
		if result.Response != "" {
			row.Response = &result.Response
		}
		if result.Error != "" {
			row.Error = &result.Error
		}
		if err := w.store.SaveResult(ctx, row); err != nil {
			log.Error().Err(err).Str("case", result.CaseName).Msg("failed to save result")
		}
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	return w.store.CompleteRun(ctx, runID, summaryJSON)
}

func (w *RunWorker) failRun(ctx context.Context, runID uuid.UUID, message string) {
	if err := w.store.FailRun(ctx, runID, message); err != nil {
		log.Error().Err(err).Str("run_id", runID.String()).Msg("failed to mark run failed")
	}
}
