package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Store provides database operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool()}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Prompt represents a versioned prompt template
type Prompt struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TestRun represents one execution of a suite
type TestRun struct {
	ID          uuid.UUID        `json:"id"`
	SuiteName   string           `json:"suite_name"`
	Status      string           `json:"status"` // queued, running, completed, failed
	SuiteDef    json.RawMessage  `json:"suite_def"`
	Summary     *json.RawMessage `json:"summary,omitempty"`
	Error       *string          `json:"error,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TestResult represents the verdict for one case/target combination
type TestResult struct {
	ID              uuid.UUID `json:"id"`
	RunID           uuid.UUID `json:"run_id"`
	CaseName        string    `json:"case_name"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	Passed          bool      `json:"passed"`
	Score           float64   `json:"score"`
	Response        *string   `json:"response,omitempty"`
	Error           *string   `json:"error,omitempty"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// InitSchema creates tables if they do not exist
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		version INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS test_runs (
		id UUID PRIMARY KEY,
		suite_name TEXT NOT NULL,
		status TEXT NOT NULL,
		suite_def JSONB NOT NULL,
		summary JSONB,
		error TEXT,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS test_results (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
		case_name TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		passed BOOLEAN NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		response TEXT,
		error TEXT,
		execution_time_ms BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_test_results_run_id ON test_results(run_id);`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// CreatePrompt inserts a new prompt at version 1
func (s *Store) CreatePrompt(ctx context.Context, name, content string) (*Prompt, error) {
	p := &Prompt{ID: uuid.New(), Name: name, Content: content, Version: 1}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO prompts (id, name, content, version)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Content, p.Version,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}

	return p, nil
}

// GetPrompt retrieves a prompt by ID
func (s *Store) GetPrompt(ctx context.Context, id uuid.UUID) (*Prompt, error) {
	var p Prompt
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, content, version, created_at, updated_at
		 FROM prompts WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Content, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return &p, nil
}

// ListPrompts returns all prompts, newest first
func (s *Store) ListPrompts(ctx context.Context) ([]*Prompt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, content, version, created_at, updated_at
		 FROM prompts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*Prompt
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.Name, &p.Content, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, &p)
	}
	return prompts, rows.Err()
}

// UpdatePrompt replaces a prompt's content and bumps its version
func (s *Store) UpdatePrompt(ctx context.Context, id uuid.UUID, content string) (*Prompt, error) {
	var p Prompt
	err := s.pool.QueryRow(ctx,
		`UPDATE prompts
		 SET content = $2, version = version + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, content, version, created_at, updated_at`,
		id, content,
	).Scan(&p.ID, &p.Name, &p.Content, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	return &p, nil
}

// DeletePrompt removes a prompt
func (s *Store) DeletePrompt(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRun inserts a queued test run
func (s *Store) CreateRun(ctx context.Context, suiteName string, suiteDef json.RawMessage) (*TestRun, error) {
	run := &TestRun{
		ID:        uuid.New(),
		SuiteName: suiteName,
		Status:    "queued",
		SuiteDef:  suiteDef,
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO test_runs (id, suite_name, status, suite_def)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		run.ID, run.SuiteName, run.Status, run.SuiteDef,
	).Scan(&run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*TestRun, error) {
	var run TestRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, suite_name, status, suite_def, summary, error, started_at, completed_at, created_at
		 FROM test_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.SuiteName, &run.Status, &run.SuiteDef, &run.Summary,
		&run.Error, &run.StartedAt, &run.CompletedAt, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// MarkRunRunning transitions a run to running
func (s *Store) MarkRunRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE test_runs SET status = 'running', started_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteRun stores the summary and transitions a run to completed
func (s *Store) CompleteRun(ctx context.Context, id uuid.UUID, summary json.RawMessage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE test_runs SET status = 'completed', summary = $2, completed_at = now() WHERE id = $1`,
		id, summary)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FailRun records an execution error and transitions a run to failed
func (s *Store) FailRun(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE test_runs SET status = 'failed', error = $2, completed_at = now() WHERE id = $1`,
		id, message)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResult inserts one test result row
func (s *Store) SaveResult(ctx context.Context, result *TestResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO test_results
		 (id, run_id, case_name, provider, model, passed, score, response, error, execution_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.ID, result.RunID, result.CaseName, result.Provider, result.Model,
		result.Passed, result.Score, result.Response, result.Error, result.ExecutionTimeMS)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// ListRunResults returns all results for a run, oldest first
func (s *Store) ListRunResults(ctx context.Context, runID uuid.UUID) ([]*TestResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, case_name, provider, model, passed, score, response, error, execution_time_ms, created_at
		 FROM test_results WHERE run_id = $1 ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*TestResult
	for rows.Next() {
		var r TestResult
		if err := rows.Scan(&r.ID, &r.RunID, &r.CaseName, &r.Provider, &r.Model,
			&r.Passed, &r.Score, &r.Response, &r.Error, &r.ExecutionTimeMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
