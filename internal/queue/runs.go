package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Layout of the run work queue: one stream, one durable consumer.
// Work-queue retention hands each queued run to exactly one worker.
const (
	StreamRuns        = "PROMPTEVAL_RUNS"
	SubjectRunsAll    = "runs.>"
	SubjectRunExecute = "runs.execute"
	ConsumerRunWorker = "run-worker"

	// runAckWait must outlast the longest suite a worker can hold while
	// executing it
	runAckWait    = 10 * time.Minute
	runMaxDeliver = 3
)

// SetupStreams declares the run stream and its worker consumer.
// CreateOrUpdate keeps restarts idempotent.
func (c *Client) SetupStreams(ctx context.Context) error {
	js := c.JetStream()
	if js == nil {
		return fmt.Errorf("not connected to NATS")
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamRuns,
		Description: "PromptEval suite runs awaiting execution",
		Subjects:    []string{SubjectRunsAll},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		Discard:     jetstream.DiscardOld,
		MaxMsgs:     10000,
		MaxAge:      24 * time.Hour,
	}); err != nil {
		return fmt.Errorf("failed to create run stream: %w", err)
	}

	if _, err := js.CreateOrUpdateConsumer(ctx, StreamRuns, jetstream.ConsumerConfig{
		Name:          ConsumerRunWorker,
		Durable:       ConsumerRunWorker,
		FilterSubject: SubjectRunExecute,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       runAckWait,
		MaxDeliver:    runMaxDeliver,
		MaxAckPending: 16,
	}); err != nil {
		return fmt.Errorf("failed to create run consumer: %w", err)
	}

	return nil
}

// RunMessage is the payload published for a queued suite run
type RunMessage struct {
	RunID     uuid.UUID `json:"run_id"`
	QueuedAt  time.Time `json:"queued_at"`
	Requester string    `json:"requester,omitempty"`
}

// PublishRun publishes a queued suite run for worker pickup
func (c *Client) PublishRun(ctx context.Context, runID uuid.UUID) error {
	js := c.JetStream()
	if js == nil {
		return fmt.Errorf("not connected to NATS")
	}

	data, err := json.Marshal(RunMessage{
		RunID:    runID,
		QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode run message: %w", err)
	}

	if _, err := js.Publish(ctx, SubjectRunExecute, data); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", runID, err)
	}
	return nil
}

// DecodeRunMessage decodes a run message payload
func DecodeRunMessage(data []byte) (*RunMessage, error) {
	var msg RunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode run message: %w", err)
	}
	if msg.RunID == uuid.Nil {
		return nil, fmt.Errorf("run message has no run_id")
	}
	return &msg, nil
}
