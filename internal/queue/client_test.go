package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompteval-hq/prompteval/internal/testutil"
)

// setupNATS connects to a local NATS server or skips the test
func setupNATS(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client, err := NewClient(testutil.GetTestNATSURL())
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}
	t.Cleanup(client.Close)

	return client
}

func TestClient_Integration_SetupStreams(t *testing.T) {
	client := setupNATS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, client.SetupStreams(ctx))
	assert.True(t, client.IsConnected())
	assert.NoError(t, client.HealthCheck())

	stream, err := client.JetStream().Stream(ctx, StreamRuns)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, jetstream.WorkQueuePolicy, info.Config.Retention)
	assert.Equal(t, []string{SubjectRunsAll}, info.Config.Subjects)

	consumer, err := stream.Consumer(ctx, ConsumerRunWorker)
	require.NoError(t, err)
	consumerInfo, err := consumer.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, SubjectRunExecute, consumerInfo.Config.FilterSubject)
	assert.Equal(t, runMaxDeliver, consumerInfo.Config.MaxDeliver)
	assert.Equal(t, runAckWait, consumerInfo.Config.AckWait)
}

func TestClient_Integration_PublishRun(t *testing.T) {
	client := setupNATS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, client.SetupStreams(ctx))

	stream, err := client.JetStream().Stream(ctx, StreamRuns)
	require.NoError(t, err)
	before, err := stream.Info(ctx)
	require.NoError(t, err)

	require.NoError(t, client.PublishRun(ctx, uuid.New()))

	after, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.State.Msgs+1, after.State.Msgs)
}

func TestClient_HealthCheck_AfterClose(t *testing.T) {
	client := setupNATS(t)
	client.Close()

	assert.Error(t, client.HealthCheck())
	assert.False(t, client.IsConnected())
}
