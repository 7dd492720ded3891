// Package queue hands suite runs from the API to the worker over NATS
// JetStream.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Client is the JetStream handle shared by the publish side (API) and
// the consume side (worker).
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the NATS server at url. Reconnection is left
// to the nats client; a run published while disconnected fails and the
// caller surfaces the error.
func NewClient(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("prompteval"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("lost NATS connection")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Info().Str("url", url).Msg("connected to NATS JetStream")
	return &Client{nc: nc, js: js}, nil
}

// JetStream returns the JetStream context, or nil after Close.
func (c *Client) JetStream() jetstream.JetStream {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil
	}
	return c.js
}

// IsConnected reports whether the underlying connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.nc != nil && c.nc.IsConnected()
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.nc != nil {
		c.nc.Close()
		log.Info().Msg("NATS connection closed")
	}
}

// HealthCheck answers for the readiness probe.
func (c *Client) HealthCheck() error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to NATS")
	}
	return nil
}
