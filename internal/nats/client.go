package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shubhamrasal/jetwatch/internal/config"
	"github.com/shubhamrasal/jetwatch/internal/jetstream"
)

// Client wraps a NATS connection, the admin-facing JetStream context
// (stream and consumer management), and the jetstream.Client delivery core
// (publish/pull/fetch/subscribe).
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	core   *jetstream.Client
	logger *zap.Logger

	pubRetries    int
	pubRetryDelay time.Duration
}

// NewClient creates a new NATS client with JetStream enabled. reg, when
// non-nil, is where the delivery core's Prometheus counters are registered.
func NewClient(ctx *config.Context, logger *zap.Logger, reg prometheus.Registerer) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connectTimeout := ctx.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	opts := []nats.Option{
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("server", nc.ConnectedUrl()))
		}),
	}

	if ctx.Token != "" {
		opts = append(opts, nats.Token(ctx.Token))
	}

	if ctx.Creds != "" {
		opts = append(opts, nats.UserCredentials(ctx.Creds))
	}

	nc, err := nats.Connect(ctx.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	features := jetstream.NewFeatureSet()
	core := jetstream.NewClient(jetstream.NewTransport(nc, features), jetstream.ClientOpts{
		APIPrefix:   ctx.JSAPIPrefix,
		Logger:      logger,
		Features:    features,
		Registerer:  reg,
		IsConnected: nc.IsConnected,
	})

	return &Client{
		conn:          nc,
		js:            js,
		core:          core,
		logger:        logger,
		pubRetries:    ctx.PublishRetries,
		pubRetryDelay: ctx.PublishRetryDelay,
	}, nil
}

// Publish sends data through the delivery core, filling in the context's
// publish retry tuning when the caller left it unset.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, opts jetstream.PubOpts) (*jetstream.PubAck, error) {
	if opts.Retries == 0 {
		opts.Retries = c.pubRetries
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = c.pubRetryDelay
	}
	return c.core.Publish(ctx, subject, data, opts)
}

// Core returns the delivery-core client for publish/pull/fetch/subscribe
// operations.
func (c *Client) Core() *jetstream.Client {
	return c.core
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// IsConnected returns true if the client is connected to NATS
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Stats returns connection statistics
func (c *Client) Stats() nats.Statistics {
	if c.conn != nil {
		return c.conn.Stats()
	}
	return nats.Statistics{}
}

// ServerInfo returns NATS server information
func (c *Client) ServerInfo() (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("not connected")
	}

	servers := c.conn.Servers()
	if len(servers) > 0 {
		return servers[0], nil
	}

	return "unknown", nil
}

// Ping checks if the connection is alive
func (c *Client) Ping(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	done := make(chan error, 1)

	go func() {
		err := c.conn.FlushTimeout(2 * time.Second)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
