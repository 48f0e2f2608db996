// Package nats connects the API to NATS JetStream: the PLAYROOM event stream
// and, when chat sessions live in NATS, the session bucket.
package nats

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/klamlamwork/playroom/pkg/logger"
)

const clientName = "playroom"

// Config holds NATS connection and bootstrap configuration.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string

	// Sessions opens the chat session bucket; entries expire after SessionTTL.
	Sessions   bool
	SessionTTL time.Duration
}

// Client owns the NATS connection and the JetStream resources the API uses.
type Client struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	logger   *logger.Logger
	events   *StreamManager
	sessions jetstream.KeyValue
}

// Connect dials NATS, then ensures the event stream and, if configured, the
// session bucket exist.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	c := &Client{logger: log.With(zap.String("component", "nats"))}

	opts, err := c.options(cfg)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	c.conn, c.js = nc, js

	if err := c.bootstrap(ctx, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	c.logger.Info("connected to NATS",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("stream", StreamName),
		zap.Bool("sessions", c.sessions != nil),
	)
	return c, nil
}

func (c *Client) options(cfg Config) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			c.logger.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts, nil
}

func (c *Client) bootstrap(ctx context.Context, cfg Config) error {
	if err := ensureStream(ctx, c.js); err != nil {
		return err
	}
	c.events = &StreamManager{js: c.js}

	if !cfg.Sessions {
		return nil
	}
	kv, err := ensureSessionBucket(ctx, c.js, cfg.SessionTTL)
	if err != nil {
		return err
	}
	c.sessions = kv
	return nil
}

// Events returns the domain event publisher.
func (c *Client) Events() *StreamManager {
	return c.events
}

// Sessions returns the chat session bucket, or nil when Config.Sessions was off.
func (c *Client) Sessions() jetstream.KeyValue {
	return c.sessions
}

// Close drains and closes the NATS connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed, closing", zap.Error(err))
		c.conn.Close()
	}
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
