// Package realtime connects to the persistent, bidirectional realtime
// endpoint over a websocket.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config holds the realtime settings. Model is required; the other fields
// are usually filled in by a configurator.
type Config struct {
	Model       string            `yaml:"model"`
	EndpointURL string            `yaml:"endpoint_url"`
	Headers     map[string]string `yaml:"headers"`
	QueryParams map[string]string `yaml:"query_params"`
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.New("realtime model is required")
	}
	if c.EndpointURL == "" {
		return errors.New("realtime endpoint URL is required")
	}
	u, err := url.Parse(c.EndpointURL)
	if err != nil {
		return fmt.Errorf("realtime endpoint URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("realtime endpoint URL %q must use ws or wss", c.EndpointURL)
	}
	return nil
}

// Client dials realtime sessions. It shares its *http.Client with the
// request/response transport so proxy, TLS and cookie settings match.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger
}

// New creates a realtime Client. A nil httpClient means http.DefaultClient.
func New(httpClient *http.Client, cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("realtime: invalid config: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	u, _ := url.Parse(cfg.EndpointURL)
	q := u.Query()
	for k, v := range cfg.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return &Client{
		cfg:        cfg,
		endpoint:   u.String(),
		httpClient: httpClient,
		dialer:     dialerFor(httpClient),
		logger:     logger,
	}, nil
}

// dialerFor copies what a websocket handshake can reuse from an HTTP client.
func dialerFor(hc *http.Client) *websocket.Dialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
		Jar:              hc.Jar,
	}
	if t, ok := hc.Transport.(*http.Transport); ok {
		if t.Proxy != nil {
			d.Proxy = t.Proxy
		}
		if t.TLSClientConfig != nil {
			d.TLSClientConfig = t.TLSClientConfig.Clone()
		}
		if t.DialContext != nil {
			d.NetDialContext = t.DialContext
		}
		if t.TLSHandshakeTimeout > 0 {
			d.HandshakeTimeout = t.TLSHandshakeTimeout
		}
	}
	return d
}

// Model returns the model sessions are opened for.
func (c *Client) Model() string { return c.cfg.Model }

// Endpoint returns the full websocket URL, query parameters included.
func (c *Client) Endpoint() string { return c.endpoint }

// HTTPClient returns the shared HTTP handle.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Connect opens a new session. The handshake honours ctx; the returned
// session does not outlive Close.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	header := http.Header{}
	for k, v := range c.cfg.Headers {
		header.Set(k, v)
	}

	start := time.Now()
	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			resp.Body.Close()
		}
		c.logger.Error("realtime dial failed",
			zap.String("model", c.cfg.Model),
			zap.Int("status", status),
			zap.Error(err),
		)
		return nil, fmt.Errorf("realtime: dial %s: %w", c.cfg.Model, err)
	}

	c.logger.Info("realtime session opened",
		zap.String("model", c.cfg.Model),
		zap.Duration("duration", time.Since(start)),
	)
	return newSession(conn, c.logger), nil
}
