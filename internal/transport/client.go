package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"simple-openai-go/internal/metrics"
)

// Request is one outgoing call, before encoding.
type Request struct {
	Method string // default: POST with a body, GET without
	Path   string // appended to BaseURL
	Query  url.Values
	Header http.Header
	Body   any

	// Model lets interceptors route by model without decoding Body.
	Model string
}

// MultipartBody is a body sent as multipart/form-data instead of through
// the codec.
type MultipartBody interface {
	WriteMultipart(w *multipart.Writer) error
}

// Client sends requests to one API base URL.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client with the given configuration.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transport: invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: defaultTransport(cfg),
		}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HTTPClient returns the underlying client.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Codec returns the codec bodies and replies go through.
func (c *Client) Codec() Codec { return c.cfg.Codec }

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type prepared struct {
	req         Request
	url         string
	body        []byte
	contentType string
}

// prepare runs the interceptor, then the inspector, then encodes. Nothing
// is sent if any step fails.
func (c *Client) prepare(req Request) (prepared, error) {
	if c.cfg.Interceptor != nil {
		req = c.cfg.Interceptor(req)
	}
	if req.Method == "" {
		req.Method = http.MethodGet
		if req.Body != nil {
			req.Method = http.MethodPost
		}
	}

	if c.cfg.Inspector != nil && req.Body != nil {
		if err := c.cfg.Inspector(req.Body); err != nil {
			c.logger.Debug("request rejected before send",
				zap.String("path", req.Path),
				zap.String("body_type", fmt.Sprintf("%T", req.Body)),
				zap.Error(err),
			)
			return prepared{}, err
		}
	}

	p := prepared{req: req, url: c.cfg.BaseURL + req.Path}
	if len(req.Query) > 0 {
		p.url += "?" + req.Query.Encode()
	}

	switch body := req.Body.(type) {
	case nil:
	case MultipartBody:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if err := body.WriteMultipart(mw); err != nil {
			return prepared{}, fmt.Errorf("transport: encode multipart body: %w", err)
		}
		if err := mw.Close(); err != nil {
			return prepared{}, fmt.Errorf("transport: encode multipart body: %w", err)
		}
		p.body, p.contentType = buf.Bytes(), mw.FormDataContentType()
	default:
		data, err := c.cfg.Codec.Marshal(body)
		if err != nil {
			return prepared{}, fmt.Errorf("transport: marshal request: %w", err)
		}
		p.body, p.contentType = data, "application/json"
	}

	if len(p.body) > c.cfg.MaxRequestBytes {
		return prepared{}, fmt.Errorf("transport: request too large (%d bytes, max %d)",
			len(p.body), c.cfg.MaxRequestBytes)
	}

	return p, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// send performs the call with retries and turns non-2xx replies into *APIError.
func (c *Client) send(ctx context.Context, p prepared, accept string) (*http.Response, error) {
	start := time.Now()

	// doOnce builds a fresh *http.Request for each attempt
	doOnce := func(ctx context.Context) (*http.Response, error) {
		var body io.Reader
		if p.body != nil {
			body = bytes.NewReader(p.body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, p.req.Method, p.url, body)
		if err != nil {
			return nil, fmt.Errorf("transport: build HTTP request: %w", err)
		}
		for k, v := range c.cfg.Headers {
			httpReq.Header.Set(k, v)
		}
		for k, vs := range p.req.Header {
			httpReq.Header[k] = vs
		}
		if p.contentType != "" {
			httpReq.Header.Set("Content-Type", p.contentType)
		}
		if accept != "" {
			httpReq.Header.Set("Accept", accept)
		}
		return c.httpClient.Do(httpReq)
	}

	resp, err := c.doWithRetry(ctx, doOnce)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.ObserveUpstream(p.req.Path, p.req.Method, status, time.Since(start))

	if err != nil {
		c.logger.Error("api request failed",
			zap.String("path", p.req.Path),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		apiErr := parseAPIError(resp.StatusCode, body)
		c.logger.Error("api error response",
			zap.String("path", p.req.Path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("error_type", apiErr.Type),
			zap.String("error_message", apiErr.Message),
			zap.String("body", apiErr.Body),
		)
		return nil, apiErr
	}

	c.logger.Debug("api request completed",
		zap.String("path", p.req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// Do sends req and decodes the reply into out (skipped when out is nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	p, err := c.prepare(req)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, p, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("transport: read response: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := c.cfg.Codec.Unmarshal(body, out); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// DoRaw sends req and returns the reply body unread. The caller must close it.
func (c *Client) DoRaw(ctx context.Context, req Request) (io.ReadCloser, error) {
	p, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	resp, err := c.send(ctx, p, "")
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
