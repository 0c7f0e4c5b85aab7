package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndOfStream is the data payload that closes a server-sent event stream.
const DefaultEndOfStream = "[DONE]"

// Codec encodes request bodies and decodes replies.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default Codec, backed by encoding/json.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Interceptor rewrites an outgoing request before anything else looks at it.
type Interceptor func(Request) Request

// Inspector checks an outgoing body; a non-nil error aborts the call before
// any byte is sent.
type Inspector func(body any) error

type Config struct {
	//required fields
	BaseURL string

	Headers     map[string]string // sent on every request
	Interceptor Interceptor
	Inspector   Inspector
	EndOfStream string // default: [DONE]
	Codec       Codec  // default: JSONCodec

	Timeout         time.Duration // per-request timeout (default: none, ctx only)
	MaxRetries      int           // retry attempts (default: 0)
	BaseBackoff     time.Duration // initial backoff (default: 100ms)
	MaxRequestBytes int           // encoded body cap (default: 32MiB)

	// Optional connection pool settings
	MaxIdleConns        int // default: 100
	MaxIdleConnsPerHost int // default: 100

	// Custom HTTP client (shared with the realtime dialer, or for tests)
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BaseURL %q is not an absolute URL", c.BaseURL)
	}
	if c.MaxRetries < 0 {
		return errors.New("MaxRetries must not be negative")
	}
	return nil
}

// WithDefaults returns a copy of Config with defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	// Normalize BaseURL: trim trailing slashes so we can safely append paths.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.EndOfStream == "" {
		cfg.EndOfStream = DefaultEndOfStream
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 32 << 20
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 100
	}

	return cfg
}

// NewHTTPClient builds the pooled client used when none is supplied.
func NewHTTPClient(cfg Config) *http.Client {
	cfg = cfg.WithDefaults()
	return &http.Client{Transport: defaultTransport(cfg)}
}

func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
