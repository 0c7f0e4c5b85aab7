// Package openai binds the wire model to an HTTP transport. A Configurator
// produces a ClientConfig, and a Provider built from it hands out services
// that share one transport and, when configured, one realtime client.
package openai

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"simple-openai-go/internal/transport"
	"simple-openai-go/pkg/domain/chat"
	"simple-openai-go/pkg/realtime"
)

var (
	// ErrInvalidConfig wraps every configuration failure.
	ErrInvalidConfig = errors.New("openai: invalid config")
	// ErrNilConfigurator is returned by NewProvider when given no configurator.
	ErrNilConfigurator = errors.New("openai: configurator is required")
)

type (
	// Request is the outgoing call seen by a RequestInterceptor.
	Request = transport.Request
	// Interceptor rewrites a request before validation and encoding.
	Interceptor = transport.Interceptor
	// Codec encodes request bodies and decodes replies.
	Codec = transport.Codec
	// APIError is a non-2xx reply from the API.
	APIError = transport.APIError
	// ChatStreamResult is one element of a chat completion stream.
	ChatStreamResult = transport.StreamResult[chat.ChatChunk]
	// RealtimeConfig holds the realtime model, endpoint, headers and query
	// parameters.
	RealtimeConfig = realtime.Config
)

// RealtimeOf returns realtime settings for model with everything else left
// to the configurator's defaults.
func RealtimeOf(model string) *RealtimeConfig {
	return &RealtimeConfig{Model: model}
}

// CacheSettings enables the chat completion response cache.
type CacheSettings struct {
	Backend   string        `yaml:"backend"`    // memory (default) or redis
	RedisURL  string        `yaml:"redis_url"`  // redis://... when Backend is redis
	Prefix    string        `yaml:"prefix"`     // redis key prefix
	TTL       time.Duration `yaml:"ttl"`        // default: 10m
	VersionID string        `yaml:"version_id"` // bump to invalidate all entries

	MaxEntries    int `yaml:"max_entries"`     // memory backend, default 1024
	MaxEntryBytes int `yaml:"max_entry_bytes"` // larger replies are not cached, default 1MiB
}

// ClientConfig is the settings snapshot a Provider is built from. Obtain it
// from a Configurator; the Provider keeps its own copy.
type ClientConfig struct {
	//required fields
	BaseURL string

	Headers            map[string]string
	HTTPClient         *http.Client // shared by the transport and realtime; default: pooled client
	RequestInterceptor Interceptor
	Codec              Codec           // default: encoding/json
	Realtime           *RealtimeConfig // nil disables realtime

	Logger            *zap.Logger           // default: no-op
	Cache             *CacheSettings        // nil disables the response cache
	MetricsRegisterer prometheus.Registerer // default: prometheus.DefaultRegisterer

	MaxRetries  int           // default: 0
	BaseBackoff time.Duration // default: 100ms
	Timeout     time.Duration // per-request timeout (default: none, ctx only)
}

// Validate checks required fields only.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if c.Realtime != nil {
		if err := c.Realtime.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// clone copies the maps so later changes by the caller are not observed.
func (c ClientConfig) clone() ClientConfig {
	c.Headers = maps.Clone(c.Headers)
	if c.Realtime != nil {
		rt := *c.Realtime
		rt.Headers = maps.Clone(rt.Headers)
		rt.QueryParams = maps.Clone(rt.QueryParams)
		c.Realtime = &rt
	}
	if c.Cache != nil {
		cs := *c.Cache
		c.Cache = &cs
	}
	return c
}

// Configurator produces a validated ClientConfig from raw inputs.
type Configurator interface {
	BuildConfig() (ClientConfig, error)
}
