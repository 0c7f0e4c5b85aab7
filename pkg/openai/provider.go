package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"simple-openai-go/internal/cache"
	"simple-openai-go/internal/metrics"
	"simple-openai-go/internal/transport"
	"simple-openai-go/pkg/realtime"
	"simple-openai-go/pkg/validation"
)

// Provider owns one transport, an optional realtime client and the services
// built on them. It is safe for concurrent use.
type Provider struct {
	cfg        ClientConfig
	httpClient *http.Client
	transport  *transport.Client
	realtime   *realtime.Client
	cache      cache.ExactCache
	closers    []io.Closer
	logger     *zap.Logger

	services sync.Map // reflect.Type -> *serviceEntry
}

type serviceEntry struct {
	once  sync.Once
	value any
}

// NewProvider builds the configuration, the transport and, when realtime
// settings are present, the realtime client. Both share one *http.Client.
// logger overrides ClientConfig.Logger; with neither, nothing is logged.
func NewProvider(c Configurator, logger *zap.Logger) (*Provider, error) {
	if c == nil {
		return nil, ErrNilConfigurator
	}

	cfg, err := c.BuildConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.clone()

	if logger == nil {
		logger = cfg.Logger
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("provider")

	if err := metrics.Register(cfg.MetricsRegisterer); err != nil {
		return nil, fmt.Errorf("openai: register metrics: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(transport.Config{})
	}

	tc, err := transport.New(transport.Config{
		BaseURL:     cfg.BaseURL,
		Headers:     cfg.Headers,
		Interceptor: cfg.RequestInterceptor,
		Inspector:   bodyInspector(),
		EndOfStream: transport.DefaultEndOfStream,
		Codec:       cfg.Codec,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: cfg.BaseBackoff,
		HTTPClient:  httpClient,
	}, logger.Named("transport"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p := &Provider{
		cfg:        cfg,
		httpClient: httpClient,
		transport:  tc,
		logger:     logger,
	}
	// a caller-supplied client stays the caller's to close
	if cfg.HTTPClient == nil {
		p.closers = append(p.closers, tc)
	}

	if cfg.Realtime != nil {
		rc, err := realtime.New(httpClient, *cfg.Realtime, logger.Named("realtime"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		p.realtime = rc
	}

	if cfg.Cache != nil {
		if err := p.buildCache(*cfg.Cache); err != nil {
			return nil, err
		}
	}

	logger.Info("provider ready",
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("realtime", p.realtime != nil),
		zap.Bool("cache", p.cache != nil),
	)
	return p, nil
}

func (p *Provider) buildCache(cs CacheSettings) error {
	var redisClient *redis.Client
	if cs.Backend == cache.BackendRedis {
		rc, err := cache.NewRedisClient(cs.RedisURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		redisClient = rc
	}

	inner, err := cache.NewExactCache(cache.Config{
		Backend:       cs.Backend,
		TTL:           cs.TTL,
		Prefix:        cs.Prefix,
		MaxEntries:    cs.MaxEntries,
		MaxEntryBytes: cs.MaxEntryBytes,
	}, redisClient)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if pinger, ok := inner.(interface{ Ping(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := pinger.Ping(ctx)
		cancel()
		if err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("openai: cache backend unreachable: %w", err)
		}
	}
	if c, ok := inner.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}
	p.cache = cache.NewLoggingExactCache(inner, p.logger.Named("cache"))
	return nil
}

// bodyInspector validates every outgoing body; violations abort the call
// before anything is sent.
func bodyInspector() transport.Inspector {
	inspect := validation.Default().Inspector()
	return func(body any) error {
		err := inspect(body)
		if err != nil {
			metrics.ConstraintViolationsTotal.WithLabelValues(reflect.TypeOf(body).String()).Inc()
		}
		return err
	}
}

// Service returns p's single T, calling build the first time T is asked for.
// Concurrent first calls for the same T build it once; every caller gets
// that instance.
func Service[T any](p *Provider, build func(*Provider) T) T {
	key := reflect.TypeOf((*T)(nil)).Elem()

	v, _ := p.services.LoadOrStore(key, &serviceEntry{})
	entry := v.(*serviceEntry)
	entry.once.Do(func() {
		entry.value = build(p)
		metrics.ServicesCreatedTotal.WithLabelValues(key.String()).Inc()
		p.logger.Debug("service created", zap.Stringer("service", key))
	})
	return entry.value.(T)
}

// Chat returns the chat completions service.
func (p *Provider) Chat() ChatService {
	return Service(p, newChatService)
}

// Audio returns the speech and transcription service.
func (p *Provider) Audio() AudioService {
	return Service(p, newAudioService)
}

// Realtime returns the realtime client, or nil when none was configured.
func (p *Provider) Realtime() *realtime.Client { return p.realtime }

// HTTPClient returns the handle shared by the transport and realtime client.
func (p *Provider) HTTPClient() *http.Client { return p.httpClient }

// Config returns a copy of the configuration the provider was built from.
func (p *Provider) Config() ClientConfig { return p.cfg.clone() }

// Close releases the response cache and, when the provider created its own
// HTTP client, that client's idle connections. Realtime sessions are closed
// by their owners.
func (p *Provider) Close() error {
	var err error
	for _, c := range p.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
