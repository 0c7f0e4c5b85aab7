package openai

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://api.openai.com"
	DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"
)

// OpenAIConfigurator targets the public OpenAI API.
type OpenAIConfigurator struct {
	APIKey         string
	OrganizationID string
	ProjectID      string
	BaseURL        string // default: DefaultBaseURL

	Headers     map[string]string
	HTTPClient  *http.Client
	Codec       Codec
	Interceptor Interceptor
	Realtime    *RealtimeConfig

	Logger            *zap.Logger
	Cache             *CacheSettings
	MetricsRegisterer prometheus.Registerer
	MaxRetries        int
	BaseBackoff       time.Duration
	Timeout           time.Duration
}

// BuildConfig applies the OpenAI defaults: bearer auth, organization and
// project headers, and the default realtime endpoint with the model passed
// as a query parameter.
func (o OpenAIConfigurator) BuildConfig() (ClientConfig, error) {
	if o.APIKey == "" {
		return ClientConfig{}, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	headers := maps.Clone(o.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Authorization"] = "Bearer " + o.APIKey
	if o.OrganizationID != "" {
		headers["OpenAI-Organization"] = o.OrganizationID
	}
	if o.ProjectID != "" {
		headers["OpenAI-Project"] = o.ProjectID
	}

	cfg := ClientConfig{
		BaseURL:            firstNonEmpty(o.BaseURL, DefaultBaseURL),
		Headers:            headers,
		HTTPClient:         o.HTTPClient,
		RequestInterceptor: o.Interceptor,
		Codec:              o.Codec,
		Logger:             o.Logger,
		Cache:              o.Cache,
		MetricsRegisterer:  o.MetricsRegisterer,
		MaxRetries:         o.MaxRetries,
		BaseBackoff:        o.BaseBackoff,
		Timeout:            o.Timeout,
	}

	if o.Realtime != nil {
		if o.Realtime.Model == "" {
			return ClientConfig{}, fmt.Errorf("%w: realtime model is required", ErrInvalidConfig)
		}
		rt := *o.Realtime
		rt.EndpointURL = firstNonEmpty(rt.EndpointURL, DefaultRealtimeURL)
		rt.Headers = maps.Clone(rt.Headers)
		if rt.Headers == nil {
			rt.Headers = map[string]string{}
		}
		rt.Headers["Authorization"] = "Bearer " + o.APIKey
		rt.Headers["OpenAI-Beta"] = "realtime=v1"
		rt.QueryParams = maps.Clone(rt.QueryParams)
		if rt.QueryParams == nil {
			rt.QueryParams = map[string]string{}
		}
		rt.QueryParams["model"] = rt.Model
		cfg.Realtime = &rt
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// AzureConfigurator targets an Azure OpenAI resource. Requests are routed to
// /openai/deployments/<model>/... and carry the api-version query parameter.
type AzureConfigurator struct {
	//required fields
	APIKey     string
	BaseURL    string // https://<resource>.openai.azure.com
	APIVersion string

	Headers    map[string]string
	HTTPClient *http.Client
	Codec      Codec

	// Realtime needs an explicit EndpointURL; Azure has no global default.
	Realtime *RealtimeConfig

	Logger            *zap.Logger
	Cache             *CacheSettings
	MetricsRegisterer prometheus.Registerer
	MaxRetries        int
	BaseBackoff       time.Duration
	Timeout           time.Duration
}

func (a AzureConfigurator) BuildConfig() (ClientConfig, error) {
	switch {
	case a.APIKey == "":
		return ClientConfig{}, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	case a.BaseURL == "":
		return ClientConfig{}, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	case a.APIVersion == "":
		return ClientConfig{}, fmt.Errorf("%w: API version is required", ErrInvalidConfig)
	}

	headers := maps.Clone(a.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["api-key"] = a.APIKey

	cfg := ClientConfig{
		BaseURL:            a.BaseURL,
		Headers:            headers,
		HTTPClient:         a.HTTPClient,
		RequestInterceptor: azureInterceptor(a.APIVersion),
		Codec:              a.Codec,
		Logger:             a.Logger,
		Cache:              a.Cache,
		MetricsRegisterer:  a.MetricsRegisterer,
		MaxRetries:         a.MaxRetries,
		BaseBackoff:        a.BaseBackoff,
		Timeout:            a.Timeout,
	}

	if a.Realtime != nil {
		if a.Realtime.Model == "" || a.Realtime.EndpointURL == "" {
			return ClientConfig{}, fmt.Errorf("%w: realtime needs a model and an endpoint URL", ErrInvalidConfig)
		}
		rt := *a.Realtime
		rt.Headers = maps.Clone(rt.Headers)
		if rt.Headers == nil {
			rt.Headers = map[string]string{}
		}
		rt.Headers["api-key"] = a.APIKey
		rt.QueryParams = maps.Clone(rt.QueryParams)
		if rt.QueryParams == nil {
			rt.QueryParams = map[string]string{}
		}
		rt.QueryParams["api-version"] = a.APIVersion
		rt.QueryParams["deployment"] = rt.Model
		cfg.Realtime = &rt
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// azureInterceptor rewrites /v1/<op> to /openai/deployments/<model>/<op>.
// Requests without a model keep their path.
func azureInterceptor(apiVersion string) Interceptor {
	return func(req Request) Request {
		if req.Model != "" {
			op := strings.TrimPrefix(req.Path, "/v1")
			req.Path = "/openai/deployments/" + url.PathEscape(req.Model) + op
		}
		q := url.Values{}
		for k, v := range req.Query {
			q[k] = v
		}
		q.Set("api-version", apiVersion)
		req.Query = q
		return req
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
