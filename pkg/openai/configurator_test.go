package openai

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestOpenAIConfiguratorDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := OpenAIConfigurator{
		APIKey:         "sk",
		OrganizationID: "org",
		ProjectID:      "proj",
		Realtime:       RealtimeOf("rt"),
	}.BuildConfig()
	if err != nil {
		t.Fatalf("BuildConfig: %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base URL, got %s", cfg.BaseURL)
	}
	wantHeaders := map[string]string{
		"Authorization":       "Bearer sk",
		"OpenAI-Organization": "org",
		"OpenAI-Project":      "proj",
	}
	if diff := cmp.Diff(wantHeaders, cfg.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}

	rt := cfg.Realtime
	if rt.EndpointURL != DefaultRealtimeURL || rt.Headers["OpenAI-Beta"] != "realtime=v1" || rt.QueryParams["model"] != "rt" {
		t.Fatalf("unexpected realtime config: %#v", rt)
	}
}

func TestOpenAIConfiguratorErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]OpenAIConfigurator{
		"missing key":            {},
		"realtime without model": {APIKey: "sk", Realtime: &RealtimeConfig{}},
		"realtime bad scheme":    {APIKey: "sk", Realtime: &RealtimeConfig{Model: "m", EndpointURL: "https://x"}},
	}
	for name, c := range cases {
		if _, err := c.BuildConfig(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestConfiguratorDoesNotAliasCallerMaps(t *testing.T) {
	t.Parallel()

	headers := map[string]string{"X-Trace": "1"}
	rt := &RealtimeConfig{Model: "rt", QueryParams: map[string]string{"a": "b"}}

	cfg, err := OpenAIConfigurator{APIKey: "sk", Headers: headers, Realtime: rt}.BuildConfig()
	if err != nil {
		t.Fatalf("BuildConfig: %v", err)
	}

	if _, ok := headers["Authorization"]; ok {
		t.Fatalf("caller headers must not be modified")
	}
	if _, ok := rt.QueryParams["model"]; ok || rt.EndpointURL != "" {
		t.Fatalf("caller realtime config must not be modified: %#v", rt)
	}
	if cfg.Headers["X-Trace"] != "1" {
		t.Fatalf("caller headers must be carried over")
	}
}

func TestAzureConfigurator(t *testing.T) {
	t.Parallel()

	if _, err := (AzureConfigurator{APIKey: "k", BaseURL: "https://r.openai.azure.com"}).BuildConfig(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected missing api version to fail, got %v", err)
	}
	if _, err := (AzureConfigurator{
		APIKey: "k", BaseURL: "https://r.openai.azure.com", APIVersion: "v",
		Realtime: RealtimeOf("rt"),
	}).BuildConfig(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected realtime without endpoint to fail, got %v", err)
	}

	cfg, err := AzureConfigurator{APIKey: "k", BaseURL: "https://r.openai.azure.com", APIVersion: "2024-10-21"}.BuildConfig()
	if err != nil {
		t.Fatalf("BuildConfig: %v", err)
	}
	if cfg.Headers["api-key"] != "k" {
		t.Fatalf("expected api-key header, got %#v", cfg.Headers)
	}

	out := cfg.RequestInterceptor(Request{Path: "/v1/audio/speech", Model: "tts deploy"})
	if out.Path != "/openai/deployments/tts%20deploy/audio/speech" {
		t.Fatalf("unexpected rewritten path %s", out.Path)
	}
	if out.Query.Get("api-version") != "2024-10-21" {
		t.Fatalf("expected api-version query, got %v", out.Query)
	}

	untouched := cfg.RequestInterceptor(Request{Path: "/v1/models"})
	if untouched.Path != "/v1/models" {
		t.Fatalf("requests without a model keep their path, got %s", untouched.Path)
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("FAKE_OPENAI_KEY", "from-env")
	t.Setenv("OPENAI_PROJECT", "proj-env")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	yaml := `
api_key: ${FAKE_OPENAI_KEY}
base_url: http://127.0.0.1:8089
max_retries: 2
timeout: 30s
realtime:
  model: gpt-4o-realtime-preview
cache:
  backend: memory
  ttl: 5m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}

	if s.APIKey != "from-env" || s.Project != "proj-env" || s.MaxRetries != 2 || s.Timeout != 30*time.Second {
		t.Fatalf("unexpected settings: %#v", s)
	}
	if s.Cache == nil || s.Cache.TTL != 5*time.Minute {
		t.Fatalf("unexpected cache settings: %#v", s.Cache)
	}

	oc, ok := s.Configurator().(OpenAIConfigurator)
	if !ok {
		t.Fatalf("expected OpenAIConfigurator, got %T", s.Configurator())
	}
	cfg, err := oc.BuildConfig()
	if err != nil {
		t.Fatalf("BuildConfig: %v", err)
	}
	if cfg.Realtime.EndpointURL != DefaultRealtimeURL || cfg.BaseURL != "http://127.0.0.1:8089" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

func TestLoadSettingsRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("kind: bedrock\napi_key: k\n"), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}
