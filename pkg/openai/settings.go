package openai

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	KindOpenAI = "openai"
	KindAzure  = "azure"
)

// Settings is the file and environment form of a configurator.
type Settings struct {
	Kind         string            `yaml:"kind"` // openai (default) or azure
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url"`
	Organization string            `yaml:"organization"`
	Project      string            `yaml:"project"`
	APIVersion   string            `yaml:"api_version"` // azure only
	Headers      map[string]string `yaml:"headers"`
	Realtime     *RealtimeConfig   `yaml:"realtime"`
	Cache        *CacheSettings    `yaml:"cache"`
	MaxRetries   int               `yaml:"max_retries"`
	Timeout      time.Duration     `yaml:"timeout"`
}

// LoadSettings reads YAML settings from path. ${VAR} references are
// expanded from the environment, and empty fields fall back to
// SettingsFromEnv.
func LoadSettings(path string) (Settings, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Settings{}, fmt.Errorf("resolve settings path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file %q: %w", absPath, err)
	}

	var s Settings
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings file %q: %w", absPath, err)
	}

	s = s.merge(SettingsFromEnv())
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings file %q: %w", absPath, err)
	}
	return s, nil
}

// SettingsFromEnv reads OPENAI_API_KEY, OPENAI_BASE_URL,
// OPENAI_ORGANIZATION, OPENAI_PROJECT, OPENAI_REALTIME_MODEL and
// OPENAI_MAX_RETRIES.
func SettingsFromEnv() Settings {
	s := Settings{
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		BaseURL:      os.Getenv("OPENAI_BASE_URL"),
		Organization: os.Getenv("OPENAI_ORGANIZATION"),
		Project:      os.Getenv("OPENAI_PROJECT"),
	}
	if model := os.Getenv("OPENAI_REALTIME_MODEL"); model != "" {
		s.Realtime = RealtimeOf(model)
	}
	if n, err := strconv.Atoi(os.Getenv("OPENAI_MAX_RETRIES")); err == nil {
		s.MaxRetries = n
	}
	return s
}

// merge fills empty fields of s from fallback.
func (s Settings) merge(fallback Settings) Settings {
	s.APIKey = firstNonEmpty(s.APIKey, fallback.APIKey)
	s.BaseURL = firstNonEmpty(s.BaseURL, fallback.BaseURL)
	s.Organization = firstNonEmpty(s.Organization, fallback.Organization)
	s.Project = firstNonEmpty(s.Project, fallback.Project)
	if s.Realtime == nil {
		s.Realtime = fallback.Realtime
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = fallback.MaxRetries
	}
	return s
}

// Validate checks the fields a configurator cannot default.
func (s Settings) Validate() error {
	switch strings.ToLower(s.Kind) {
	case "", KindOpenAI:
	case KindAzure:
		if s.BaseURL == "" || s.APIVersion == "" {
			return fmt.Errorf("azure settings need base_url and api_version")
		}
	default:
		return fmt.Errorf("kind %q must be %q or %q", s.Kind, KindOpenAI, KindAzure)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("api_key must be provided")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", s.MaxRetries)
	}
	return nil
}

// Configurator returns the configurator matching Kind.
func (s Settings) Configurator() Configurator {
	if strings.ToLower(s.Kind) == KindAzure {
		return AzureConfigurator{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			APIVersion: s.APIVersion,
			Headers:    s.Headers,
			Realtime:   s.Realtime,
			Cache:      s.Cache,
			MaxRetries: s.MaxRetries,
			Timeout:    s.Timeout,
		}
	}
	return OpenAIConfigurator{
		APIKey:         s.APIKey,
		OrganizationID: s.Organization,
		ProjectID:      s.Project,
		BaseURL:        s.BaseURL,
		Headers:        s.Headers,
		Realtime:       s.Realtime,
		Cache:          s.Cache,
		MaxRetries:     s.MaxRetries,
		Timeout:        s.Timeout,
	}
}
