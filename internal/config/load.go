package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Load reads the file at path on top of the defaults, applies
// OLLAMA_PROXY_* environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg, os.Getenv)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a configuration from defaults and environment variables only.
func FromEnv() (*Config, error) {
	return Load("")
}

// FromLookup is FromEnv with a custom variable source, for runtimes where
// settings are not in the process environment.
func FromLookup(getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	applyEnvOverrides(&cfg, getenv)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if val := getenv("PORT"); val != "" {
		cfg.Server.ListenAddress = ":" + val
	}
	if val := getenv("OLLAMA_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	setDuration(getenv, &cfg.Server.WriteTimeout, "OLLAMA_PROXY_WRITE_TIMEOUT")
	setDuration(getenv, &cfg.Server.ShutdownTimeout, "OLLAMA_PROXY_SHUTDOWN_TIMEOUT")
	if val := getenv("ADMIN_API_KEY"); val != "" {
		cfg.Server.AdminAPIKey = val
	}
	if val := getenv("OLLAMA_PROXY_ADMIN_API_KEY"); val != "" {
		cfg.Server.AdminAPIKey = val
	}

	if val := getenv("OLLAMA_PROXY_BACKEND_URL"); val != "" {
		cfg.Backend.URL = val
	}
	if val := getenv("OLLAMA_PROXY_BACKEND_API_KEY"); val != "" {
		cfg.Backend.APIKey = val
	}

	if val := getenv("OLLAMA_PROXY_SENTINEL_MODEL"); val != "" {
		cfg.Reasoning.SentinelModel = val
	}
	if val := getenv("OLLAMA_PROXY_REASONING_PROVIDER"); val != "" {
		cfg.Reasoning.Provider = val
	}
	if val := getenv("OLLAMA_PROXY_REASONING_ENDPOINT"); val != "" {
		cfg.Reasoning.Endpoint = val
	}
	if val := getenv("OLLAMA_PROXY_REASONING_DEPLOYMENT"); val != "" {
		cfg.Reasoning.DeploymentName = val
	}
	if val := getenv("OLLAMA_PROXY_REASONING_API_VERSION"); val != "" {
		cfg.Reasoning.APIVersion = val
	}
	setDuration(getenv, &cfg.Reasoning.Timeout, "OLLAMA_PROXY_REASONING_TIMEOUT")

	if val := getenv("OLLAMA_PROXY_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := getenv("OLLAMA_PROXY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}

func setDuration(getenv func(string) string, dst *time.Duration, key string) {
	if val := getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// Validate reports every problem found in cfg.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, errors.New("server.listen_address must not be empty"))
	}
	if cfg.Server.ReadHeaderTimeout < 0 || cfg.Server.WriteTimeout < 0 ||
		cfg.Server.IdleTimeout < 0 || cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}

	if _, err := cfg.Backend.Target(); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(cfg.Reasoning.SentinelModel) == "" {
		errs = append(errs, errors.New("reasoning.sentinel_model must not be empty"))
	}
	switch cfg.Reasoning.Provider {
	case ProviderAzure, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("reasoning.provider must be %q or %q, got %q", ProviderAzure, ProviderOpenAI, cfg.Reasoning.Provider))
	}
	if cfg.Reasoning.Endpoint != "" {
		if u, err := url.Parse(cfg.Reasoning.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("reasoning.endpoint %q is not an absolute URL", cfg.Reasoning.Endpoint))
		}
	}
	if cfg.Reasoning.Timeout < 0 {
		errs = append(errs, errors.New("reasoning.timeout must not be negative"))
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Target parses the backend URL.
func (b BackendConfig) Target() (*url.URL, error) {
	u, err := url.Parse(b.URL)
	if err != nil {
		return nil, fmt.Errorf("backend.url %q: %w", b.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend.url %q must use http or https", b.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend.url %q has no host", b.URL)
	}
	return u, nil
}
