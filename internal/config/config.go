package config

import "time"

// Config is the root configuration of the proxy.
type Config struct {
	// Server controls the listening HTTP server.
	Server ServerConfig `yaml:"server"`

	// Backend is the OpenAI-compatible service requests are forwarded to.
	Backend BackendConfig `yaml:"backend"`

	// Reasoning configures the model that is answered by the external
	// reasoning service instead of the backend.
	Reasoning ReasoningConfig `yaml:"reasoning"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	// ListenAddress defaults to the Ollama port so existing clients find
	// the proxy without changes.
	ListenAddress     string        `yaml:"listen_address"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	// WriteTimeout of zero disables the limit. Reasoning calls can take
	// several minutes.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AdminAPIKey guards the /_proxy/admin endpoints. Empty disables them.
	AdminAPIKey string `yaml:"admin_api_key"`
}

type BackendConfig struct {
	// URL may carry a base path, e.g. "http://localhost:4000/v1".
	URL string `yaml:"url"`
	// APIKey, when set, is sent as a bearer token on every forwarded request.
	APIKey string `yaml:"api_key"`
}

type ReasoningConfig struct {
	// SentinelModel is compared case-insensitively with the model of
	// incoming chat completion requests.
	SentinelModel string `yaml:"sentinel_model"`

	// Provider is "azure" or "openai".
	Provider       string        `yaml:"provider"`
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"api_key"`
	DeploymentName string        `yaml:"deployment_name"`
	APIVersion     string        `yaml:"api_version"`
	Timeout        time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// Defaults returns a configuration with every field set to its default.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddress:     "127.0.0.1:11434",
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Backend: BackendConfig{
			URL: "http://127.0.0.1:4000",
		},
		Reasoning: ReasoningConfig{
			SentinelModel:  "o3-pro",
			Provider:       ProviderAzure,
			DeploymentName: "o3-pro",
			APIVersion:     "2025-04-01-preview",
			Timeout:        10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "ollama_proxy",
		},
	}
}
