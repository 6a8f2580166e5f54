package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, "o3-pro", cfg.Reasoning.SentinelModel)
	assert.Equal(t, ProviderAzure, cfg.Reasoning.Provider)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ollamaproxy.yaml")
	writeFile(t, path, `
server:
  listen_address: "0.0.0.0:9000"
backend:
  url: "https://llm.internal/v1"
reasoning:
  endpoint: "https://example.openai.azure.com"
  api_key: "secret"
  deployment_name: "o3-pro-eu"
  timeout: 90s
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddress)
	assert.Equal(t, "https://llm.internal/v1", cfg.Backend.URL)
	assert.Equal(t, "o3-pro-eu", cfg.Reasoning.DeploymentName)
	assert.Equal(t, 90*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "o3-pro", cfg.Reasoning.SentinelModel)
	assert.Equal(t, "2025-04-01-preview", cfg.Reasoning.APIVersion)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ollamaproxy.json")
	writeFile(t, path, `{"backend": {"url": "http://localhost:8000"}, "reasoning": {"sentinel_model": "deep-think"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, "deep-think", cfg.Reasoning.SentinelModel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_PROXY_BACKEND_URL", "http://10.0.0.1:4000")
	t.Setenv("OLLAMA_PROXY_REASONING_TIMEOUT", "2m")
	t.Setenv("OLLAMA_PROXY_SENTINEL_MODEL", "O3-PRO-2")
	t.Setenv("PORT", "8080")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:4000", cfg.Backend.URL)
	assert.Equal(t, 2*time.Minute, cfg.Reasoning.Timeout)
	assert.Equal(t, "O3-PRO-2", cfg.Reasoning.SentinelModel)
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
}

func TestFromLookup(t *testing.T) {
	vars := map[string]string{
		"OLLAMA_PROXY_BACKEND_URL":     "https://litellm.example.com/v1",
		"OLLAMA_PROXY_ADMIN_API_KEY":   "admin",
		"OLLAMA_PROXY_METRICS_ENABLED": "false",
	}
	cfg, err := FromLookup(func(k string) string { return vars[k] })
	require.NoError(t, err)
	assert.Equal(t, "https://litellm.example.com/v1", cfg.Backend.URL)
	assert.Equal(t, "admin", cfg.Server.AdminAPIKey)
	assert.False(t, cfg.Metrics.Enabled)

	vars["OLLAMA_PROXY_BACKEND_URL"] = "ftp://nope"
	_, err = FromLookup(func(k string) string { return vars[k] })
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ollamaproxy.yaml")
		writeFile(t, path, "server: [")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ollamaproxy.yaml")
		writeFile(t, path, `
backend:
  url: "ftp://nowhere"
reasoning:
  provider: "bedrock"
  sentinel_model: " "
log:
  level: loud
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend.url")
		assert.Contains(t, err.Error(), "reasoning.provider")
		assert.Contains(t, err.Error(), "sentinel_model")
		assert.Contains(t, err.Error(), "log.level")
	})
}

func TestBackendTarget(t *testing.T) {
	u, err := BackendConfig{URL: "http://localhost:4000/v1"}.Target()
	require.NoError(t, err)
	assert.Equal(t, "/v1", u.Path)

	_, err = BackendConfig{URL: "localhost:4000"}.Target()
	assert.Error(t, err)
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Run("none found", func(t *testing.T) {
		_, err := FindConfigFile(nested)
		// a stray ollamaproxy file above the temp dir would make this flaky,
		// so only assert when nothing was found
		if err != nil {
			assert.ErrorIs(t, err, ErrNoConfigFile)
		}
	})

	t.Run("walks up to parent", func(t *testing.T) {
		want := filepath.Join(root, "a", "OllamaProxy.YAML")
		writeFile(t, want, "{}")
		writeFile(t, filepath.Join(root, "a", "b", "ollamaproxy-old.yaml"), "{}")

		got, err := FindConfigFile(nested)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("nearest wins", func(t *testing.T) {
		want := filepath.Join(nested, "ollamaproxy.json")
		writeFile(t, want, "{}")

		got, err := FindConfigFile(nested)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ollamaproxy.yaml")
	writeFile(t, path, "reasoning:\n  deployment_name: first\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	store := NewStore(cfg, path)
	before := store.Current()

	writeFile(t, path, "reasoning:\n  deployment_name: second\n")
	require.NoError(t, store.Reload())
	assert.Equal(t, "second", store.Current().Reasoning.DeploymentName)
	assert.Equal(t, "first", before.Reasoning.DeploymentName, "old snapshot must not change")

	writeFile(t, path, "reasoning:\n  provider: nope\n")
	assert.Error(t, store.Reload())
	assert.Equal(t, "second", store.Current().Reasoning.DeploymentName)
}

func TestStoreOnReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ollamaproxy.yaml")
	writeFile(t, path, "log:\n  level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	store := NewStore(cfg, path)

	var levels []string
	store.OnReload(func(c *Config) { levels = append(levels, c.Log.Level) })

	writeFile(t, path, "log:\n  level: debug\n")
	require.NoError(t, store.Reload())

	writeFile(t, path, "reasoning:\n  provider: nope\n")
	require.Error(t, store.Reload())

	assert.Equal(t, []string{"debug"}, levels)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ollamaproxy.yaml")
	writeFile(t, path, "reasoning:\n  deployment_name: first\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	store := NewStore(cfg, path)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, store, zerolog.Nop()) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "reasoning:\n  deployment_name: updated\n")

	assert.Eventually(t, func() bool {
		return store.Current().Reasoning.DeploymentName == "updated"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
