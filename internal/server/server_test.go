package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/dvcrn/ollama-proxy/internal/metrics"
	"github.com/dvcrn/ollama-proxy/internal/transform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKeyStore struct {
	key       string
	setErr    error
	refreshed int
}

func (m *memoryKeyStore) GetCredentials() (string, error) {
	if m.key == "" {
		return "", credentials.ErrNoCredentials
	}
	return m.key, nil
}

func (m *memoryKeyStore) RefreshCredentials() error {
	m.refreshed++
	return nil
}

func (m *memoryKeyStore) SetAPIKey(key string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.key = key
	return nil
}

type testEnv struct {
	backend *httptest.Server
	proxy   *httptest.Server
	keys    *memoryKeyStore
	headers chan http.Header
}

type countingReasoner struct {
	mu    sync.Mutex
	calls int
}

func (c *countingReasoner) CreateResponse(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return "ANSWER:\nContent: ok", nil
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	return newTestEnvWithReasoner(t, mutate, nil)
}

func newTestEnvWithReasoner(t *testing.T, mutate func(*config.Config), reasoner transform.Reasoner) *testEnv {
	t.Helper()
	env := &testEnv{keys: &memoryKeyStore{}, headers: make(chan http.Header, 8)}

	env.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/models" {
			w.Write([]byte(`{"data":[{"id":"gpt-4o"}]}`))
			return
		}
		w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	t.Cleanup(env.backend.Close)

	cfg := config.Defaults()
	cfg.Backend.URL = env.backend.URL
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, config.Validate(&cfg))

	srv := New(Options{
		Store:     config.NewStore(&cfg, ""),
		Creds:     env.keys,
		KeyWriter: env.keys,
		Reasoner:  reasoner,
		Metrics:   metrics.NewCollector("test"),
		Logger:    zerolog.Nop(),
	})
	env.proxy = httptest.NewServer(srv)
	t.Cleanup(env.proxy.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.proxy.URL+path, r)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodGet, "/_proxy/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestProxy_ForwardsWithBackendKey(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Backend.APIKey = "sk-backend" })

	resp, body := env.do(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name": "gpt-4o"`)

	got := <-env.headers
	assert.Equal(t, "Bearer sk-backend", got.Get("Authorization"))
	assert.NotEmpty(t, got.Get("X-Forwarded-For"))
}

func TestProxy_PassThroughPaths(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/generate", `{"model":"x"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"path":"/api/generate"}`, body)

	resp, body = env.do(t, http.MethodPost, "/v1/chat/completions", `{"model":"gpt-4o"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"path":"/chat/completions"}`, body)
}

func TestProxy_SentinelWithContentParts(t *testing.T) {
	reasoner := &countingReasoner{}
	env := newTestEnvWithReasoner(t, nil, reasoner)

	resp, body := env.do(t, http.MethodPost, "/v1/chat/completions",
		`{"model":"o3-pro","messages":[{"role":"user","content":[{"type":"text","text":"hi"}]}]}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "chat.completion.chunk")
	assert.Equal(t, 1, reasoner.calls)
	assert.Empty(t, env.headers)
}

func TestProxy_BackendUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.backend.Close()

	resp, body := env.do(t, http.MethodGet, "/api/tags", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "failed to communicate with backend")
}

func TestProxy_VersionWithoutBackend(t *testing.T) {
	env := newTestEnv(t, nil)
	env.backend.Close()

	resp, body := env.do(t, http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"version": "0.9.6"}`, body)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/version", "", nil)

	resp, body := env.do(t, http.MethodGet, "/_proxy/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `test_transform_decisions_total{decision="version"} 1`)
}

func TestAdmin(t *testing.T) {
	const adminKey = "admin-secret"
	withAdmin := func(c *config.Config) { c.Server.AdminAPIKey = adminKey }

	t.Run("disabled without admin key", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resp, _ := env.do(t, http.MethodGet, "/_proxy/admin/credentials/status", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("rejects bad keys", func(t *testing.T) {
		env := newTestEnv(t, withAdmin)
		for _, h := range []http.Header{
			nil,
			{"Authorization": {"Bearer wrong"}},
			{"Authorization": {"Basic abc"}},
			{"X-Api-Key": {"wrong"}},
		} {
			resp, _ := env.do(t, http.MethodGet, "/_proxy/admin/credentials/status", "", h)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		}
	})

	t.Run("sets and reports key", func(t *testing.T) {
		env := newTestEnv(t, withAdmin)
		auth := http.Header{"Authorization": {"Bearer " + adminKey}}

		_, body := env.do(t, http.MethodGet, "/_proxy/admin/credentials/status", "", auth)
		var status credentialsStatus
		require.NoError(t, json.Unmarshal([]byte(body), &status))
		assert.False(t, status.HasCredentials)
		assert.Equal(t, config.ProviderAzure, status.Provider)

		resp, _ := env.do(t, http.MethodPost, "/_proxy/admin/credentials", `{"api_key":" new-key "}`, http.Header{"X-Api-Key": {adminKey}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "new-key", env.keys.key)
		assert.Equal(t, 1, env.keys.refreshed)

		_, body = env.do(t, http.MethodGet, "/_proxy/admin/credentials/status", "", auth)
		status = credentialsStatus{}
		require.NoError(t, json.Unmarshal([]byte(body), &status))
		assert.True(t, status.HasCredentials)
		assert.Equal(t, "api_key", status.Type)
	})

	t.Run("validates body", func(t *testing.T) {
		env := newTestEnv(t, withAdmin)
		auth := http.Header{"X-Api-Key": {adminKey}}

		resp, _ := env.do(t, http.MethodPost, "/_proxy/admin/credentials", `nope`, auth)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp, _ = env.do(t, http.MethodPost, "/_proxy/admin/credentials", `{"api_key":""}`, auth)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		env.keys.setErr = errors.New("disk full")
		resp, _ = env.do(t, http.MethodPost, "/_proxy/admin/credentials", `{"api_key":"k"}`, auth)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}
