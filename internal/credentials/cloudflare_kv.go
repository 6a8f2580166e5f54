//go:build js && wasm

package credentials

import (
	"fmt"
	"strings"

	"github.com/syumai/workers/cloudflare/kv"
)

const (
	// KVNamespace is the binding name configured in wrangler.toml.
	KVNamespace = "ollama_proxy_kv"
	kvAPIKeyKey = "reasoning_api_key"
)

// CloudflareKVFetcher retrieves the API key from Cloudflare KV
type CloudflareKVFetcher struct {
	kvStore *kv.Namespace
}

// NewCloudflareKVFetcher creates a new Cloudflare KV-based credentials fetcher
func NewCloudflareKVFetcher() (*CloudflareKVFetcher, error) {
	kvStore, err := kv.NewNamespace(KVNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKVFetcher{kvStore: kvStore}, nil
}

// GetCredentials reads the API key from KV on every call
func (c *CloudflareKVFetcher) GetCredentials() (string, error) {
	key, err := c.kvStore.GetString(kvAPIKeyKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get API key from KV: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w in KV", ErrNoCredentials)
	}
	return key, nil
}

// SetAPIKey stores the API key in KV
func (c *CloudflareKVFetcher) SetAPIKey(key string) error {
	if err := c.kvStore.PutString(kvAPIKeyKey, key, nil); err != nil {
		return fmt.Errorf("failed to store API key in KV: %w", err)
	}
	return nil
}

// RefreshCredentials is a no-op for Cloudflare KV credentials
func (c *CloudflareKVFetcher) RefreshCredentials() error {
	return nil
}
