package credentials

import "github.com/dvcrn/ollama-proxy/internal/config"

// ConfigFetcher reads reasoning.api_key from the live configuration.
type ConfigFetcher struct {
	store *config.Store
}

func NewConfigFetcher(store *config.Store) *ConfigFetcher {
	return &ConfigFetcher{store: store}
}

func (c *ConfigFetcher) GetCredentials() (string, error) {
	if key := c.store.Current().Reasoning.APIKey; key != "" {
		return key, nil
	}
	return "", ErrNoCredentials
}

// RefreshCredentials is a no-op; the store reloads on its own.
func (c *ConfigFetcher) RefreshCredentials() error {
	return nil
}
