package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type fsCredentials struct {
	APIKey string `json:"api_key"`
}

// FSCredentialsFetcher reads the API key from a JSON file.
type FSCredentialsFetcher struct {
	Path string
}

func NewFSCredentialsFetcher(path string) *FSCredentialsFetcher {
	return &FSCredentialsFetcher{Path: path}
}

func (f *FSCredentialsFetcher) GetCredentials() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	var c fsCredentials
	if err := json.Unmarshal(b, &c); err != nil {
		return "", fmt.Errorf("failed to parse credentials file: %w", err)
	}
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return "", fmt.Errorf("%w: api_key is empty in %s", ErrNoCredentials, f.Path)
	}
	return key, nil
}

// RefreshCredentials is a no-op; the file is read on every call.
func (f *FSCredentialsFetcher) RefreshCredentials() error {
	return nil
}

func (f *FSCredentialsFetcher) SetAPIKey(key string) error {
	return SaveAPIKey(f.Path, key)
}

// SaveAPIKey writes key to path with owner-only permissions.
func SaveAPIKey(path, key string) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fsCredentials{APIKey: key}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
