package credentials

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	KeychainService = "ollama-proxy"
	KeychainAccount = "reasoning_api_key"
)

// keychainReader is swapped out in tests.
type keychainReader func(service, account string) (string, error)

// KeychainCredentialsFetcher retrieves the API key from the macOS keychain
// and caches it for cacheTTL.
type KeychainCredentialsFetcher struct {
	mu          sync.RWMutex
	cachedKey   string
	lastRefresh time.Time
	cacheTTL    time.Duration
	read        keychainReader
	logger      *zerolog.Logger
}

// NewKeychainCredentialsFetcher creates a keychain-based credentials fetcher
func NewKeychainCredentialsFetcher(logger zerolog.Logger) *KeychainCredentialsFetcher {
	return &KeychainCredentialsFetcher{
		cacheTTL: 5 * time.Minute,
		read:     readKeychain,
		logger:   &logger,
	}
}

// GetCredentials returns the cached key or reads the keychain
func (k *KeychainCredentialsFetcher) GetCredentials() (string, error) {
	k.mu.RLock()
	if k.cachedKey != "" && time.Since(k.lastRefresh) < k.cacheTTL {
		key := k.cachedKey
		k.mu.RUnlock()
		return key, nil
	}
	k.mu.RUnlock()
	return k.refreshAndGet()
}

// RefreshCredentials forces a fresh read from the keychain
func (k *KeychainCredentialsFetcher) RefreshCredentials() error {
	_, err := k.refreshAndGet()
	return err
}

func (k *KeychainCredentialsFetcher) refreshAndGet() (string, error) {
	key, err := k.read(KeychainService, KeychainAccount)
	if err != nil {
		if k.logger != nil {
			k.logger.Debug().Err(err).Msg("Keychain lookup failed")
		}
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%w in keychain", ErrNoCredentials)
	}
	k.mu.Lock()
	k.cachedKey = key
	k.lastRefresh = time.Now()
	k.mu.Unlock()
	return key, nil
}

func readKeychain(service, account string) (string, error) {
	cmd := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve password from Keychain: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
