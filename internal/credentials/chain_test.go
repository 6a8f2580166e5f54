package credentials

import (
	"errors"
	"testing"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct {
	key string
	err error
}

func (s staticFetcher) GetCredentials() (string, error) { return s.key, s.err }
func (s staticFetcher) RefreshCredentials() error        { return nil }

func TestChain(t *testing.T) {
	t.Run("first key wins", func(t *testing.T) {
		chain := NewChain(
			staticFetcher{err: ErrNoCredentials},
			staticFetcher{key: "second"},
			staticFetcher{key: "third"},
		)
		key, err := chain.GetCredentials()
		require.NoError(t, err)
		assert.Equal(t, "second", key)
	})

	t.Run("all fail", func(t *testing.T) {
		boom := errors.New("boom")
		chain := NewChain(staticFetcher{err: boom}, staticFetcher{})
		_, err := chain.GetCredentials()
		assert.ErrorIs(t, err, ErrNoCredentials)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := NewChain().GetCredentials()
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestConfigFetcher(t *testing.T) {
	cfg := config.Defaults()
	store := config.NewStore(&cfg, "")

	_, err := NewConfigFetcher(store).GetCredentials()
	assert.ErrorIs(t, err, ErrNoCredentials)

	withKey := config.Defaults()
	withKey.Reasoning.APIKey = "from-config"
	store = config.NewStore(&withKey, "")

	key, err := NewConfigFetcher(store).GetCredentials()
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)
}

func TestKeychainCredentialsFetcher_Caches(t *testing.T) {
	calls := 0
	k := NewKeychainCredentialsFetcher(zerolog.Nop())
	k.read = func(service, account string) (string, error) {
		calls++
		assert.Equal(t, KeychainService, service)
		assert.Equal(t, KeychainAccount, account)
		return "keychain-key", nil
	}

	for range 3 {
		key, err := k.GetCredentials()
		require.NoError(t, err)
		assert.Equal(t, "keychain-key", key)
	}
	assert.Equal(t, 1, calls)

	k.lastRefresh = time.Now().Add(-time.Hour)
	_, err := k.GetCredentials()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	require.NoError(t, k.RefreshCredentials())
	assert.Equal(t, 3, calls)
}

func TestKeychainCredentialsFetcher_Errors(t *testing.T) {
	k := NewKeychainCredentialsFetcher(zerolog.Nop())
	k.read = func(string, string) (string, error) { return "", nil }
	_, err := k.GetCredentials()
	assert.ErrorIs(t, err, ErrNoCredentials)

	k.read = func(string, string) (string, error) { return "", errors.New("no keychain") }
	_, err = k.GetCredentials()
	assert.Error(t, err)
}
