package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvCredentialsFetcher(t *testing.T) {
	t.Run("first non-empty variable wins", func(t *testing.T) {
		t.Setenv("TEST_KEY_A", "")
		t.Setenv("TEST_KEY_B", "key-b")
		t.Setenv("TEST_KEY_C", "key-c")

		key, err := NewEnvCredentialsFetcher("TEST_KEY_A", "TEST_KEY_B", "TEST_KEY_C").GetCredentials()
		require.NoError(t, err)
		assert.Equal(t, "key-b", key)
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv("TEST_KEY_A", "")
		_, err := NewEnvCredentialsFetcher("TEST_KEY_A").GetCredentials()
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("custom lookup", func(t *testing.T) {
		vars := map[string]string{"OPENAI_API_KEY": "sk-from-binding"}
		f := NewLookupCredentialsFetcher(func(k string) string { return vars[k] })
		key, err := f.GetCredentials()
		require.NoError(t, err)
		assert.Equal(t, "sk-from-binding", key)
	})

	t.Run("refresh is a no-op", func(t *testing.T) {
		assert.NoError(t, NewEnvCredentialsFetcher().RefreshCredentials())
	})
}
