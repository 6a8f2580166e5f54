package credentials

import (
	"fmt"
	"os"
)

// EnvVars are checked in order by EnvCredentialsFetcher.
var EnvVars = []string{"OLLAMA_PROXY_REASONING_API_KEY", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"}

// EnvCredentialsFetcher retrieves the API key from environment variables
type EnvCredentialsFetcher struct {
	vars   []string
	getenv func(string) string
}

// NewEnvCredentialsFetcher creates a fetcher over EnvVars, or over vars when given
func NewEnvCredentialsFetcher(vars ...string) *EnvCredentialsFetcher {
	return NewLookupCredentialsFetcher(os.Getenv, vars...)
}

// NewLookupCredentialsFetcher reads the variables through getenv instead of
// the process environment.
func NewLookupCredentialsFetcher(getenv func(string) string, vars ...string) *EnvCredentialsFetcher {
	if len(vars) == 0 {
		vars = EnvVars
	}
	return &EnvCredentialsFetcher{vars: vars, getenv: getenv}
}

// GetCredentials returns the first non-empty variable
func (e *EnvCredentialsFetcher) GetCredentials() (string, error) {
	for _, name := range e.vars {
		if v := e.getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w in environment (%v)", ErrNoCredentials, e.vars)
}

// RefreshCredentials is a no-op for environment credentials
func (e *EnvCredentialsFetcher) RefreshCredentials() error {
	return nil
}
