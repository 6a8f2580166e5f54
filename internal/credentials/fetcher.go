package credentials

import "errors"

// ErrNoCredentials is returned when a source holds no API key.
var ErrNoCredentials = errors.New("no credentials found")

// CredentialsFetcher resolves the API key for the reasoning service.
type CredentialsFetcher interface {
	GetCredentials() (apiKey string, err error)
	RefreshCredentials() error
}

// KeyWriter is implemented by sources that can persist a new API key.
type KeyWriter interface {
	SetAPIKey(key string) error
}
