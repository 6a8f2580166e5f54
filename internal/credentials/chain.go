package credentials

import (
	"errors"
	"fmt"
)

// Chain asks each fetcher in order and returns the first key found.
type Chain struct {
	fetchers []CredentialsFetcher
}

func NewChain(fetchers ...CredentialsFetcher) *Chain {
	return &Chain{fetchers: fetchers}
}

func (c *Chain) GetCredentials() (string, error) {
	var errs []error
	for _, f := range c.fetchers {
		key, err := f.GetCredentials()
		if err == nil && key != "" {
			return key, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoCredentials
	}
	return "", fmt.Errorf("%w: %w", ErrNoCredentials, errors.Join(errs...))
}

func (c *Chain) RefreshCredentials() error {
	var errs []error
	for _, f := range c.fetchers {
		if err := f.RefreshCredentials(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
