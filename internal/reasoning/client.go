package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/auth"
	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/rs/zerolog"
)

// ErrIncompleteConfig is returned when the endpoint or API key is missing.
var ErrIncompleteConfig = errors.New("reasoning configuration is incomplete")

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reasoning service returned status %d: %s", e.StatusCode, e.Body)
}

// Client calls a Responses API deployment and renders its output as text.
// Configuration is read from the store on every call so that a reloaded
// endpoint, key or deployment takes effect immediately.
type Client struct {
	store      *config.Store
	creds      credentials.CredentialsFetcher
	httpClient HTTPClient
	logger     zerolog.Logger
}

func NewClient(store *config.Store, creds credentials.CredentialsFetcher, httpClient HTTPClient, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		store:      store,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "reasoning").Logger(),
	}
}

// NewHTTPClient returns a client without an overall timeout; calls are
// bounded by reasoning.timeout through their context instead.
func NewHTTPClient() *http.Client {
	return &http.Client{}
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// CreateResponse sends prompt to the configured deployment and returns the
// formatted reasoning summary and answer.
func (c *Client) CreateResponse(ctx context.Context, prompt string) (string, error) {
	cfg := c.store.Current().Reasoning

	apiKey := ""
	if c.creds != nil {
		if key, err := c.creds.GetCredentials(); err == nil {
			apiKey = key
		} else {
			c.logger.Debug().Err(err).Msg("No reasoning API key available")
		}
	}

	if cfg.Endpoint == "" || apiKey == "" {
		c.logger.Error().
			Bool("has_endpoint", cfg.Endpoint != "").
			Bool("has_api_key", apiKey != "").
			Msg("Reasoning configuration is incomplete")
		return "", ErrIncompleteConfig
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	target, err := responsesURL(cfg)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(responsesRequest{Model: cfg.DeploymentName, Input: prompt})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	auth.Apply(req, cfg.Provider, apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("deployment", cfg.DeploymentName).Msg("Error calling reasoning service")
		return "", fmt.Errorf("calling reasoning service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		c.logger.Error().
			Err(statusErr).
			Str("deployment", cfg.DeploymentName).
			Msg("Reasoning service returned an error")
		return "", statusErr
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Error().Err(err).Str("deployment", cfg.DeploymentName).Msg("Failed to decode reasoning response")
		return "", fmt.Errorf("decoding reasoning response: %w", err)
	}

	c.logger.Info().
		Str("deployment", cfg.DeploymentName).
		Str("response_id", out.ID).
		Int("output_items", len(out.Output)).
		Dur("duration", time.Since(start)).
		Msg("Reasoning service call succeeded")

	return FormatOutput(out), nil
}

func responsesURL(cfg config.ReasoningConfig) (string, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing reasoning endpoint: %w", err)
	}
	if cfg.Provider == config.ProviderOpenAI {
		return base.JoinPath("responses").String(), nil
	}
	u := base.JoinPath("openai", "responses")
	if cfg.APIVersion != "" {
		q := u.Query()
		q.Set("api-version", cfg.APIVersion)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
