package app

import (
	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/dvcrn/ollama-proxy/internal/metrics"
	"github.com/dvcrn/ollama-proxy/internal/reasoning"
	"github.com/dvcrn/ollama-proxy/internal/server"
	"github.com/rs/zerolog"
)

// NewServer wires the proxy from a configuration store and a credential
// source. keyWriter may be nil.
func NewServer(store *config.Store, credsFetcher credentials.CredentialsFetcher, keyWriter credentials.KeyWriter, logger zerolog.Logger) *server.Server {
	cfg := store.Current()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	reasoner := reasoning.NewClient(store, credsFetcher, nil, logger)

	return server.New(server.Options{
		Store:     store,
		Creds:     credsFetcher,
		KeyWriter: keyWriter,
		Reasoner:  reasoner,
		Metrics:   collector,
		Logger:    logger,
	})
}
