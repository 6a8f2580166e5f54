//go:build js && wasm

package main

import (
	"github.com/dvcrn/ollama-proxy/internal/app"
	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/dvcrn/ollama-proxy/internal/logger"
	"github.com/syumai/workers"
	"github.com/syumai/workers/cloudflare"
)

func main() {
	cfg, err := config.FromLookup(cloudflare.Getenv)
	if err != nil {
		log := logger.New("info")
		log.Fatal().Err(err).Msg("Invalid worker configuration")
	}

	log := logger.New(cfg.Log.Level)
	store := config.NewStore(cfg, "")

	log.Info().Msg("📦 Using Cloudflare KV credentials fetcher")
	kvFetcher, err := credentials.NewCloudflareKVFetcher()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Cloudflare KV fetcher")
	}

	creds := credentials.NewChain(
		credentials.NewConfigFetcher(store),
		credentials.NewLookupCredentialsFetcher(cloudflare.Getenv),
		kvFetcher,
	)

	srv := app.NewServer(store, creds, kvFetcher, log)

	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(srv)
}
