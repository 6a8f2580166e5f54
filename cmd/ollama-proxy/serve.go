package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/app"
	"github.com/dvcrn/ollama-proxy/internal/auth"
	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/dvcrn/ollama-proxy/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy (the default command)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level)
	if path != "" {
		log.Info().Str("path", path).Msg("Loaded configuration file")
	} else {
		log.Info().Msg("No configuration file found, using defaults and environment")
	}

	store := config.NewStore(cfg, path)
	credsFetcher, keyWriter := buildCredentials(store, log)

	// Validate credentials at startup
	validateCredentialsAtStartup(credsFetcher, log)

	store.OnReload(func(c *config.Config) { logger.SetLevel(c.Log.Level) })
	srv := app.NewServer(store, credsFetcher, keyWriter, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return err
	}
	log.Info().
		Str("address", cfg.Server.ListenAddress).
		Str("backend", cfg.Backend.URL).
		Str("sentinel_model", cfg.Reasoning.SentinelModel).
		Msg("Starting server")

	return serve(ctx, ln, srv, store, log)
}

// serve runs handler on ln and the configuration watcher until ctx is done,
// then drains in-flight requests for up to server.shutdown_timeout. Request
// contexts are not derived from ctx, so a shutdown signal does not abort
// requests that are already running.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, store *config.Store, log zerolog.Logger) error {
	cfg := store.Current()
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := config.Watch(gctx, store, log); err != nil {
			log.Warn().Err(err).Msg("Configuration reload disabled")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// resolveConfigPath picks the --config flag, then OLLAMA_PROXY_CONFIG, then
// a discovered file. An empty result means no file.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	if p := os.Getenv("OLLAMA_PROXY_CONFIG"); p != "" {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	p, err := config.FindConfigFile(wd)
	if errors.Is(err, config.ErrNoConfigFile) {
		return "", nil
	}
	return p, err
}

func resolveCredsPath() string {
	if credsPath != "" {
		return credsPath
	}
	return credentials.DefaultCredsPath()
}

// buildCredentials chains the key sources in priority order: config file,
// environment, credentials file, then keychain when enabled. The
// credentials file is the one the admin API writes to.
func buildCredentials(store *config.Store, log zerolog.Logger) (credentials.CredentialsFetcher, credentials.KeyWriter) {
	fsFetcher := credentials.NewFSCredentialsFetcher(resolveCredsPath())
	fetchers := []credentials.CredentialsFetcher{
		credentials.NewConfigFetcher(store),
		credentials.NewEnvCredentialsFetcher(),
		fsFetcher,
	}
	if useKeychain {
		fetchers = append(fetchers, credentials.NewKeychainCredentialsFetcher(log))
		log.Info().Msg("🔑 Keychain credentials lookup enabled")
	}
	log.Debug().Str("path", fsFetcher.Path).Msg("📄 Using filesystem credentials file")
	return credentials.NewChain(fetchers...), fsFetcher
}

func validateCredentialsAtStartup(credsFetcher credentials.CredentialsFetcher, log zerolog.Logger) {
	key, err := credsFetcher.GetCredentials()
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  No reasoning API key found, sentinel requests will fall back to the backend")
		return
	}

	log.Info().
		Int("key_length", len(key)).
		Msg("✅ Credentials loaded successfully")

	expiresAt, ok := auth.TokenExpiry(key)
	if !ok {
		return
	}

	minutesUntilExpiry := int64(time.Until(expiresAt) / time.Minute)
	if minutesUntilExpiry <= 0 {
		log.Warn().
			Int64("minutes_expired", -minutesUntilExpiry).
			Msg("⚠️  Token is already expired")
	} else if minutesUntilExpiry <= 60 {
		log.Warn().
			Int64("minutes_until_expiry", minutesUntilExpiry).
			Msg("⚠️  Token expires soon")
	} else {
		log.Info().
			Int64("minutes_until_expiry", minutesUntilExpiry).
			Msg("✅ Token is valid and not expiring soon")
	}
}
