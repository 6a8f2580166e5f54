package server

import (
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/auth"
	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/dvcrn/ollama-proxy/internal/metrics"
	"github.com/dvcrn/ollama-proxy/internal/transform"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options are the collaborators a Server is built from.
type Options struct {
	Store *config.Store
	Creds credentials.CredentialsFetcher
	// KeyWriter, when set, lets the admin API replace the reasoning API key.
	KeyWriter credentials.KeyWriter
	Reasoner  transform.Reasoner
	// Metrics may be nil.
	Metrics *metrics.Collector
	// Transport carries forwarded requests; nil uses NewBackendTransport.
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

type Server struct {
	store     *config.Store
	creds     credentials.CredentialsFetcher
	keyWriter credentials.KeyWriter
	metrics   *metrics.Collector
	engine    *transform.Engine
	proxy     *httputil.ReverseProxy
	router    chi.Router
	logger    zerolog.Logger
}

func New(opts Options) *Server {
	transport := opts.Transport
	if transport == nil {
		transport = NewBackendTransport()
	}

	requests := transform.NewRequestInterceptor(opts.Store, opts.Reasoner, opts.Metrics, opts.Logger)
	s := &Server{
		store:     opts.Store,
		creds:     opts.Creds,
		keyWriter: opts.KeyWriter,
		metrics:   opts.Metrics,
		engine:    transform.NewEngine(requests, transform.NewResponseInterceptor(), opts.Metrics, opts.Logger),
		logger:    opts.Logger,
	}
	s.proxy = &httputil.ReverseProxy{
		Rewrite:        s.rewrite,
		Transport:      transport,
		ModifyResponse: s.engine.ModifyResponse,
		ErrorHandler:   s.proxyErrorHandler,
		ErrorLog:       newStdLogger(s.logger),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/_proxy/health", s.healthHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/_proxy/metrics", s.metrics.Handler())
	}
	r.Route("/_proxy/admin", func(r chi.Router) {
		r.Use(s.adminMiddleware)
		r.Post("/credentials", s.credentialsHandler)
		r.Get("/credentials/status", s.credentialsStatusHandler)
	})

	// Everything else is the Ollama surface and goes through the transform
	// engine to the backend.
	r.Handle("/*", s.engine.Handler(s.proxy))

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := s.logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		reqLogger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		reqLogger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

// rewrite points the outbound request at the backend from the current
// configuration snapshot.
func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	cfg := s.store.Current()
	target, err := cfg.Backend.Target()
	if err != nil {
		// Stores only hold validated configs. The transport rejects the
		// empty URL and the error handler answers 502.
		s.logger.Error().Err(err).Msg("Invalid backend URL")
		pr.Out.URL.Scheme = ""
		pr.Out.URL.Host = ""
		return
	}

	pr.SetURL(target)
	pr.SetXForwarded()
	if cfg.Backend.APIKey != "" {
		auth.Apply(pr.Out, config.ProviderOpenAI, cfg.Backend.APIKey)
	}
	s.engine.PrepareOutbound(pr.Out)

	zerolog.Ctx(pr.In.Context()).Debug().
		Str("method", pr.Out.Method).
		Str("upstream_url", pr.Out.URL.String()).
		Msg("Forwarding request to backend")
}

func (s *Server) proxyErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &s.logger
	}
	log.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Error making request to backend")
	transform.WriteError(w, http.StatusBadGateway, "failed to communicate with backend: "+err.Error())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
