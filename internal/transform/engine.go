package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dvcrn/ollama-proxy/internal/metrics"
	"github.com/rs/zerolog"
)

type dispatchedPathKey struct{}

// WithDispatchedPath records the path a request is actually sent to.
func WithDispatchedPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, dispatchedPathKey{}, path)
}

// DispatchedPath returns the path recorded by WithDispatchedPath.
func DispatchedPath(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(dispatchedPathKey{}).(string)
	return p, ok
}

// Engine runs the request interceptor in front of a forwarding handler and
// the response interceptor on what the backend sends back.
type Engine struct {
	requests  *RequestInterceptor
	responses *ResponseInterceptor
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

func NewEngine(requests *RequestInterceptor, responses *ResponseInterceptor, collector *metrics.Collector, logger zerolog.Logger) *Engine {
	if responses == nil {
		responses = NewResponseInterceptor()
	}
	return &Engine{
		requests:  requests,
		responses: responses,
		metrics:   collector,
		logger:    logger,
	}
}

// Handler intercepts each request before next forwards it. Short-circuited
// requests never reach next.
func (e *Engine) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := e.loggerFor(r.Context())
		path := r.URL.Path

		var body []byte
		if NeedsBody(path) {
			buf, err := BufferBody(r)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("Error reading request body")
				WriteError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			body = buf
		}

		outcome := e.requests.Intercept(r.Context(), path, body)
		e.metrics.RecordDecision(outcome.Decision)

		if outcome.Action == ActionRewrite {
			r.URL.Path = outcome.Path
			r.URL.RawPath = ""
		}
		e.logDecision(log, r, path, body, outcome)

		if outcome.Action == ActionShortCircuit {
			if err := writeResponse(w, outcome.Response); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to write synthesized response")
			}
			return
		}

		r = r.WithContext(WithDispatchedPath(r.Context(), r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (e *Engine) logDecision(log *zerolog.Logger, r *http.Request, path string, body []byte, outcome Outcome) {
	var ev *zerolog.Event
	switch {
	case outcome.Err != nil:
		ev = log.Warn().Err(outcome.Err)
	case outcome.Decision == DecisionPassThrough:
		ev = log.Debug()
	default:
		ev = log.Info()
	}
	if !ev.Enabled() {
		return
	}

	ev = ev.Str("decision", outcome.Decision).
		Str("action", outcome.Action.String()).
		Str("method", r.Method).
		Str("path", path)
	if outcome.Action == ActionRewrite {
		ev = ev.Str("dispatched_path", outcome.Path)
	}
	if outcome.Model != "" {
		ev = ev.Str("model", outcome.Model)
	}
	if body != nil {
		ev = ev.Int("body_bytes", len(body))
	}
	ev.Msg("Request intercepted")
}

// PrepareOutbound adjusts the outbound request before it leaves for the
// backend. Responses that will be rewritten are requested uncompressed.
func (e *Engine) PrepareOutbound(out *http.Request) {
	path, ok := DispatchedPath(out.Context())
	if !ok {
		return
	}
	if e.responses.Matches(path) {
		out.Header.Del("Accept-Encoding")
	}
}

// ModifyResponse has the signature of httputil.ReverseProxy.ModifyResponse.
// A response that cannot be rewritten is passed through with its original
// body.
func (e *Engine) ModifyResponse(resp *http.Response) error {
	if resp.Request == nil {
		return nil
	}
	path, ok := DispatchedPath(resp.Request.Context())
	if !ok || !e.responses.Matches(path) {
		return nil
	}

	log := e.loggerFor(resp.Request.Context())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.metrics.RecordResponseRewrite(path, "skipped")
		log.Debug().Int("status", resp.StatusCode).Str("dispatched_path", path).Msg("Backend error passed through")
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		e.metrics.RecordResponseRewrite(path, "failed")
		return fmt.Errorf("failed to read backend response: %w", err)
	}

	rewritten, err := e.responses.Intercept(path, raw)
	if err != nil || rewritten == nil {
		if err != nil {
			e.metrics.RecordResponseRewrite(path, "failed")
			log.Warn().Err(err).Str("dispatched_path", path).Msg("Backend response not rewritten")
		}
		setResponseBody(resp, raw)
		return nil
	}

	setResponseBody(resp, rewritten.Body)
	resp.Header.Set("Content-Type", rewritten.ContentType)
	resp.Header.Del("Content-Encoding")
	e.metrics.RecordResponseRewrite(path, "rewritten")
	log.Info().
		Str("dispatched_path", path).
		Int("backend_bytes", len(raw)).
		Int("client_bytes", len(rewritten.Body)).
		Msg("Backend response rewritten")
	return nil
}

func setResponseBody(resp *http.Response, body []byte) {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.TransferEncoding = nil
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
}

// loggerFor prefers the request-scoped logger installed by the server.
func (e *Engine) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.logger
}
