package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/metrics"
	"github.com/dvcrn/ollama-proxy/internal/schema"
	"github.com/rs/zerolog"
)

var ErrNoReasoner = errors.New("no reasoning client configured")

// Reasoner answers a flattened conversation prompt.
type Reasoner interface {
	CreateResponse(ctx context.Context, prompt string) (string, error)
}

// RequestInterceptor decides, per request, whether to forward it, forward it
// to a different backend path, or answer it directly.
type RequestInterceptor struct {
	store    *config.Store
	reasoner Reasoner
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

func NewRequestInterceptor(store *config.Store, reasoner Reasoner, collector *metrics.Collector, logger zerolog.Logger) *RequestInterceptor {
	return &RequestInterceptor{
		store:    store,
		reasoner: reasoner,
		metrics:  collector,
		logger:   logger,
	}
}

// NeedsBody reports whether Intercept inspects the body for this path.
func NeedsBody(path string) bool {
	return path == PathChat || path == PathShow
}

// Intercept never fails: when a special case cannot be handled the request
// is forwarded as if the special case did not exist.
func (i *RequestInterceptor) Intercept(ctx context.Context, path string, body []byte) Outcome {
	switch path {
	case PathTags:
		return rewrite(UpstreamModels, DecisionTags, nil)
	case PathChat:
		return i.interceptChat(ctx, body)
	case PathShow:
		return interceptShow(body)
	case PathVersion:
		return shortCircuit(DecisionVersion, schema.VersionLiteral)
	default:
		return forward(DecisionPassThrough, nil)
	}
}

func (i *RequestInterceptor) interceptChat(ctx context.Context, body []byte) Outcome {
	req, err := schema.DecodeChatRequest(body)
	if err != nil {
		return rewrite(UpstreamChat, DecisionChatMalformed, err)
	}

	sentinel := i.store.Current().Reasoning.SentinelModel
	if !strings.EqualFold(req.Model, sentinel) {
		out := rewrite(UpstreamChat, DecisionChatForward, nil)
		out.Model = req.Model
		return out
	}

	var out Outcome
	if res := i.synthesize(ctx, sentinel, req.Messages); res.err != nil {
		out = rewrite(UpstreamChat, DecisionChatReasoningFailed, res.err)
	} else {
		out = shortCircuit(DecisionChatReasoning, res.body)
	}
	out.Model = req.Model
	return out
}

type synthesis struct {
	body []byte
	err  error
}

func (i *RequestInterceptor) synthesize(ctx context.Context, model string, messages []schema.ChatMessage) (res synthesis) {
	if i.reasoner == nil {
		return synthesis{err: ErrNoReasoner}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = synthesis{err: fmt.Errorf("reasoning panicked: %v", r)}
		}
		outcome := "success"
		if res.err != nil {
			outcome = "failure"
		}
		i.metrics.RecordReasoning(outcome, time.Since(start))
	}()

	i.loggerFor(ctx).Info().
		Str("model", model).
		Int("messages", len(messages)).
		Msg("Routing chat request to reasoning service")

	answer, err := i.reasoner.CreateResponse(ctx, FlattenPrompt(messages))
	if err != nil {
		return synthesis{err: fmt.Errorf("reasoning request failed: %w", err)}
	}

	body, err := schema.Encode(schema.NewAnswerChunk(model, answer))
	if err != nil {
		return synthesis{err: err}
	}
	return synthesis{body: body}
}

// loggerFor prefers the request-scoped logger installed by the server.
func (i *RequestInterceptor) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &i.logger
}

func interceptShow(body []byte) Outcome {
	req, err := schema.DecodeShowRequest(body)
	if err != nil {
		return forward(DecisionShowMalformed, err)
	}

	out, err := schema.Encode(schema.NewShowModelAnswer(req))
	if err != nil {
		return forward(DecisionShowMalformed, err)
	}
	result := shortCircuit(DecisionShow, out)
	if req.Model != nil {
		result.Model = *req.Model
	}
	return result
}

// FlattenPrompt renders a conversation as one text prompt, one block per
// message in order.
func FlattenPrompt(messages []schema.ChatMessage) string {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "Role: %s\n%s\n-------\n", m.Role, m.Content)
	}
	return sb.String()
}
