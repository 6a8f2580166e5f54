package transform

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Client-facing paths the request interceptor recognises.
const (
	PathTags    = "/api/tags"
	PathChat    = "/v1/chat/completions"
	PathShow    = "/api/show"
	PathVersion = "/api/version"
)

// Backend paths requests are rewritten to.
const (
	UpstreamModels = "/models"
	UpstreamChat   = "/chat/completions"
)

// Decision labels used in logs and metrics.
const (
	DecisionTags                = "tags_rewrite"
	DecisionChatForward         = "chat_forward"
	DecisionChatMalformed       = "chat_malformed"
	DecisionChatReasoning       = "chat_reasoning"
	DecisionChatReasoningFailed = "chat_reasoning_failed"
	DecisionShow                = "show"
	DecisionShowMalformed       = "show_malformed"
	DecisionVersion             = "version"
	DecisionPassThrough         = "passthrough"
)

type Action int

const (
	// ActionForward sends the request on unchanged.
	ActionForward Action = iota
	// ActionRewrite sends the original body on to Outcome.Path.
	ActionRewrite
	// ActionShortCircuit answers with Outcome.Response; the backend is not contacted.
	ActionShortCircuit
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionRewrite:
		return "rewrite"
	case ActionShortCircuit:
		return "short_circuit"
	default:
		return "unknown(" + strconv.Itoa(int(a)) + ")"
	}
}

// Response is a synthesized answer.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Outcome is the request interceptor's decision for one request.
type Outcome struct {
	Action   Action
	Path     string
	Response *Response
	Decision string
	// Model is the requested model, when the body was inspected.
	Model string
	// Err is the error that made a special case fall back to forwarding.
	Err error
}

func forward(decision string, err error) Outcome {
	return Outcome{Action: ActionForward, Decision: decision, Err: err}
}

func rewrite(path, decision string, err error) Outcome {
	return Outcome{Action: ActionRewrite, Path: path, Decision: decision, Err: err}
}

func shortCircuit(decision string, body []byte) Outcome {
	return Outcome{
		Action:   ActionShortCircuit,
		Decision: decision,
		Response: &Response{
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Body:        body,
		},
	}
}

func writeResponse(w http.ResponseWriter, resp *Response) error {
	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)
	_, err := w.Write(resp.Body)
	return err
}

// WriteError writes an Ollama-style {"error": "..."} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
