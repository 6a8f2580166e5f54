package transform

import (
	"github.com/dvcrn/ollama-proxy/internal/schema"
)

// RewrittenResponse replaces a backend response body.
type RewrittenResponse struct {
	ContentType string
	Body        []byte
}

// ResponseInterceptor rewrites backend responses, keyed on the path the
// request was actually dispatched to.
type ResponseInterceptor struct{}

func NewResponseInterceptor() *ResponseInterceptor {
	return &ResponseInterceptor{}
}

// Matches reports whether responses for dispatchedPath are rewritten.
func (ResponseInterceptor) Matches(dispatchedPath string) bool {
	return dispatchedPath == UpstreamModels
}

// Intercept returns nil when the response passes through unchanged. A
// non-nil error means the body could not be rewritten and the caller
// should pass the original through.
func (ri ResponseInterceptor) Intercept(dispatchedPath string, body []byte) (*RewrittenResponse, error) {
	if !ri.Matches(dispatchedPath) {
		return nil, nil
	}

	list, err := schema.DecodeBackendModelList(body)
	if err != nil {
		return nil, err
	}
	out, err := schema.Encode(schema.ToClientModelList(list))
	if err != nil {
		return nil, err
	}
	return &RewrittenResponse{ContentType: "application/json", Body: out}, nil
}
