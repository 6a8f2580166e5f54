package schema

import (
	"errors"

	"github.com/tidwall/gjson"
)

// VersionLiteral is returned verbatim for /api/version.
var VersionLiteral = []byte(`{"version": "0.9.6"}`)

var ErrInvalidJSON = errors.New("invalid JSON body")

// ShowRequest is the only part of an /api/show body the proxy looks at.
type ShowRequest struct {
	Model *string
}

// DecodeShowRequest extracts the requested model from an /api/show body.
// Older Ollama clients send the model as "name" instead of "model".
func DecodeShowRequest(data []byte) (ShowRequest, error) {
	if !gjson.ValidBytes(data) {
		return ShowRequest{}, ErrInvalidJSON
	}
	for _, field := range []string{"model", "name"} {
		res := gjson.GetBytes(data, field)
		if res.Exists() && res.Type != gjson.Null {
			model := res.String()
			return ShowRequest{Model: &model}, nil
		}
	}
	return ShowRequest{}, nil
}

type ModelInfo struct {
	Architecture *string `json:"architecture"`
}

type ShowModelAnswer struct {
	Capabilities []string  `json:"capabilities"`
	ModelInfo    ModelInfo `json:"model_info"`
}

func NewShowModelAnswer(req ShowRequest) ShowModelAnswer {
	return ShowModelAnswer{
		Capabilities: []string{"chat"},
		ModelInfo:    ModelInfo{Architecture: req.Model},
	}
}
