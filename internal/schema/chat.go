package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ChatCompletionChunkObject is the object tag of a streamed chat completion frame.
const ChatCompletionChunkObject = "chat.completion.chunk"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type StreamOptions struct {
	IncludeUsage *bool `json:"include_usage,omitempty"`
}

// ChatRequest is the client-facing chat completion request. Optional
// sampling fields stay nil when the client omits them.
type ChatRequest struct {
	Messages      []ChatMessage  `json:"messages"`
	Model         string         `json:"model"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	N             *int           `json:"n,omitempty"`
	Stream        *bool          `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

// DecodeChatRequest parses a chat completion request body. It only fails on
// syntactically invalid JSON. Fields of an unexpected type read as absent,
// and message content given as an array of parts is reduced to its text.
func DecodeChatRequest(data []byte) (ChatRequest, error) {
	if !gjson.ValidBytes(data) {
		return ChatRequest{}, fmt.Errorf("failed to decode chat request: %w", ErrInvalidJSON)
	}
	root := gjson.ParseBytes(data)

	req := ChatRequest{Model: stringValue(root.Get("model"))}
	if messages := root.Get("messages"); messages.IsArray() {
		for _, m := range messages.Array() {
			req.Messages = append(req.Messages, ChatMessage{
				Role:    stringValue(m.Get("role")),
				Content: messageContent(m.Get("content")),
			})
		}
	}

	if v := root.Get("temperature"); v.Type == gjson.Number {
		f := v.Float()
		req.Temperature = &f
	}
	if v := root.Get("top_p"); v.Type == gjson.Number {
		f := v.Float()
		req.TopP = &f
	}
	if v := root.Get("n"); v.Type == gjson.Number {
		n := int(v.Int())
		req.N = &n
	}
	req.Stream = boolValue(root.Get("stream"))
	if opts := root.Get("stream_options"); opts.IsObject() {
		req.StreamOptions = &StreamOptions{IncludeUsage: boolValue(opts.Get("include_usage"))}
	}
	return req, nil
}

func stringValue(res gjson.Result) string {
	if res.Type != gjson.String {
		return ""
	}
	return res.Str
}

func boolValue(res gjson.Result) *bool {
	if !res.IsBool() {
		return nil
	}
	b := res.Bool()
	return &b
}

// messageContent renders a message's content as text. Plain strings are kept
// as is; arrays of content parts contribute their text parts joined by
// newlines; any other value keeps its raw JSON.
func messageContent(res gjson.Result) string {
	switch {
	case !res.Exists() || res.Type == gjson.Null:
		return ""
	case res.Type == gjson.String:
		return res.Str
	case res.IsArray():
		var parts []string
		for _, part := range res.Array() {
			if part.Type == gjson.String {
				parts = append(parts, part.Str)
				continue
			}
			if t := part.Get("type"); t.Exists() && t.String() != "text" {
				continue
			}
			if text := part.Get("text"); text.Type == gjson.String {
				parts = append(parts, text.Str)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return res.Raw
	}
}

type ChatCompletionDelta struct {
	Content      *string `json:"content"`
	Role         *string `json:"role"`
	FunctionCall any     `json:"function_call"`
	ToolCalls    any     `json:"tool_calls"`
}

type ChatCompletionChunkChoice struct {
	Index        int                 `json:"index"`
	Delta        ChatCompletionDelta `json:"delta"`
	FinishReason *string             `json:"finish_reason"`
}

// ChatCompletionChunk is the frame written back when a chat request is
// answered without contacting the backend.
type ChatCompletionChunk struct {
	ID      string                      `json:"id"`
	Created int64                       `json:"created"`
	Model   string                      `json:"model"`
	Object  string                      `json:"object"`
	Choices []ChatCompletionChunkChoice `json:"choices"`
}

// NewAnswerChunk wraps a complete answer into a single chunk. Every call
// gets a fresh id.
func NewAnswerChunk(model, content string) ChatCompletionChunk {
	role := "assistant"
	finish := "stop"
	return ChatCompletionChunk{
		ID:      uuid.New().String(),
		Created: time.Now().Unix(),
		Model:   model,
		Object:  ChatCompletionChunkObject,
		Choices: []ChatCompletionChunkChoice{
			{
				Index: 0,
				Delta: ChatCompletionDelta{
					Content: &content,
					Role:    &role,
				},
				FinishReason: &finish,
			},
		},
	}
}

// Encode renders v as indented JSON.
func Encode(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return b, nil
}
