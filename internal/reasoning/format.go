package reasoning

import "strings"

// Response is the subset of a Responses API result the proxy renders.
type Response struct {
	ID     string       `json:"id"`
	Output []OutputItem `json:"output"`
}

// OutputItem is either a "reasoning" item carrying summary parts or a
// "message" item carrying content parts. Other item types are skipped.
type OutputItem struct {
	Type    string     `json:"type"`
	Summary []TextPart `json:"summary,omitempty"`
	Content []TextPart `json:"content,omitempty"`
}

type TextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FormatOutput renders reasoning summaries and answer text as plain lines:
//
//	REASONING STEPS:
//	ReasonStep: ...
//
//	ANSWER:
//	Content: ...
func FormatOutput(resp Response) string {
	var lines []string
	for _, item := range resp.Output {
		switch item.Type {
		case "reasoning":
			if len(item.Summary) == 0 {
				continue
			}
			lines = append(lines, "REASONING STEPS:")
			for _, part := range item.Summary {
				lines = append(lines, "ReasonStep: "+part.Text)
			}
			lines = append(lines, "")
		case "message":
			lines = append(lines, "ANSWER:")
			for _, part := range item.Content {
				lines = append(lines, "Content: "+part.Text)
			}
		}
	}
	return strings.Join(lines, "\n")
}
