package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"auditgraph/internal/review"
)

// StripFences removes a Markdown code fence wrapped around a model reply.
func StripFences(content string) string {
	text := strings.TrimSpace(content)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// DecodeJSON parses a model reply into out. When the fenced-stripped text is
// not valid JSON, the outermost {...} span is tried before giving up.
func DecodeJSON(content string, out any) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty model response", review.ErrParse)
	}
	text := StripFences(content)
	err := json.Unmarshal([]byte(text), out)
	if err == nil {
		return nil
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if json.Unmarshal([]byte(text[start:end+1]), out) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %w", review.ErrParse, err)
}
