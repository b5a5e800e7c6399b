package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auditgraph/internal/model"
	"auditgraph/internal/review"
)

var _ review.Analyzer = (*Analyzer)(nil)

// Analyzer asks the model for the independence judgment over a scenario and
// its relationship map.
type Analyzer struct {
	client      *Client
	model       string
	temperature float64
}

func NewAnalyzer(client *Client, model string, temperature float64) *Analyzer {
	return &Analyzer{client: client, model: model, temperature: temperature}
}

func (a *Analyzer) Analyze(ctx context.Context, scenario string, g model.Graph) (model.AnalysisResult, error) {
	mapJSON, err := indentedJSON(g)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("encoding relationship map: %w", err)
	}

	req := ChatRequest{
		Model: a.model,
		Messages: []Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: analysisUserPrompt(scenario, mapJSON)},
		},
		Temperature: a.temperature,
	}

	var result model.AnalysisResult
	err = a.client.Structured(ctx, req, func(content string) error {
		var out model.AnalysisResult
		if err := DecodeJSON(content, &out); err != nil {
			return err
		}
		if err := out.Validate(); err != nil {
			return fmt.Errorf("%w: analysis: %w", review.ErrParse, err)
		}
		result = out
		return nil
	})
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("analyzing independence: %w", err)
	}
	return result, nil
}

// indentedJSON keeps Hangul and markup characters literal so the prompt
// shows names exactly as extracted.
func indentedJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
