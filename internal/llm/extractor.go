package llm

import (
	"context"
	"fmt"

	"auditgraph/internal/model"
	"auditgraph/internal/review"
)

var _ review.Extractor = (*Extractor)(nil)

// Extractor asks the model for the relationship map of a scenario.
type Extractor struct {
	client      *Client
	model       string
	temperature float64
}

func NewExtractor(client *Client, model string, temperature float64) *Extractor {
	return &Extractor{client: client, model: model, temperature: temperature}
}

func (e *Extractor) Extract(ctx context.Context, scenario string) (model.Graph, error) {
	req := ChatRequest{
		Model: e.model,
		Messages: []Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: scenario},
		},
		Temperature: e.temperature,
	}

	var g model.Graph
	err := e.client.Structured(ctx, req, func(content string) error {
		var out model.Graph
		if err := DecodeJSON(content, &out); err != nil {
			return err
		}
		if err := out.Validate(); err != nil {
			return fmt.Errorf("%w: relationship map: %w", review.ErrParse, err)
		}
		g = out
		return nil
	})
	if err != nil {
		return model.Graph{}, fmt.Errorf("extracting relationships: %w", err)
	}
	return g, nil
}
