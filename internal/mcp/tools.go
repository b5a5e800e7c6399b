package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"auditgraph/internal/diagram"
	"auditgraph/internal/fingerprint"
	"auditgraph/internal/llm"
	"auditgraph/internal/model"
	"auditgraph/internal/review"
	"auditgraph/internal/store"
	"auditgraph/internal/validate"
)

type ScenarioInput struct {
	Scenario string `json:"scenario" jsonschema:"audit engagement scenario text, usually Korean"`
}

type ResolveCitationInput struct {
	Citation string `json:"citation" jsonschema:"law citation such as 공인회계사법 제21조"`
}

type GetCachedGraphInput struct {
	Fingerprint string `json:"fingerprint" jsonschema:"8 hex character scenario fingerprint"`
}

type ListCachedGraphsInput struct{}

type ChatInput struct {
	Messages []llm.Message `json:"messages" jsonschema:"conversation so far; roles are user, assistant or system"`
}

type ChatOutput struct {
	Message llm.Message `json:"message"`
}

type ResolveCitationOutput struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
	URL   string `json:"url,omitempty"`
}

type CachedGraphOutput struct {
	Fingerprint string           `json:"fingerprint"`
	Found       bool             `json:"found"`
	Graph       model.Graph      `json:"rel_map"`
	Diagram     string           `json:"diagram_code"`
	Issues      []validate.Issue `json:"issues,omitempty"`
}

type ListCachedGraphsOutput struct {
	Graphs []store.FingerprintSummary `json:"graphs"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "review_scenario",
		Description: "Run a full auditor independence review: relationship extraction, judgment, cited laws and a Mermaid diagram",
	}, s.handleReviewScenario)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "extract_relationships",
		Description: "Extract the entity relationship map of a scenario, reusing a cached map when one exists",
	}, s.handleExtractRelationships)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_citation",
		Description: "Resolve a Korean law citation to its law.go.kr URL",
	}, s.handleResolveCitation)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_cached_graph",
		Description: "Return the stored relationship map and diagram for a fingerprint",
	}, s.handleGetCachedGraph)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_cached_graphs",
		Description: "List fingerprints with stored relationship maps",
	}, s.handleListCachedGraphs)

	if s.chat != nil {
		sdk.AddTool(s.mcp, &sdk.Tool{
			Name:        "chat",
			Description: "Ask the audit assistant a free-form question",
		}, s.handleChat)
	}
}

func (s *Server) handleReviewScenario(ctx context.Context, req *sdk.CallToolRequest, input ScenarioInput) (*sdk.CallToolResult, model.Report, error) {
	if strings.TrimSpace(input.Scenario) == "" {
		return nil, model.Report{}, fmt.Errorf("scenario is required")
	}
	report, err := s.reviews.Run(ctx, input.Scenario)
	if err != nil {
		return nil, model.Report{}, errors.New(review.UserMessage(err))
	}
	return nil, *report, nil
}

func (s *Server) handleExtractRelationships(ctx context.Context, req *sdk.CallToolRequest, input ScenarioInput) (*sdk.CallToolResult, review.Extraction, error) {
	if strings.TrimSpace(input.Scenario) == "" {
		return nil, review.Extraction{}, fmt.Errorf("scenario is required")
	}
	extraction, err := s.reviews.Extract(ctx, input.Scenario)
	if err != nil {
		return nil, review.Extraction{}, errors.New(review.UserMessage(err))
	}
	return nil, *extraction, nil
}

func (s *Server) handleResolveCitation(ctx context.Context, req *sdk.CallToolRequest, input ResolveCitationInput) (*sdk.CallToolResult, ResolveCitationOutput, error) {
	name := strings.TrimSpace(input.Citation)
	if name == "" {
		return nil, ResolveCitationOutput{}, fmt.Errorf("citation is required")
	}
	url, _ := s.laws.Resolve(name)
	return nil, ResolveCitationOutput{
		Name:  name,
		Valid: s.laws.IsValid(name),
		URL:   url,
	}, nil
}

func (s *Server) handleGetCachedGraph(ctx context.Context, req *sdk.CallToolRequest, input GetCachedGraphInput) (*sdk.CallToolResult, CachedGraphOutput, error) {
	fp := strings.ToUpper(strings.TrimSpace(input.Fingerprint))
	if !fingerprint.Valid(fp) {
		return nil, CachedGraphOutput{}, fmt.Errorf("fingerprint must be 8 hexadecimal characters")
	}
	out := CachedGraphOutput{Fingerprint: fp, Graph: model.Graph{}, Diagram: diagram.Placeholder()}
	if s.graphs == nil {
		return nil, out, nil
	}
	g, err := s.graphs.LoadGraph(ctx, fp)
	if err != nil {
		return nil, CachedGraphOutput{}, fmt.Errorf("loading graph: %w", err)
	}
	if g == nil {
		return nil, out, nil
	}
	out.Found = true
	out.Graph = *g
	code, err := diagram.RenderChecked(*g, nil)
	if err != nil {
		out.Issues = validate.Graph(fp, *g, nil)
	}
	out.Diagram = code
	return nil, out, nil
}

func (s *Server) handleListCachedGraphs(ctx context.Context, req *sdk.CallToolRequest, input ListCachedGraphsInput) (*sdk.CallToolResult, ListCachedGraphsOutput, error) {
	if s.graphs == nil {
		return nil, ListCachedGraphsOutput{Graphs: []store.FingerprintSummary{}}, nil
	}
	summaries, err := s.graphs.ListFingerprints(ctx)
	if err != nil {
		return nil, ListCachedGraphsOutput{}, fmt.Errorf("listing graphs: %w", err)
	}
	return nil, ListCachedGraphsOutput{Graphs: summaries}, nil
}

func (s *Server) handleChat(ctx context.Context, req *sdk.CallToolRequest, input ChatInput) (*sdk.CallToolResult, ChatOutput, error) {
	reply, err := s.chat.Reply(ctx, input.Messages)
	if err != nil {
		return nil, ChatOutput{}, errors.New(review.UserMessage(err))
	}
	return nil, ChatOutput{Message: llm.Message{Role: "assistant", Content: reply}}, nil
}
