package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"auditgraph/internal/citation"
	"auditgraph/internal/llm"
	"auditgraph/internal/model"
	"auditgraph/internal/review"
	"auditgraph/internal/store"
)

// Reviewer runs the review pipeline stages exposed as tools.
type Reviewer interface {
	Run(ctx context.Context, scenario string) (*model.Report, error)
	Extract(ctx context.Context, scenario string) (*review.Extraction, error)
}

// GraphReader is the read side of the graph store. It may be nil when
// caching is disabled.
type GraphReader interface {
	LoadGraph(ctx context.Context, fingerprint string) (*model.Graph, error)
	ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error)
}

// Chatter answers free-form conversations.
type Chatter interface {
	Reply(ctx context.Context, messages []llm.Message) (string, error)
}

type Server struct {
	reviews Reviewer
	laws    citation.Resolver
	graphs  GraphReader
	chat    Chatter
	mcp     *sdk.Server
}

type Option func(*Server)

// WithChat registers the chat tool.
func WithChat(chat Chatter) Option {
	return func(s *Server) { s.chat = chat }
}

func NewServer(reviews Reviewer, laws citation.Resolver, graphs GraphReader, version string, opts ...Option) *Server {
	s := &Server{
		reviews: reviews,
		laws:    laws,
		graphs:  graphs,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "auditgraph",
			Version: version,
		}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
