package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"auditgraph/internal/llm"
	"auditgraph/internal/registry"
	"auditgraph/internal/review"
)

const maxBodyBytes = 1 << 20

// Chatter answers free-form conversations.
type Chatter interface {
	Reply(ctx context.Context, messages []llm.Message) (string, error)
}

// Server exposes the review pipeline over HTTP.
type Server struct {
	reviews     *review.Service
	laws        *registry.Registry
	chat        Chatter
	logger      *slog.Logger
	corsOrigins []string
	version     string
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

func WithChat(chat Chatter) Option {
	return func(s *Server) { s.chat = chat }
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

func NewServer(reviews *review.Service, laws *registry.Registry, opts ...Option) *Server {
	s := &Server{
		reviews: reviews,
		laws:    laws,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.corsOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/independence", func(api chi.Router) {
		api.Post("/review", s.handleReview)
		api.Post("/extract", s.handleExtract)
		api.Post("/analyze", s.handleAnalyze)
		api.Post("/report", s.handleReport)
	})

	r.Route("/graph", func(api chi.Router) {
		api.Get("/", s.handleListGraphs)
		api.Get("/{fingerprint}", s.handleGetGraph)
	})

	r.Get("/laws/resolve", s.handleResolveLaw)
	r.Post("/chat/completions", s.handleChat)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
