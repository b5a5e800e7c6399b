package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"auditgraph/internal/citation"
	"auditgraph/internal/diagram"
	"auditgraph/internal/fingerprint"
	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

// Extractor produces the relationship map for a scenario.
type Extractor interface {
	Extract(ctx context.Context, scenario string) (model.Graph, error)
}

// Analyzer produces the independence judgment for a scenario and its map.
type Analyzer interface {
	Analyze(ctx context.Context, scenario string, g model.Graph) (model.AnalysisResult, error)
}

// Extraction is the result of the first review stage.
type Extraction struct {
	Fingerprint string      `json:"fingerprint"`
	Graph       model.Graph `json:"rel_map"`
	Cached      bool        `json:"cached"`
}

type Service struct {
	store          store.Store
	extractor      Extractor
	analyzer       Analyzer
	enricher       *citation.Enricher
	logger         *slog.Logger
	saveOnCacheHit bool
}

type Option func(*Service)

// WithStore enables graph caching. A nil store runs every review uncached.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

// WithSaveOnCacheHit controls whether Report re-saves a graph that was
// served from the store. The re-save is an idempotent upsert.
func WithSaveOnCacheHit(save bool) Option {
	return func(svc *Service) { svc.saveOnCacheHit = save }
}

func NewService(extractor Extractor, analyzer Analyzer, enricher *citation.Enricher, opts ...Option) *Service {
	svc := &Service{
		extractor:      extractor,
		analyzer:       analyzer,
		enricher:       enricher,
		logger:         slog.Default(),
		saveOnCacheHit: true,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the configured graph store, or nil when caching is off.
func (s *Service) Store() store.Store {
	return s.store
}

// Run performs a full review: extraction (or cache reuse), analysis, then
// the report stage.
func (s *Service) Run(ctx context.Context, scenario string) (*model.Report, error) {
	extraction, err := s.Extract(ctx, scenario)
	if err != nil {
		return nil, err
	}
	analysis, err := s.Analyze(ctx, scenario, extraction.Graph)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, extraction.Fingerprint, extraction.Graph, analysis, extraction.Cached)
}

func (s *Service) Extract(ctx context.Context, scenario string) (*Extraction, error) {
	const op = "extract"

	scenario = strings.TrimSpace(scenario)
	fp, err := fingerprint.Of(scenario)
	if err != nil {
		return nil, newError(ErrInput, op, err)
	}

	if g := s.loadCached(ctx, fp); g != nil {
		s.logger.Info("review: cache hit", "fingerprint", fp,
			"entities", len(g.Entities), "connections", len(g.Connections))
		return &Extraction{Fingerprint: fp, Graph: *g, Cached: true}, nil
	}

	s.logger.Info("review: cache miss, extracting", "fingerprint", fp)
	g, err := s.extractor.Extract(ctx, scenario)
	if err != nil {
		return nil, classify(op, ErrExternalCall, err)
	}
	if err := g.Validate(); err != nil {
		return nil, newError(ErrParse, op, err)
	}
	return &Extraction{Fingerprint: fp, Graph: g.Clone()}, nil
}

// Analyze returns the raw model judgment; citations are enriched by Report.
func (s *Service) Analyze(ctx context.Context, scenario string, g model.Graph) (model.AnalysisResult, error) {
	const op = "analyze"

	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		return model.AnalysisResult{}, newError(ErrInput, op, fingerprint.ErrEmptyInput)
	}
	if err := g.Validate(); err != nil {
		return model.AnalysisResult{}, newError(ErrInput, op, err)
	}

	analysis, err := s.analyzer.Analyze(ctx, scenario, g)
	if err != nil {
		return model.AnalysisResult{}, classify(op, ErrExternalCall, err)
	}
	return analysis, nil
}

// Report enriches citations, renders the diagram and saves the graph on a
// best-effort basis.
func (s *Service) Report(ctx context.Context, scenario string, g model.Graph, analysis model.AnalysisResult) (*model.Report, error) {
	const op = "report"

	fp, err := fingerprint.Of(scenario)
	if err != nil {
		return nil, newError(ErrInput, op, err)
	}
	if err := g.Validate(); err != nil {
		return nil, newError(ErrInput, op, err)
	}
	return s.report(ctx, fp, g, analysis, false)
}

func (s *Service) report(ctx context.Context, fp string, g model.Graph, analysis model.AnalysisResult, cached bool) (*model.Report, error) {
	enriched := analysis.Clone()
	if s.enricher != nil {
		enriched = s.enricher.Enrich(analysis)
	}
	code := diagram.Render(g, enriched.VulnerableConnections)

	if cached && !s.saveOnCacheHit {
		s.logResult(fp, Skipped("graph served from store"))
	} else {
		s.logResult(fp, s.saveBestEffort(ctx, fp, g))
	}

	return &model.Report{
		Fingerprint: fp,
		Graph:       g.Clone(),
		Analysis:    enriched,
		Diagram:     code,
	}, nil
}

// loadCached treats any store failure as a cache miss.
func (s *Service) loadCached(ctx context.Context, fp string) *model.Graph {
	if s.store == nil {
		return nil
	}
	g, err := s.store.LoadGraph(ctx, fp)
	if err != nil {
		s.logger.Warn("review: graph store load failed, treating as miss",
			"fingerprint", fp, "error", newError(ErrStore, "load", err))
		return nil
	}
	if g == nil || g.Empty() {
		return nil
	}
	if err := g.Validate(); err != nil {
		s.logger.Warn("review: stored graph is invalid, treating as miss",
			"fingerprint", fp, "error", err)
		return nil
	}
	return g
}

func (s *Service) saveBestEffort(ctx context.Context, fp string, g model.Graph) SaveResult {
	if s.store == nil {
		return Skipped("no graph store configured")
	}
	if g.Empty() {
		return Skipped("empty relationship map")
	}
	if err := s.store.SaveGraph(ctx, fp, g); err != nil {
		return Failed(newError(ErrStore, "save", err))
	}
	return Saved()
}

func (s *Service) logResult(fp string, result SaveResult) {
	switch result.Outcome {
	case SaveSaved:
		s.logger.Info("review: graph saved", "fingerprint", fp)
	case SaveSkipped:
		s.logger.Debug("review: graph save skipped", "fingerprint", fp, "reason", result.Reason)
	case SaveFailed:
		s.logger.Warn("review: graph save failed", "fingerprint", fp, "error", result.Err)
	}
}

// SaveOutcome is the result of the best-effort store write in the report stage.
type SaveOutcome int

const (
	SaveSaved SaveOutcome = iota
	SaveSkipped
	SaveFailed
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveSaved:
		return "saved"
	case SaveSkipped:
		return "skipped"
	case SaveFailed:
		return "failed"
	default:
		return fmt.Sprintf("SaveOutcome(%d)", int(o))
	}
}

type SaveResult struct {
	Outcome SaveOutcome
	Reason  string
	Err     error
}

func Saved() SaveResult                { return SaveResult{Outcome: SaveSaved} }
func Skipped(reason string) SaveResult { return SaveResult{Outcome: SaveSkipped, Reason: reason} }

func Failed(err error) SaveResult {
	if err == nil {
		err = errors.New("unknown save failure")
	}
	return SaveResult{Outcome: SaveFailed, Err: err}
}
