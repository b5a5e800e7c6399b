package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"auditgraph/internal/citation"
	"auditgraph/internal/fingerprint"
	"auditgraph/internal/model"
	"auditgraph/internal/registry"
	"auditgraph/internal/store"
)

const scenarioABC = "A씨는 B회계법인 소속이며 B회계법인은 C사를 감사한다"

type stubExtractor struct {
	graph model.Graph
	err   error

	calls        int
	lastScenario string
}

func (s *stubExtractor) Extract(ctx context.Context, scenario string) (model.Graph, error) {
	s.calls++
	s.lastScenario = scenario
	return s.graph, s.err
}

type stubAnalyzer struct {
	result model.AnalysisResult
	err    error

	calls     int
	lastGraph model.Graph
}

func (s *stubAnalyzer) Analyze(ctx context.Context, scenario string, g model.Graph) (model.AnalysisResult, error) {
	s.calls++
	s.lastGraph = g
	return s.result, s.err
}

type memStore struct {
	graphs  map[string]model.Graph
	loadErr error
	saveErr error

	saves int
}

func newMemStore() *memStore {
	return &memStore{graphs: map[string]model.Graph{}}
}

func (m *memStore) Close(ctx context.Context) error        { return nil }
func (m *memStore) Ping(ctx context.Context) error         { return nil }
func (m *memStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *memStore) LoadGraph(ctx context.Context, fp string) (*model.Graph, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	g, ok := m.graphs[fp]
	if !ok {
		return nil, nil
	}
	out := g.Clone()
	return &out, nil
}

func (m *memStore) SaveGraph(ctx context.Context, fp string, g model.Graph) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.graphs[fp] = g.Clone()
	return nil
}

func (m *memStore) ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error) {
	return nil, nil
}

func (m *memStore) DeleteGraph(ctx context.Context, fp string) (int64, error) {
	n := int64(len(m.graphs[fp].Entities))
	delete(m.graphs, fp)
	return n, nil
}

func abcGraph() model.Graph {
	return model.Graph{
		Entities: []model.Entity{
			{ID: "A", Label: "공인회계사", Name: "A씨"},
			{ID: "B", Label: "회계법인", Name: "B회계법인"},
			{ID: "C", Label: "피감사회사", Name: "C사"},
		},
		Connections: []model.Relationship{
			{SourceID: "A", TargetID: "B", RelType: "소속"},
			{SourceID: "B", TargetID: "C", RelType: "감사"},
		},
	}
}

func newTestService(ext Extractor, an Analyzer, opts ...Option) *Service {
	reg := registry.NewFromEntries(map[string]string{"공인회계사법": "268459"})
	return NewService(ext, an, citation.NewEnricher(reg, nil), opts...)
}

func TestRunEndToEnd(t *testing.T) {
	ext := &stubExtractor{graph: abcGraph()}
	an := &stubAnalyzer{result: model.AnalysisResult{Status: model.StatusAccept}}
	st := newMemStore()

	report, err := newTestService(ext, an, WithStore(st)).Run(context.Background(), scenarioABC)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want, _ := fingerprint.Of(scenarioABC)
	if report.Fingerprint != want {
		t.Fatalf("fingerprint = %s, want %s", report.Fingerprint, want)
	}
	if got := strings.Count(report.Diagram, ":::normalNode"); got != 3 {
		t.Fatalf("expected 3 node declarations, got %d:\n%s", got, report.Diagram)
	}
	if got := strings.Count(report.Diagram, `---|"`); got != 2 {
		t.Fatalf("expected 2 plain edges, got %d:\n%s", got, report.Diagram)
	}
	if strings.Contains(report.Diagram, " -. ") {
		t.Fatalf("expected no dashed edges:\n%s", report.Diagram)
	}
	if report.Analysis.Status != model.StatusAccept {
		t.Fatalf("unexpected status %q", report.Analysis.Status)
	}
	if st.saves != 1 {
		t.Fatalf("expected graph saved once, got %d", st.saves)
	}
	if _, ok := st.graphs[want]; !ok {
		t.Fatalf("expected graph stored under %s", want)
	}
	if ext.lastScenario != scenarioABC {
		t.Fatalf("unexpected extractor input %q", ext.lastScenario)
	}
}

func TestExtractUsesCache(t *testing.T) {
	st := newMemStore()
	fp, _ := fingerprint.Of(scenarioABC)
	st.graphs[fp] = abcGraph()
	ext := &stubExtractor{err: errors.New("should not be called")}

	svc := newTestService(ext, &stubAnalyzer{}, WithStore(st))
	out, err := svc.Extract(context.Background(), "  "+scenarioABC+"\n")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !out.Cached || out.Fingerprint != fp {
		t.Fatalf("expected cached extraction for %s, got %+v", fp, out)
	}
	if ext.calls != 0 {
		t.Fatalf("expected extractor not called on cache hit")
	}
	if len(out.Graph.Entities) != 3 {
		t.Fatalf("unexpected cached graph %+v", out.Graph)
	}
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	st := newMemStore()
	st.loadErr = errors.New("connection refused")
	st.saveErr = errors.New("connection refused")

	ext := &stubExtractor{graph: abcGraph()}
	an := &stubAnalyzer{result: model.AnalysisResult{Status: model.StatusConditional}}

	report, err := newTestService(ext, an, WithStore(st)).Run(context.Background(), scenarioABC)
	if err != nil {
		t.Fatalf("expected store failures to be swallowed, got %v", err)
	}
	if ext.calls != 1 {
		t.Fatalf("expected load failure to fall back to extraction")
	}
	if st.saves != 1 {
		t.Fatalf("expected save to be attempted")
	}
	if report.Diagram == "" {
		t.Fatalf("expected diagram")
	}
}

func TestRunWithoutStore(t *testing.T) {
	ext := &stubExtractor{graph: abcGraph()}
	an := &stubAnalyzer{result: model.AnalysisResult{Status: model.StatusAccept}}

	if _, err := newTestService(ext, an).Run(context.Background(), scenarioABC); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestSaveOnCacheHit(t *testing.T) {
	fp, _ := fingerprint.Of(scenarioABC)
	an := &stubAnalyzer{result: model.AnalysisResult{Status: model.StatusAccept}}

	t.Run("enabled", func(t *testing.T) {
		st := newMemStore()
		st.graphs[fp] = abcGraph()
		if _, err := newTestService(&stubExtractor{}, an, WithStore(st)).Run(context.Background(), scenarioABC); err != nil {
			t.Fatalf("run: %v", err)
		}
		if st.saves != 1 {
			t.Fatalf("expected re-save, got %d saves", st.saves)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		st := newMemStore()
		st.graphs[fp] = abcGraph()
		svc := newTestService(&stubExtractor{}, an, WithStore(st), WithSaveOnCacheHit(false))
		if _, err := svc.Run(context.Background(), scenarioABC); err != nil {
			t.Fatalf("run: %v", err)
		}
		if st.saves != 0 {
			t.Fatalf("expected no save, got %d", st.saves)
		}
	})
}

func TestReportFlagsAndEnrichment(t *testing.T) {
	st := newMemStore()
	svc := newTestService(&stubExtractor{}, &stubAnalyzer{}, WithStore(st))

	analysis := model.AnalysisResult{
		Status: model.StatusReject,
		LegalReferences: []model.LegalReference{
			{Name: "공인회계사법 제21조"},
			{Name: "공인회계사 윤리기준"},
		},
		VulnerableConnections: []model.VulnerableConnection{{SourceID: "A", TargetID: "B", Reason: "소속"}},
	}
	report, err := svc.Report(context.Background(), scenarioABC, abcGraph(), analysis)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(report.Diagram, `    A -. "[!] 소속" .-> B`) {
		t.Fatalf("expected flagged edge:\n%s", report.Diagram)
	}
	if got := strings.Count(report.Diagram, ":::riskyNode"); got != 2 {
		t.Fatalf("expected 2 risky nodes, got %d", got)
	}
	if got := report.Analysis.LegalReferences[0].URLString(); got != "https://www.law.go.kr/법령/공인회계사법/제21조" {
		t.Fatalf("unexpected statute url %q", got)
	}
	if report.Analysis.LegalReferences[1].URL != nil {
		t.Fatalf("expected ethics code to stay text-only")
	}
	if analysis.LegalReferences[0].URL != nil {
		t.Fatalf("expected input analysis untouched")
	}
	if st.saves != 1 {
		t.Fatalf("expected report stage to save")
	}
}

func TestErrorClassification(t *testing.T) {
	an := &stubAnalyzer{result: model.AnalysisResult{Status: model.StatusAccept}}

	tests := []struct {
		name     string
		scenario string
		extErr   error
		graph    model.Graph
		wantKind error
	}{
		{name: "empty scenario", scenario: "   ", wantKind: ErrInput},
		{name: "model failure", scenario: scenarioABC, extErr: errors.New("llm api error 500"), wantKind: ErrExternalCall},
		{name: "missing key", scenario: scenarioABC, extErr: fmt.Errorf("%w: OPENAI_API_KEY가 설정되지 않았습니다.", ErrConfiguration), wantKind: ErrConfiguration},
		{name: "parse failure", scenario: scenarioABC, extErr: fmt.Errorf("%w: empty model response", ErrParse), wantKind: ErrParse},
		{
			name:     "dangling edge",
			scenario: scenarioABC,
			graph: model.Graph{
				Entities:    []model.Entity{{ID: "A", Name: "A"}},
				Connections: []model.Relationship{{SourceID: "A", TargetID: "Z"}},
			},
			wantKind: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &stubExtractor{graph: tt.graph, err: tt.extErr}
			_, err := newTestService(ext, an).Run(context.Background(), tt.scenario)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Fatalf("KindOf = %v, want %v (err %v)", got, tt.wantKind, err)
			}
			var reviewErr *Error
			if !errors.As(err, &reviewErr) || reviewErr.Op != "extract" {
				t.Fatalf("expected extract stage error, got %v", err)
			}
		})
	}
}

func TestAnalyzeRejectsInvalidGraph(t *testing.T) {
	an := &stubAnalyzer{}
	svc := newTestService(&stubExtractor{}, an)

	g := model.Graph{Entities: []model.Entity{{ID: "A-1", Name: "A"}}}
	_, err := svc.Analyze(context.Background(), scenarioABC, g)
	if !errors.Is(err, ErrInput) || !IsClientError(err) {
		t.Fatalf("expected input error, got %v", err)
	}
	if an.calls != 0 {
		t.Fatalf("expected analyzer not called")
	}
}

func TestAnalyzeReturnsRawCitations(t *testing.T) {
	an := &stubAnalyzer{result: model.AnalysisResult{
		Status:          model.StatusAccept,
		LegalReferences: []model.LegalReference{{Name: "공인회계사법"}},
	}}
	svc := newTestService(&stubExtractor{}, an)

	out, err := svc.Analyze(context.Background(), scenarioABC, abcGraph())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.LegalReferences[0].URL != nil {
		t.Fatalf("expected analyze stage to leave citations unenriched")
	}
}

func TestReportRejectsEmptyScenario(t *testing.T) {
	svc := newTestService(&stubExtractor{}, &stubAnalyzer{})
	_, err := svc.Report(context.Background(), "", abcGraph(), model.AnalysisResult{Status: model.StatusAccept})
	if !errors.Is(err, ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}
