package validate

import (
	"context"
	"errors"
	"testing"

	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

type mockSource struct {
	graphs  map[string]model.Graph
	listErr error

	loaded []string
}

func (m *mockSource) LoadGraph(ctx context.Context, fp string) (*model.Graph, error) {
	m.loaded = append(m.loaded, fp)
	g, ok := m.graphs[fp]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *mockSource) ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]store.FingerprintSummary, 0, len(m.graphs))
	for _, fp := range []string{"AAAA0000", "BBBB0000"} {
		if _, ok := m.graphs[fp]; ok {
			out = append(out, store.FingerprintSummary{Fingerprint: fp})
		}
	}
	return out, nil
}

func codes(issues []Issue) map[string]int {
	out := map[string]int{}
	for _, issue := range issues {
		out[issue.Code]++
	}
	return out
}

func TestGraph(t *testing.T) {
	g := model.Graph{
		Entities: []model.Entity{
			{ID: "A", Name: "A씨"},
			{ID: "A", Name: "A씨 중복"},
			{ID: "B-1", Name: "B"},
			{ID: "C", Name: " "},
		},
		Connections: []model.Relationship{
			{SourceID: "A", TargetID: "Z", RelType: "소속"},
			{SourceID: "A", TargetID: "B-1", RelType: ""},
		},
	}

	issues := Graph("5D41402A", g, []model.VulnerableConnection{
		{SourceID: "A", TargetID: "B-1"},
		{SourceID: "C", TargetID: "A"},
	})

	got := codes(issues)
	want := map[string]int{
		codeInvalidEntityID:    1,
		codeDuplicateEntityID:  1,
		codeDanglingEndpoint:   1,
		codeEmptyName:          1,
		codeEmptyRelType:       1,
		codeOrphanedEntity:     1,
		codeUnknownFlaggedEdge: 1,
	}
	for code, n := range want {
		if got[code] != n {
			t.Fatalf("expected %d %s issues, got %d (%+v)", n, code, got[code], issues)
		}
	}
	for _, issue := range issues {
		if issue.Fingerprint != "5D41402A" {
			t.Fatalf("expected fingerprint on every issue, got %+v", issue)
		}
	}
}

func TestGraphClean(t *testing.T) {
	g := model.Graph{
		Entities:    []model.Entity{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}},
		Connections: []model.Relationship{{SourceID: "A", TargetID: "B", RelType: "소속"}},
	}
	if issues := Graph("", g, []model.VulnerableConnection{{SourceID: "A", TargetID: "B"}}); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestRun(t *testing.T) {
	source := &mockSource{graphs: map[string]model.Graph{
		"AAAA0000": {Entities: []model.Entity{{ID: "A", Name: "A"}}},
		"BBBB0000": {
			Entities:    []model.Entity{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}},
			Connections: []model.Relationship{{SourceID: "A", TargetID: "B", RelType: "x"}},
		},
	}}

	t.Run("all stored graphs", func(t *testing.T) {
		report, err := Run(context.Background(), source)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(report.Issues) != 1 || report.Issues[0].Code != codeOrphanedEntity || report.Issues[0].Fingerprint != "AAAA0000" {
			t.Fatalf("unexpected issues %+v", report.Issues)
		}
		if report.HasErrors() {
			t.Fatalf("orphans are warnings only")
		}
	})

	t.Run("missing fingerprint", func(t *testing.T) {
		report, err := Run(context.Background(), source, "FFFF0000")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !report.HasErrors() || report.Issues[0].Code != codeMissingGraph {
			t.Fatalf("expected missing graph error, got %+v", report.Issues)
		}
	})

	t.Run("list failure", func(t *testing.T) {
		_, err := Run(context.Background(), &mockSource{listErr: errors.New("down")})
		if err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("nil source", func(t *testing.T) {
		if _, err := Run(context.Background(), nil); err == nil {
			t.Fatalf("expected error")
		}
	})
}
