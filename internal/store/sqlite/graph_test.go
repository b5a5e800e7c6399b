package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/sync/errgroup"

	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	client, err := New(ctx, "sqlite://"+filepath.Join(t.TempDir(), "graphs.db"))
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(ctx) })
	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return client
}

func sampleGraph() model.Graph {
	return model.Graph{
		Entities: []model.Entity{
			{ID: "C", Label: "피감사회사", Name: "C사"},
			{ID: "A", Label: "공인회계사", Name: "A씨"},
			{ID: "B", Label: "회계법인", Name: "B회계법인"},
		},
		Connections: []model.Relationship{
			{SourceID: "B", TargetID: "C", RelType: "감사"},
			{SourceID: "A", TargetID: "B", RelType: "소속"},
			{SourceID: "A", TargetID: "B", RelType: "소속"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	g := sampleGraph()
	if err := client.SaveGraph(ctx, "5D41402A", g); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := client.LoadGraph(ctx, "5D41402A")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected graph")
	}

	want := g.Clone()
	store.SortGraph(&want)
	if !reflect.DeepEqual(*loaded, want) {
		t.Fatalf("loaded graph mismatch:\n got %+v\nwant %+v", *loaded, want)
	}
}

func TestLoadMiss(t *testing.T) {
	client := testClient(t)
	loaded, err := client.LoadGraph(context.Background(), "00000000")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected cache miss")
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	g := sampleGraph()
	for i := 0; i < 3; i++ {
		if err := client.SaveGraph(ctx, "AAAA0000", g); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	loaded, err := client.LoadGraph(ctx, "AAAA0000")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Entities) != 3 || len(loaded.Connections) != 3 {
		t.Fatalf("expected no duplication, got %d entities %d connections", len(loaded.Entities), len(loaded.Connections))
	}
}

func TestSaveReplacesGraph(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	if err := client.SaveGraph(ctx, "BBBB0000", sampleGraph()); err != nil {
		t.Fatalf("save: %v", err)
	}
	smaller := model.Graph{
		Entities:    []model.Entity{{ID: "A", Label: "인물", Name: "A씨 (수정)"}},
		Connections: []model.Relationship{},
	}
	if err := client.SaveGraph(ctx, "BBBB0000", smaller); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := client.LoadGraph(ctx, "BBBB0000")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(*loaded, smaller) {
		t.Fatalf("expected replaced graph, got %+v", *loaded)
	}
}

func TestSaveRejectsDanglingEdge(t *testing.T) {
	client := testClient(t)
	g := model.Graph{
		Entities:    []model.Entity{{ID: "A", Name: "A"}},
		Connections: []model.Relationship{{SourceID: "A", TargetID: "Z", RelType: "x"}},
	}
	if err := client.SaveGraph(context.Background(), "CCCC0000", g); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFingerprintsAreIsolated(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	if err := client.SaveGraph(ctx, "11111111", sampleGraph()); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := model.Graph{Entities: []model.Entity{{ID: "A", Label: "인물", Name: "다른 사람"}}}
	if err := client.SaveGraph(ctx, "22222222", other); err != nil {
		t.Fatalf("save: %v", err)
	}

	summaries, err := client.ListFingerprints(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []store.FingerprintSummary{
		{Fingerprint: "11111111", Entities: 3, Connections: 3},
		{Fingerprint: "22222222", Entities: 1, Connections: 0},
	}
	if !reflect.DeepEqual(summaries, want) {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	deleted, err := client.DeleteGraph(ctx, "11111111")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted entities, got %d", deleted)
	}
	if g, _ := client.LoadGraph(ctx, "11111111"); g != nil {
		t.Fatalf("expected graph to be gone")
	}
	if g, _ := client.LoadGraph(ctx, "22222222"); g == nil || g.Entities[0].Name != "다른 사람" {
		t.Fatalf("expected other fingerprint untouched")
	}
}

func TestInMemoryDSN(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}
	defer client.Close(ctx)

	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := client.SaveGraph(ctx, "DDDD0000", sampleGraph()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if g, err := client.LoadGraph(ctx, "DDDD0000"); err != nil || g == nil {
		t.Fatalf("expected stored graph, got %v %v", g, err)
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "sqlite://:memory:", want: ":memory:"},
		{input: "sqlite:///var/lib/auditgraph.db", want: "/var/lib/auditgraph.db"},
		{input: "sqlite://./data/graphs.db", want: "./data/graphs.db"},
		{input: "sqlite://graphs.db", want: "./graphs.db"},
		{input: "sqlite://graphs.db?_pragma=busy_timeout(5000)", want: "./graphs.db?_pragma=busy_timeout(5000)"},
		{input: "postgres://localhost/db", wantErr: true},
		{input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Fatalf("parseDSN(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithConnParams(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			input: "./graphs.db",
			want:  "./graphs.db?_pragma=busy_timeout(30000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate",
		},
		{
			input: ":memory:",
			want:  ":memory:?_pragma=busy_timeout(30000)&_pragma=foreign_keys(1)&_txlock=immediate",
		},
		{
			input: "./graphs.db?_pragma=busy_timeout(5000)&_txlock=deferred",
			want:  "./graphs.db?_pragma=busy_timeout(5000)&_txlock=deferred&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := withConnParams(tt.input); got != tt.want {
				t.Fatalf("withConnParams(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPragmasOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	var conns []*sql.Conn
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()
	for i := 0; i < 4; i++ {
		conn, err := client.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		conns = append(conns, conn)

		var timeout, foreignKeys int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("busy_timeout on conn %d: %v", i, err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
			t.Fatalf("foreign_keys on conn %d: %v", i, err)
		}
		if timeout != 30000 || foreignKeys != 1 {
			t.Fatalf("conn %d: busy_timeout=%d foreign_keys=%d", i, timeout, foreignKeys)
		}
	}
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	const writers = 32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		fp := fmt.Sprintf("C0%06X", i)
		g.Go(func() error {
			if err := client.SaveGraph(gctx, fp, sampleGraph()); err != nil {
				return fmt.Errorf("save %s: %w", fp, err)
			}
			loaded, err := client.LoadGraph(gctx, fp)
			if err != nil {
				return fmt.Errorf("load %s: %w", fp, err)
			}
			if loaded == nil {
				return fmt.Errorf("load %s: graph missing", fp)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent saves: %v", err)
	}

	summaries, err := client.ListFingerprints(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != writers {
		t.Fatalf("expected %d stored graphs, got %d", writers, len(summaries))
	}
}
