package validate

import (
	"context"
	"fmt"
	"strings"

	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeMissingGraph       = "missing_graph"
	codeInvalidEntityID    = "invalid_entity_id"
	codeDuplicateEntityID  = "duplicate_entity_id"
	codeDanglingEndpoint   = "dangling_endpoint"
	codeOrphanedEntity     = "orphaned_entity"
	codeEmptyName          = "empty_entity_name"
	codeEmptyRelType       = "empty_relationship_type"
	codeUnknownFlaggedEdge = "unknown_flagged_connection"
)

type Issue struct {
	Severity    Severity `json:"severity"`
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Entity      string   `json:"entity,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// GraphSource is the read side of a graph store.
type GraphSource interface {
	LoadGraph(ctx context.Context, fingerprint string) (*model.Graph, error)
	ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error)
}

// Run checks the stored graphs for the given fingerprints, or every stored
// graph when none are given.
func Run(ctx context.Context, source GraphSource, fingerprints ...string) (*Report, error) {
	if source == nil {
		return nil, fmt.Errorf("graph store is required")
	}

	if len(fingerprints) == 0 {
		summaries, err := source.ListFingerprints(ctx)
		if err != nil {
			return nil, fmt.Errorf("list fingerprints: %w", err)
		}
		for _, s := range summaries {
			fingerprints = append(fingerprints, s.Fingerprint)
		}
	}

	issues := make([]Issue, 0)
	for _, fp := range fingerprints {
		g, err := source.LoadGraph(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("load graph %s: %w", fp, err)
		}
		if g == nil {
			issues = append(issues, Issue{
				Severity:    SeverityError,
				Code:        codeMissingGraph,
				Message:     "no stored graph for fingerprint",
				Fingerprint: fp,
			})
			continue
		}
		issues = append(issues, Graph(fp, *g, nil)...)
	}

	return &Report{Issues: issues}, nil
}

// Graph lists every problem in g rather than stopping at the first one the
// way model.Graph.Validate does. flagged connections that do not exist in g
// are reported as warnings.
func Graph(fingerprint string, g model.Graph, flagged []model.VulnerableConnection) []Issue {
	var issues []Issue
	add := func(severity Severity, code, entity, message string) {
		issues = append(issues, Issue{
			Severity:    severity,
			Code:        code,
			Message:     message,
			Fingerprint: fingerprint,
			Entity:      entity,
		})
	}

	ids := make(map[string]int, len(g.Entities))
	for _, e := range g.Entities {
		if !model.ValidID(e.ID) {
			add(SeverityError, codeInvalidEntityID, e.ID, fmt.Sprintf("entity id %q must be alphanumeric", e.ID))
		}
		ids[e.ID]++
		if ids[e.ID] == 2 {
			add(SeverityError, codeDuplicateEntityID, e.ID, "duplicate entity id")
		}
		if strings.TrimSpace(e.Name) == "" {
			add(SeverityWarn, codeEmptyName, e.ID, "entity has no name")
		}
	}

	type pair struct{ source, target string }
	edges := make(map[pair]struct{}, len(g.Connections))
	linked := make(map[string]struct{}, len(g.Entities))
	for i, c := range g.Connections {
		for _, endpoint := range []string{c.SourceID, c.TargetID} {
			if _, ok := ids[endpoint]; !ok {
				add(SeverityError, codeDanglingEndpoint, endpoint,
					fmt.Sprintf("connection %d references unknown entity", i))
			}
			linked[endpoint] = struct{}{}
		}
		if strings.TrimSpace(c.RelType) == "" {
			add(SeverityWarn, codeEmptyRelType, c.SourceID,
				fmt.Sprintf("connection %s -> %s has no relationship type", c.SourceID, c.TargetID))
		}
		edges[pair{c.SourceID, c.TargetID}] = struct{}{}
	}

	for _, e := range g.Entities {
		if _, ok := linked[e.ID]; !ok {
			add(SeverityWarn, codeOrphanedEntity, e.ID, "entity has no connections")
		}
	}

	for _, vc := range flagged {
		if _, ok := edges[pair{vc.SourceID, vc.TargetID}]; !ok {
			add(SeverityWarn, codeUnknownFlaggedEdge, vc.SourceID,
				fmt.Sprintf("flagged connection %s -> %s is not in the relationship map", vc.SourceID, vc.TargetID))
		}
	}

	return issues
}
