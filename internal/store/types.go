package store

import (
	"fmt"
	"sort"

	"auditgraph/internal/model"
)

type FingerprintSummary struct {
	Fingerprint string `json:"fingerprint"`
	Entities    int    `json:"entities"`
	Connections int    `json:"connections"`
}

// EdgeRow is a relationship as stored, with its position in the source graph.
type EdgeRow struct {
	Ordinal  int
	SourceID string
	TargetID string
	RelType  string
}

func EdgeRows(g model.Graph) []EdgeRow {
	rows := make([]EdgeRow, len(g.Connections))
	for i, c := range g.Connections {
		rows[i] = EdgeRow{Ordinal: i, SourceID: c.SourceID, TargetID: c.TargetID, RelType: c.RelType}
	}
	return rows
}

func EntityIDs(g model.Graph) []string {
	ids := make([]string, len(g.Entities))
	for i, e := range g.Entities {
		ids[i] = e.ID
	}
	return ids
}

// CheckWritable rejects graphs that would leave dangling edges behind.
func CheckWritable(fingerprint string, g model.Graph) error {
	if fingerprint == "" {
		return fmt.Errorf("fingerprint is required")
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid graph for %s: %w", fingerprint, err)
	}
	return nil
}

// SortGraph applies the load ordering: entities by id, edges by source id
// then target id, keeping the stored order among equal pairs.
func SortGraph(g *model.Graph) {
	sort.SliceStable(g.Entities, func(i, j int) bool {
		return g.Entities[i].ID < g.Entities[j].ID
	})
	sort.SliceStable(g.Connections, func(i, j int) bool {
		a, b := g.Connections[i], g.Connections[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.TargetID < b.TargetID
	})
}
