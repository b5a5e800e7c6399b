package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

const (
	loadEntitiesQuery = `
MATCH (n:IndependenceEntity {trace_id: $fp})
RETURN n.id AS id, n.label AS label, n.name AS name
ORDER BY id
`
	loadEdgesQuery = `
MATCH (a:IndependenceEntity {trace_id: $fp})-[r:RELATION]->(b:IndependenceEntity {trace_id: $fp})
RETURN a.id AS source_id, b.id AS target_id, r.rel_type AS rel_type, r.ordinal AS ordinal
ORDER BY source_id, target_id, ordinal
`
)

func (c *Client) LoadGraph(ctx context.Context, fingerprint string) (*model.Graph, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	params := map[string]any{"fp": fingerprint}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, loadEntitiesQuery, params)
		if err != nil {
			return nil, err
		}
		g := &model.Graph{Entities: []model.Entity{}, Connections: []model.Relationship{}}
		seen := map[string]struct{}{}
		for res.Next(ctx) {
			record := res.Record()
			id := toString(recordValue(record, "id"))
			// Older writers could leave duplicate nodes per id; first one wins.
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			g.Entities = append(g.Entities, model.Entity{
				ID:    id,
				Label: toString(recordValue(record, "label")),
				Name:  toString(recordValue(record, "name")),
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		if len(g.Entities) == 0 {
			return (*model.Graph)(nil), nil
		}

		res, err = tx.Run(ctx, loadEdgesQuery, params)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			record := res.Record()
			g.Connections = append(g.Connections, model.Relationship{
				SourceID: toString(recordValue(record, "source_id")),
				TargetID: toString(recordValue(record, "target_id")),
				RelType:  toString(recordValue(record, "rel_type")),
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading graph %s: %w", fingerprint, err)
	}

	g := result.(*model.Graph)
	if g == nil {
		return nil, nil
	}
	store.SortGraph(g)
	return g, nil
}

func (c *Client) SaveGraph(ctx context.Context, fingerprint string, g model.Graph) error {
	if err := store.CheckWritable(fingerprint, g); err != nil {
		return err
	}

	entities := make([]map[string]any, len(g.Entities))
	for i, e := range g.Entities {
		entities[i] = map[string]any{"id": e.ID, "label": e.Label, "name": e.Name}
	}
	edges := make([]map[string]any, 0, len(g.Connections))
	for _, row := range store.EdgeRows(g) {
		edges = append(edges, map[string]any{
			"ordinal":   int64(row.Ordinal),
			"source_id": row.SourceID,
			"target_id": row.TargetID,
			"rel_type":  row.RelType,
		})
	}

	statements := []struct {
		query  string
		params map[string]any
	}{
		{
			query: `
MATCH (:IndependenceEntity {trace_id: $fp})-[r:RELATION]->()
DELETE r
`,
			params: map[string]any{"fp": fingerprint},
		},
		{
			query: `
UNWIND $entities AS e
MERGE (n:IndependenceEntity {trace_id: $fp, id: e.id})
SET n.label = e.label, n.name = e.name
`,
			params: map[string]any{"fp": fingerprint, "entities": entities},
		},
		{
			query: `
MATCH (n:IndependenceEntity {trace_id: $fp})
WHERE NOT n.id IN $ids
DETACH DELETE n
`,
			params: map[string]any{"fp": fingerprint, "ids": store.EntityIDs(g)},
		},
		{
			query: `
UNWIND $edges AS r
MATCH (a:IndependenceEntity {trace_id: $fp, id: r.source_id})
MATCH (b:IndependenceEntity {trace_id: $fp, id: r.target_id})
CREATE (a)-[:RELATION {rel_type: r.rel_type, ordinal: r.ordinal}]->(b)
`,
			params: map[string]any{"fp": fingerprint, "edges": edges},
		},
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range statements {
			res, err := tx.Run(ctx, stmt.query, stmt.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}); err != nil {
		return fmt.Errorf("saving graph %s: %w", fingerprint, err)
	}

	return nil
}

func (c *Client) ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := `
MATCH (n:IndependenceEntity)
WITH n.trace_id AS fp, count(DISTINCT n.id) AS entities
CALL {
  WITH fp
  OPTIONAL MATCH (:IndependenceEntity {trace_id: fp})-[r:RELATION]->()
  RETURN count(r) AS connections
}
RETURN fp, entities, connections
ORDER BY fp
`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		summaries := []store.FingerprintSummary{}
		for res.Next(ctx) {
			record := res.Record()
			fp := toString(recordValue(record, "fp"))
			if fp == "" {
				continue
			}
			summaries = append(summaries, store.FingerprintSummary{
				Fingerprint: fp,
				Entities:    toInt(recordValue(record, "entities")),
				Connections: toInt(recordValue(record, "connections")),
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return summaries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}

	return result.([]store.FingerprintSummary), nil
}

func (c *Client) DeleteGraph(ctx context.Context, fingerprint string) (int64, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := `
MATCH (n:IndependenceEntity {trace_id: $fp})
DETACH DELETE n
RETURN count(n) AS deleted
`

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"fp": fingerprint})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			value, _ := res.Record().Get("deleted")
			if count, ok := value.(int64); ok {
				return count, nil
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return int64(0), nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting graph %s: %w", fingerprint, err)
	}

	return result.(int64), nil
}

func recordValue(record *neo4j.Record, key string) any {
	value, _ := record.Get(key)
	return value
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
