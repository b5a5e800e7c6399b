package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

func (c *Client) LoadGraph(ctx context.Context, fingerprint string) (*model.Graph, error) {
	rows, err := c.pool.Query(ctx, `
SELECT entity_id, label, name FROM graph_entities
WHERE fingerprint = $1
ORDER BY entity_id COLLATE "C"
`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}
	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Entity, error) {
		var e model.Entity
		err := row.Scan(&e.ID, &e.Label, &e.Name)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning entities: %w", err)
	}
	if len(entities) == 0 {
		return nil, nil
	}

	rows, err = c.pool.Query(ctx, `
SELECT src_id, dst_id, rel_type FROM graph_edges
WHERE fingerprint = $1
ORDER BY src_id COLLATE "C", dst_id COLLATE "C", ordinal
`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	connections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Relationship, error) {
		var r model.Relationship
		err := row.Scan(&r.SourceID, &r.TargetID, &r.RelType)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning edges: %w", err)
	}
	if connections == nil {
		connections = []model.Relationship{}
	}

	return &model.Graph{Entities: entities, Connections: connections}, nil
}

func (c *Client) SaveGraph(ctx context.Context, fingerprint string, g model.Graph) error {
	if err := store.CheckWritable(fingerprint, g); err != nil {
		return err
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM graph_edges WHERE fingerprint = $1`, fingerprint); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range g.Entities {
		batch.Queue(`
INSERT INTO graph_entities (fingerprint, entity_id, label, name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (fingerprint, entity_id) DO UPDATE SET
    label = EXCLUDED.label,
    name = EXCLUDED.name,
    updated_at = now()
`, fingerprint, e.ID, e.Label, e.Name)
	}
	batch.Queue(`DELETE FROM graph_entities WHERE fingerprint = $1 AND NOT (entity_id = ANY($2))`,
		fingerprint, store.EntityIDs(g))
	for _, edge := range store.EdgeRows(g) {
		batch.Queue(`INSERT INTO graph_edges (fingerprint, ordinal, src_id, dst_id, rel_type) VALUES ($1, $2, $3, $4, $5)`,
			fingerprint, edge.Ordinal, edge.SourceID, edge.TargetID, edge.RelType)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing graph %s: %w", fingerprint, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error) {
	rows, err := c.pool.Query(ctx, `
SELECT e.fingerprint,
       COUNT(*)::int,
       (SELECT COUNT(*) FROM graph_edges g WHERE g.fingerprint = e.fingerprint)::int
FROM graph_entities e
GROUP BY e.fingerprint
ORDER BY e.fingerprint COLLATE "C"
`)
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.FingerprintSummary, error) {
		var s store.FingerprintSummary
		err := row.Scan(&s.Fingerprint, &s.Entities, &s.Connections)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning fingerprint summaries: %w", err)
	}
	if summaries == nil {
		summaries = []store.FingerprintSummary{}
	}
	return summaries, nil
}

func (c *Client) DeleteGraph(ctx context.Context, fingerprint string) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM graph_entities WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("deleting graph: %w", err)
	}
	return tag.RowsAffected(), nil
}
