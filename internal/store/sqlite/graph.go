package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"auditgraph/internal/model"
	"auditgraph/internal/store"
)

func (c *Client) LoadGraph(ctx context.Context, fingerprint string) (*model.Graph, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT entity_id, label, name FROM graph_entities WHERE fingerprint = ? ORDER BY entity_id`,
		fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}
	defer rows.Close()

	var g model.Graph
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Label, &e.Name); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		g.Entities = append(g.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}
	if len(g.Entities) == 0 {
		return nil, nil
	}

	edgeRows, err := c.db.QueryContext(ctx,
		`SELECT src_id, dst_id, rel_type FROM graph_edges WHERE fingerprint = ? ORDER BY src_id, dst_id, ordinal`,
		fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	defer edgeRows.Close()

	g.Connections = []model.Relationship{}
	for edgeRows.Next() {
		var r model.Relationship
		if err := edgeRows.Scan(&r.SourceID, &r.TargetID, &r.RelType); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		g.Connections = append(g.Connections, r)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edge rows: %w", err)
	}

	return &g, nil
}

func (c *Client) SaveGraph(ctx context.Context, fingerprint string, g model.Graph) error {
	if err := store.CheckWritable(fingerprint, g); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_edges WHERE fingerprint = ?`, fingerprint); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}

	for _, e := range g.Entities {
		_, err := tx.ExecContext(ctx, `
INSERT INTO graph_entities (fingerprint, entity_id, label, name)
VALUES (?, ?, ?, ?)
ON CONFLICT (fingerprint, entity_id) DO UPDATE SET
    label = excluded.label,
    name = excluded.name,
    updated_at = datetime('now')
`, fingerprint, e.ID, e.Label, e.Name)
		if err != nil {
			return fmt.Errorf("upserting entity %s: %w", e.ID, err)
		}
	}

	if err := deleteStaleEntities(ctx, tx, fingerprint, store.EntityIDs(g)); err != nil {
		return err
	}

	for _, edge := range store.EdgeRows(g) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO graph_edges (fingerprint, ordinal, src_id, dst_id, rel_type) VALUES (?, ?, ?, ?, ?)`,
			fingerprint, edge.Ordinal, edge.SourceID, edge.TargetID, edge.RelType,
		)
		if err != nil {
			return fmt.Errorf("inserting edge %d: %w", edge.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func deleteStaleEntities(ctx context.Context, tx *sql.Tx, fingerprint string, keep []string) error {
	query := `DELETE FROM graph_entities WHERE fingerprint = ?`
	args := []any{fingerprint}
	if len(keep) > 0 {
		query += ` AND entity_id NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",") + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("removing stale entities: %w", err)
	}
	return nil
}

func (c *Client) ListFingerprints(ctx context.Context) ([]store.FingerprintSummary, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT e.fingerprint,
       COUNT(*),
       (SELECT COUNT(*) FROM graph_edges g WHERE g.fingerprint = e.fingerprint)
FROM graph_entities e
GROUP BY e.fingerprint
ORDER BY e.fingerprint
`)
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	defer rows.Close()

	summaries := []store.FingerprintSummary{}
	for rows.Next() {
		var s store.FingerprintSummary
		if err := rows.Scan(&s.Fingerprint, &s.Entities, &s.Connections); err != nil {
			return nil, fmt.Errorf("scanning fingerprint summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fingerprint rows: %w", err)
	}
	return summaries, nil
}

func (c *Client) DeleteGraph(ctx context.Context, fingerprint string) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_edges WHERE fingerprint = ?`, fingerprint); err != nil {
		return 0, fmt.Errorf("deleting edges: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM graph_entities WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("deleting entities: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return deleted, nil
}
