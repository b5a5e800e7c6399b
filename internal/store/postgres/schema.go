package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// PostgreSQL runs a multi-statement Exec in one implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS graph_entities (
    fingerprint TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT pk_graph_entities PRIMARY KEY (fingerprint, entity_id)
);

CREATE TABLE IF NOT EXISTS graph_edges (
    fingerprint TEXT NOT NULL,
    ordinal     INTEGER NOT NULL,
    src_id      TEXT NOT NULL,
    dst_id      TEXT NOT NULL,
    rel_type    TEXT NOT NULL DEFAULT '',
    CONSTRAINT pk_graph_edges PRIMARY KEY (fingerprint, ordinal),
    CONSTRAINT fk_graph_edges_src FOREIGN KEY (fingerprint, src_id)
        REFERENCES graph_entities (fingerprint, entity_id) ON DELETE CASCADE,
    CONSTRAINT fk_graph_edges_dst FOREIGN KEY (fingerprint, dst_id)
        REFERENCES graph_entities (fingerprint, entity_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_pair ON graph_edges (fingerprint, src_id, dst_id);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
