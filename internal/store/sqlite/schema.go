package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS graph_entities (
		fingerprint TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		label       TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL DEFAULT '',
		updated_at  TEXT DEFAULT (datetime('now')),
		PRIMARY KEY (fingerprint, entity_id)
	);

	CREATE TABLE IF NOT EXISTS graph_edges (
		fingerprint TEXT NOT NULL,
		ordinal     INTEGER NOT NULL,
		src_id      TEXT NOT NULL,
		dst_id      TEXT NOT NULL,
		rel_type    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (fingerprint, ordinal),
		FOREIGN KEY (fingerprint, src_id) REFERENCES graph_entities (fingerprint, entity_id) ON DELETE CASCADE,
		FOREIGN KEY (fingerprint, dst_id) REFERENCES graph_entities (fingerprint, entity_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_graph_edges_pair ON graph_edges (fingerprint, src_id, dst_id);
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		statements = append(statements, current.String())
	}
	return statements
}
