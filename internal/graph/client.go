package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"auditgraph/internal/store"
)

var _ store.Store = (*Client)(nil)

// Client stores relationship maps as IndependenceEntity nodes keyed by
// (trace_id, id), where trace_id carries the scenario fingerprint.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewClient(ctx context.Context, uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	return &Client{driver: driver, database: database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) EnsureSchema(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT independence_entity_trace_id IF NOT EXISTS
FOR (n:IndependenceEntity) REQUIRE (n.trace_id, n.id) IS UNIQUE`,
		`CREATE INDEX independence_entity_trace IF NOT EXISTS FOR (n:IndependenceEntity) ON (n.trace_id)`,
	}

	for _, stmt := range statements {
		if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		}); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}

	return nil
}
