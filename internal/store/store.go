package store

import (
	"context"

	"auditgraph/internal/model"
)

// Store persists relationship graphs keyed by scenario fingerprint.
// LoadGraph returns nil, nil when nothing is stored for the fingerprint.
// SaveGraph replaces the stored graph atomically, upserting entities by
// (fingerprint, entity id), so repeated saves of the same graph are no-ops.
type Store interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	LoadGraph(ctx context.Context, fingerprint string) (*model.Graph, error)
	SaveGraph(ctx context.Context, fingerprint string, g model.Graph) error
	ListFingerprints(ctx context.Context) ([]FingerprintSummary, error)
	DeleteGraph(ctx context.Context, fingerprint string) (int64, error)
}
