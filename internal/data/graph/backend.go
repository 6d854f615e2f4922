// Package graph persists skill graph snapshots. Every backend commits a snapshot
// as a single unit, so readers see either the previous graph or the new one.
package graph

import (
	"context"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

type Backend interface {
	Name() string
	// Replace clears the stored graph and writes snap in one unit of work.
	Replace(ctx context.Context, snap *types.Snapshot) error
	// Triples returns up to limit (entity)-[rel]->(skill) matches in discovery order.
	Triples(ctx context.Context, limit int) ([]types.Triple, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
