package graph

import (
	"context"
	"sync/atomic"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

// MemoryBackend keeps the committed snapshot behind an atomic pointer.
// Replace builds nothing in place; it swaps the pointer.
type MemoryBackend struct {
	current atomic.Pointer[types.Snapshot]
	closed  atomic.Bool
}

func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{}
	b.current.Store(&types.Snapshot{})
	return b
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Replace(ctx context.Context, snap *types.Snapshot) error {
	if err := b.Ping(ctx); err != nil {
		return err
	}
	if snap == nil {
		snap = &types.Snapshot{}
	}
	b.current.Store(snap)
	return nil
}

func (b *MemoryBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	if err := b.Ping(ctx); err != nil {
		return nil, err
	}
	return b.current.Load().Triples(limit), nil
}

// Snapshot exposes the committed graph, mainly for tests.
func (b *MemoryBackend) Snapshot() *types.Snapshot { return b.current.Load() }

func (b *MemoryBackend) Ping(ctx context.Context) error {
	if b.closed.Load() {
		return types.Unavailable("memory backend", errClosed)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBackend) Close(context.Context) error {
	b.closed.Store(true)
	return nil
}
