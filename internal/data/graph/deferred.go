package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

// Connector opens a backend. It is retried until it succeeds, so startup never
// depends on the store being reachable.
type Connector func(ctx context.Context) (Backend, error)

// DeferredBackend connects lazily and keeps retrying, at most once per
// RetryEvery, while the store is down. Calls made while disconnected fail
// with types.ErrStoreUnavailable.
type DeferredBackend struct {
	name       string
	connect    Connector
	retryEvery time.Duration

	mu      sync.Mutex
	backend Backend
	lastTry time.Time
	lastErr error
	closed  bool
}

func NewDeferredBackend(name string, connect Connector, retryEvery time.Duration) *DeferredBackend {
	if retryEvery <= 0 {
		retryEvery = 5 * time.Second
	}
	return &DeferredBackend{name: name, connect: connect, retryEvery: retryEvery}
}

func (d *DeferredBackend) Name() string { return d.name }

func (d *DeferredBackend) get(ctx context.Context) (Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, types.Unavailable(d.name, errClosed)
	}
	if d.backend != nil {
		return d.backend, nil
	}
	if d.lastErr != nil && time.Since(d.lastTry) < d.retryEvery {
		return nil, types.Unavailable(d.name, d.lastErr)
	}
	d.lastTry = time.Now()
	b, err := d.connect(ctx)
	if err != nil {
		d.lastErr = err
		return nil, types.Unavailable(d.name, err)
	}
	d.backend, d.lastErr = b, nil
	return b, nil
}

// Connect attempts a connection now, ignoring the retry interval.
func (d *DeferredBackend) Connect(ctx context.Context) error {
	d.mu.Lock()
	d.lastErr = nil
	d.mu.Unlock()
	_, err := d.get(ctx)
	return err
}

func (d *DeferredBackend) Replace(ctx context.Context, snap *types.Snapshot) error {
	b, err := d.get(ctx)
	if err != nil {
		return err
	}
	return b.Replace(ctx, snap)
}

func (d *DeferredBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	b, err := d.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.Triples(ctx, limit)
}

func (d *DeferredBackend) Ping(ctx context.Context) error {
	b, err := d.get(ctx)
	if err != nil {
		return err
	}
	return b.Ping(ctx)
}

func (d *DeferredBackend) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.backend == nil {
		return nil
	}
	err := d.backend.Close(ctx)
	d.backend = nil
	if errors.Is(err, errClosed) {
		return nil
	}
	return err
}
