package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

func TestDeferredBackendRetriesUntilConnected(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	up := false
	d := NewDeferredBackend("flaky", func(context.Context) (Backend, error) {
		attempts++
		if !up {
			return nil, errors.New("dial tcp: connection refused")
		}
		return NewMemoryBackend(), nil
	}, time.Hour)

	_, err := d.Triples(ctx, 10)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	// Within the retry interval the connector is not called again.
	assert.ErrorIs(t, d.Ping(ctx), types.ErrStoreUnavailable)
	assert.Equal(t, 1, attempts)

	up = true
	require.NoError(t, d.Connect(ctx))
	assert.Equal(t, 2, attempts)
	require.NoError(t, d.Replace(ctx, &types.Snapshot{}))
	require.NoError(t, d.Ping(ctx))
	assert.Equal(t, 2, attempts)

	require.NoError(t, d.Close(ctx))
	assert.ErrorIs(t, d.Ping(ctx), types.ErrStoreUnavailable)
}
