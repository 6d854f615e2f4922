package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	graphdata "github.com/yungbote/skillgraph-backend/internal/data/graph"
	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

var scenarioTuples = []types.Tuple{
	{ID: "proj1", Kind: types.KindProject, Source: types.SourceGitHub, RelationType: types.RelUses, Skills: []string{"Python", "docker"}},
	{ID: "page1", Kind: types.KindPage, Source: types.SourceNotion, RelationType: types.RelRelatesTo, Skills: []string{"python"}},
}

// countingBackend wraps a memory backend, counts calls and can inject failures.
type countingBackend struct {
	*graphdata.MemoryBackend
	replaces  atomic.Int32
	queries   atomic.Int32
	lastLimit atomic.Int32
	fail      atomic.Bool
	delay     time.Duration
}

func newCountingBackend() *countingBackend {
	return &countingBackend{MemoryBackend: graphdata.NewMemoryBackend()}
}

func (b *countingBackend) Replace(ctx context.Context, snap *types.Snapshot) error {
	b.replaces.Add(1)
	if b.fail.Load() {
		return types.Unavailable("replace", errors.New("connection refused"))
	}
	return b.MemoryBackend.Replace(ctx, snap)
}

func (b *countingBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	b.queries.Add(1)
	b.lastLimit.Store(int32(limit))
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.fail.Load() {
		return nil, types.Unavailable("triples", errors.New("connection refused"))
	}
	return b.MemoryBackend.Triples(ctx, limit)
}

// gatedBackend parks the first Triples call after it has read the snapshot,
// until gate is closed.
type gatedBackend struct {
	*graphdata.MemoryBackend
	armed  atomic.Bool
	loaded chan struct{}
	gate   chan struct{}
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		MemoryBackend: graphdata.NewMemoryBackend(),
		loaded:        make(chan struct{}),
		gate:          make(chan struct{}),
	}
}

func (b *gatedBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	triples, err := b.MemoryBackend.Triples(ctx, limit)
	if b.armed.CompareAndSwap(true, false) {
		close(b.loaded)
		<-b.gate
	}
	return triples, err
}

type mapCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string]types.Visualization
	invalidated int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]types.Visualization{}} }

func (c *mapCache) key(gen int64, limit int) string { return fmt.Sprintf("%d:%d", gen, limit) }

func (c *mapCache) Lookup(_ context.Context, limit int) (types.Visualization, bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[c.key(c.gen, limit)]
	return v, ok, c.gen, nil
}

func (c *mapCache) Store(_ context.Context, gen int64, limit int, viz types.Visualization) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(gen, limit)] = viz
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
	return nil
}

func newTestStore(t *testing.T, backend graphdata.Backend, opts GraphStoreOptions) GraphStore {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewGraphStore(log, backend, opts)
}

func TestGraphStoreEndToEnd(t *testing.T) {
	store := newTestStore(t, graphdata.NewMemoryBackend(), GraphStoreOptions{
		Metrics: observability.New(prometheus.NewRegistry()),
	})
	ctx := context.Background()

	res, err := store.Rebuild(ctx, scenarioTuples)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	want := types.RebuildResult{EntitiesProcessed: 2, SkillsProcessed: 2}
	if res != want {
		t.Fatalf("rebuild result: want=%+v got=%+v", want, res)
	}

	viz, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("QueryVisualization: %v", err)
	}
	if len(viz.Nodes) != 4 || len(viz.Links) != 3 {
		t.Fatalf("visualization size: want=4 nodes/3 links got=%d/%d", len(viz.Nodes), len(viz.Links))
	}
	if err := store.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestGraphStoreRebuildIsIdempotent(t *testing.T) {
	store := newTestStore(t, graphdata.NewMemoryBackend(), GraphStoreOptions{})
	ctx := context.Background()

	if _, err := store.Rebuild(ctx, scenarioTuples); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	first, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	res, err := store.Rebuild(ctx, scenarioTuples)
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if res.SkillsProcessed != 2 {
		t.Fatalf("skills after second rebuild: want=2 got=%d", res.SkillsProcessed)
	}
	second, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(types.Value{})); diff != "" {
		t.Fatalf("rebuild not idempotent (-first +second):\n%s", diff)
	}
}

func TestGraphStoreAbortPreservesPriorGraph(t *testing.T) {
	backend := newCountingBackend()
	store := newTestStore(t, backend, GraphStoreOptions{})
	ctx := context.Background()

	if _, err := store.Rebuild(ctx, scenarioTuples); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	dup := []types.Tuple{
		{ID: "x", Kind: types.KindProject, RelationType: types.RelUses, Skills: []string{"go"}},
		{ID: "x", Kind: types.KindProject, RelationType: types.RelUses, Skills: []string{"rust"}},
	}
	_, err := store.Rebuild(ctx, dup)
	if !errors.Is(err, types.ErrDuplicateEntity) {
		t.Fatalf("duplicate rebuild: want ErrDuplicateEntity got=%v", err)
	}
	var re *types.RebuildError
	if !errors.As(err, &re) || re.Applied != 1 {
		t.Fatalf("rebuild error: want Applied=1 got=%v", err)
	}
	if got := backend.replaces.Load(); got != 1 {
		t.Fatalf("backend replaces: want=1 got=%d", got)
	}

	viz, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("QueryVisualization: %v", err)
	}
	if len(viz.Nodes) != 4 {
		t.Fatalf("prior graph nodes: want=4 got=%d", len(viz.Nodes))
	}
}

func TestGraphStoreAbortOnMalformed(t *testing.T) {
	store := newTestStore(t, graphdata.NewMemoryBackend(), GraphStoreOptions{AbortOnMalformed: true})
	_, err := store.Rebuild(context.Background(), []types.Tuple{{ID: "", Kind: types.KindProject, RelationType: types.RelUses}})
	if !errors.Is(err, types.ErrMalformedTuple) {
		t.Fatalf("want ErrMalformedTuple got=%v", err)
	}
}

func TestGraphStoreEmptyRebuild(t *testing.T) {
	store := newTestStore(t, graphdata.NewMemoryBackend(), GraphStoreOptions{})
	ctx := context.Background()
	if _, err := store.Rebuild(ctx, scenarioTuples); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	res, err := store.Rebuild(ctx, nil)
	if err != nil {
		t.Fatalf("empty Rebuild: %v", err)
	}
	if res != (types.RebuildResult{}) {
		t.Fatalf("empty rebuild result: got=%+v", res)
	}
	viz, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("QueryVisualization: %v", err)
	}
	if len(viz.Nodes) != 0 || viz.Nodes == nil || viz.Links == nil {
		t.Fatalf("empty graph should render empty non-nil slices: %+v", viz)
	}
}

func TestGraphStoreDegradedWhenBackendClosed(t *testing.T) {
	backend := graphdata.NewMemoryBackend()
	store := newTestStore(t, backend, GraphStoreOptions{Breaker: BreakerConfig{Disabled: true}})
	ctx := context.Background()
	if err := backend.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	viz, err := store.QueryVisualization(ctx, 10)
	if !errors.Is(err, types.ErrStoreUnavailable) {
		t.Fatalf("query: want ErrStoreUnavailable got=%v", err)
	}
	if viz.Nodes == nil || viz.Links == nil || len(viz.Nodes) != 0 {
		t.Fatalf("degraded payload should be empty and renderable: %+v", viz)
	}
	if _, err := store.Rebuild(ctx, scenarioTuples); !errors.Is(err, types.ErrStoreUnavailable) {
		t.Fatalf("rebuild: want ErrStoreUnavailable got=%v", err)
	}
	if err := store.Health(ctx); !errors.Is(err, types.ErrStoreUnavailable) {
		t.Fatalf("health: want ErrStoreUnavailable got=%v", err)
	}
}

func TestGraphStoreBreakerFailsFast(t *testing.T) {
	backend := newCountingBackend()
	backend.fail.Store(true)
	store := newTestStore(t, backend, GraphStoreOptions{Breaker: BreakerConfig{
		MinRequests:      2,
		FailureThreshold: 0.5,
		Timeout:          time.Minute,
	}})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := store.QueryVisualization(ctx, 5); !errors.Is(err, types.ErrStoreUnavailable) {
			t.Fatalf("query %d: want ErrStoreUnavailable got=%v", i, err)
		}
	}
	if got := backend.queries.Load(); got != 2 {
		t.Fatalf("backend calls before trip: want=2 got=%d", got)
	}
	if _, err := store.QueryVisualization(ctx, 5); !errors.Is(err, types.ErrStoreUnavailable) {
		t.Fatalf("open breaker: want ErrStoreUnavailable got=%v", err)
	}
	if got := backend.queries.Load(); got != 2 {
		t.Fatalf("open breaker should not reach backend: calls=%d", got)
	}
}

func TestGraphStoreLimitClamp(t *testing.T) {
	backend := newCountingBackend()
	store := newTestStore(t, backend, GraphStoreOptions{MaxLimit: 1000})
	ctx := context.Background()

	cases := []struct {
		in, want int
	}{
		{0, DefaultQueryLimit},
		{-3, DefaultQueryLimit},
		{7, 7},
		{100000, 1000},
	}
	for _, tc := range cases {
		if _, err := store.QueryVisualization(ctx, tc.in); err != nil {
			t.Fatalf("QueryVisualization(%d): %v", tc.in, err)
		}
		if got := int(backend.lastLimit.Load()); got != tc.want {
			t.Fatalf("limit %d: want=%d got=%d", tc.in, tc.want, got)
		}
	}
}

func TestGraphStoreCacheInvalidatedOnRebuild(t *testing.T) {
	backend := newCountingBackend()
	cache := newMapCache()
	store := newTestStore(t, backend, GraphStoreOptions{Cache: cache})
	ctx := context.Background()

	if _, err := store.Rebuild(ctx, scenarioTuples); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.QueryVisualization(ctx, 0); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}
	if got := backend.queries.Load(); got != 1 {
		t.Fatalf("backend queries with warm cache: want=1 got=%d", got)
	}

	if _, err := store.Rebuild(ctx, scenarioTuples[:1]); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	viz, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("query after rebuild: %v", err)
	}
	if len(viz.Nodes) != 3 {
		t.Fatalf("stale cache served after rebuild: nodes=%d", len(viz.Nodes))
	}
	if cache.invalidated != 2 {
		t.Fatalf("invalidations: want=2 got=%d", cache.invalidated)
	}
}

func TestGraphStoreCollapsesConcurrentQueries(t *testing.T) {
	backend := newCountingBackend()
	backend.delay = 50 * time.Millisecond
	store := newTestStore(t, backend, GraphStoreOptions{})
	ctx := context.Background()
	if _, err := store.Rebuild(ctx, scenarioTuples); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.QueryVisualization(ctx, 50); err != nil {
				t.Errorf("QueryVisualization: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := backend.queries.Load(); got >= 8 {
		t.Fatalf("concurrent identical queries were not collapsed: calls=%d", got)
	}
}

func TestGraphStoreConcurrentRebuildAndQuery(t *testing.T) {
	store := newTestStore(t, graphdata.NewMemoryBackend(), GraphStoreOptions{})
	ctx := context.Background()
	small := []types.Tuple{
		{ID: "solo", Kind: types.KindProject, RelationType: types.RelUses, Skills: []string{"go", "sql"}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		tuples := scenarioTuples
		if i%2 == 0 {
			tuples = small
		}
		go func() {
			defer wg.Done()
			if _, err := store.Rebuild(ctx, tuples); err != nil {
				t.Errorf("Rebuild: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			viz, err := store.QueryVisualization(ctx, 0)
			if err != nil {
				t.Errorf("QueryVisualization: %v", err)
				return
			}
			n, l := len(viz.Nodes), len(viz.Links)
			if !(n == 0 && l == 0) && !(n == 3 && l == 2) && !(n == 4 && l == 3) {
				t.Errorf("observed a partial graph: nodes=%d links=%d", n, l)
			}
		}()
	}
	wg.Wait()
}

func TestGraphStoreQueryAfterRebuildSeesNewGraph(t *testing.T) {
	backend := newGatedBackend()
	cache := newMapCache()
	store := newTestStore(t, backend, GraphStoreOptions{Cache: cache})
	ctx := context.Background()

	if _, err := store.Rebuild(ctx, scenarioTuples); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	backend.armed.Store(true)
	before := make(chan types.Visualization, 1)
	go func() {
		viz, err := store.QueryVisualization(ctx, 0)
		if err != nil {
			t.Errorf("query before rebuild: %v", err)
		}
		before <- viz
	}()
	<-backend.loaded

	if _, err := store.Rebuild(ctx, scenarioTuples[:1]); err != nil {
		close(backend.gate)
		t.Fatalf("second Rebuild: %v", err)
	}

	after := make(chan types.Visualization, 1)
	go func() {
		viz, err := store.QueryVisualization(ctx, 0)
		if err != nil {
			t.Errorf("query after rebuild: %v", err)
		}
		after <- viz
	}()
	var got types.Visualization
	select {
	case got = <-after:
	case <-time.After(2 * time.Second):
		close(backend.gate)
		<-before
		<-after
		t.Fatalf("query issued after rebuild waited on a read started before it")
	}
	close(backend.gate)

	if n := len((<-before).Nodes); n != 4 {
		t.Fatalf("query started before rebuild: want=4 nodes got=%d", n)
	}
	if len(got.Nodes) != 3 {
		t.Fatalf("query started after rebuild: want=3 nodes got=%d", len(got.Nodes))
	}

	later, err := store.QueryVisualization(ctx, 0)
	if err != nil {
		t.Fatalf("later query: %v", err)
	}
	if len(later.Nodes) != 3 {
		t.Fatalf("cache served the pre-rebuild graph: nodes=%d", len(later.Nodes))
	}
}
