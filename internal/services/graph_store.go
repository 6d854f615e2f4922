package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	graphdata "github.com/yungbote/skillgraph-backend/internal/data/graph"
	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/skillgraph"
)

const (
	DefaultQueryLimit = 200
	DefaultMaxLimit   = 5000
)

type GraphStore interface {
	Rebuild(ctx context.Context, tuples []types.Tuple) (types.RebuildResult, error)
	// QueryVisualization never returns a nil payload. On store failure the
	// payload is empty and err wraps types.ErrStoreUnavailable.
	QueryVisualization(ctx context.Context, limit int) (types.Visualization, error)
	Health(ctx context.Context) error
	BackendName() string
}

// VisualizationCache is satisfied by rediscache.Cache.
type VisualizationCache interface {
	Lookup(ctx context.Context, limit int) (types.Visualization, bool, int64, error)
	Store(ctx context.Context, gen int64, limit int, viz types.Visualization) error
	Invalidate(ctx context.Context) error
}

type BreakerConfig struct {
	Disabled         bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

type GraphStoreOptions struct {
	DefaultLimit     int
	MaxLimit         int
	OpTimeout        time.Duration
	AbortOnMalformed bool
	Breaker          BreakerConfig
	Cache            VisualizationCache
	Metrics          *observability.Metrics
}

type graphStore struct {
	log     *logger.Logger
	backend graphdata.Backend
	opts    GraphStoreOptions
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	tracer  trace.Tracer

	rebuildMu sync.Mutex
	// epoch counts committed rebuilds. Queries only share a backend read
	// with callers that saw the same epoch.
	epoch   atomic.Int64
	queries singleflight.Group
}

type flightResult struct {
	viz types.Visualization
	// stable is false when a rebuild committed while the read was in flight.
	stable bool
}

func NewGraphStore(log *logger.Logger, backend graphdata.Backend, opts GraphStoreOptions) GraphStore {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultQueryLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	s := &graphStore{
		log:     log.With("service", "GraphStore", "backend", backend.Name()),
		backend: backend,
		opts:    opts,
		metrics: opts.Metrics,
		tracer:  observability.Tracer(),
	}
	if !opts.Breaker.Disabled {
		s.breaker = s.newBreaker(opts.Breaker)
	}
	return s
}

func (s *graphStore) newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	name := "graph-store-" + s.backend.Name()
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.log.Warn("Store circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			s.metrics.SetBreakerState(s.backend.Name(), int(to))
		},
		// Only reachability failures count against the store.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, types.ErrStoreUnavailable)
		},
	})
}

// guard runs fn against the backend with the op timeout and the breaker.
func (s *graphStore) guard(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := ctxutil.Bounded(ctx, s.opts.OpTimeout)
	defer cancel()

	call := func() error {
		err := fn(ctx)
		if err != nil && !errors.Is(err, types.ErrStoreUnavailable) && errors.Is(err, context.DeadlineExceeded) {
			err = types.Unavailable(op, err)
		}
		return err
	}
	if s.breaker == nil {
		return call()
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, call()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.Unavailable(op, err)
	}
	return err
}

func (s *graphStore) BackendName() string { return s.backend.Name() }

func (s *graphStore) Rebuild(ctx context.Context, tuples []types.Tuple) (types.RebuildResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := s.tracer.Start(ctx, "GraphStore.Rebuild", trace.WithAttributes(
		attribute.String("store.backend", s.backend.Name()),
		attribute.Int("rebuild.tuples", len(tuples)),
	))
	defer span.End()
	log := s.log.With(ctxutil.LogFields(ctx)...)

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	start := time.Now()

	snap, report, err := skillgraph.Merge(tuples, skillgraph.MergeOptions{AbortOnMalformed: s.opts.AbortOnMalformed})
	if err != nil {
		log.Warn("Rebuild aborted during merge", "tuples", len(tuples), "applied", report.Applied, "error", err)
		s.metrics.ObserveRebuild("aborted", time.Since(start), 0, 0, len(report.Malformed))
		recordSpanError(span, err)
		return types.RebuildResult{}, err
	}
	for _, m := range report.Malformed {
		log.Debug("Skipped malformed tuple", "index", m.Index, "reason", m.Reason)
	}

	if err := s.guard(ctx, "rebuild", func(ctx context.Context) error {
		return s.backend.Replace(ctx, snap)
	}); err != nil {
		log.Error("Rebuild commit failed", "entities", len(snap.Entities), "error", err)
		s.metrics.ObserveRebuild("error", time.Since(start), 0, 0, len(report.Malformed))
		recordSpanError(span, err)
		return types.RebuildResult{}, err
	}
	s.epoch.Add(1)

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx); err != nil {
			s.metrics.IncCache("invalidate", "error")
			log.Warn("Visualization cache invalidation failed", "error", err)
		} else {
			s.metrics.IncCache("invalidate", "ok")
		}
	}

	result := report.Result(snap)
	s.metrics.ObserveRebuild("ok", time.Since(start), result.EntitiesProcessed, result.SkillsProcessed, result.MalformedSkipped)
	span.SetAttributes(
		attribute.Int("rebuild.entities", result.EntitiesProcessed),
		attribute.Int("rebuild.skills", result.SkillsProcessed),
		attribute.Int("rebuild.malformed", result.MalformedSkipped),
	)
	log.Info("Graph rebuilt",
		"entities", result.EntitiesProcessed,
		"skills", result.SkillsProcessed,
		"relationships", len(snap.Relationships),
		"malformed", result.MalformedSkipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *graphStore) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

func (s *graphStore) QueryVisualization(ctx context.Context, limit int) (types.Visualization, error) {
	ctx = ctxutil.Default(ctx)
	limit = s.clampLimit(limit)
	ctx, span := s.tracer.Start(ctx, "GraphStore.QueryVisualization", trace.WithAttributes(
		attribute.String("store.backend", s.backend.Name()),
		attribute.Int("query.limit", limit),
	))
	defer span.End()
	log := s.log.With(ctxutil.LogFields(ctx)...)
	start := time.Now()

	epoch := s.epoch.Load()
	gen := int64(-1)
	if s.opts.Cache != nil {
		viz, hit, g, err := s.opts.Cache.Lookup(ctx, limit)
		switch {
		case err != nil:
			s.metrics.IncCache("lookup", "error")
			log.Debug("Visualization cache lookup failed", "error", err)
		case hit:
			s.metrics.IncCache("lookup", "hit")
			s.metrics.ObserveQuery("cache_hit", time.Since(start))
			span.SetAttributes(attribute.Bool("query.cache_hit", true))
			return viz, nil
		default:
			s.metrics.IncCache("lookup", "miss")
			gen = g
		}
	}

	// Collapsed callers share one backend read, so it must outlive any single
	// caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%d:%d:%d", limit, epoch, gen)
	v, err, shared := s.queries.Do(key, func() (interface{}, error) {
		startEpoch := s.epoch.Load()
		var triples []types.Triple
		err := s.guard(flightCtx, "query", func(ctx context.Context) error {
			var qerr error
			triples, qerr = s.backend.Triples(ctx, limit)
			return qerr
		})
		if err != nil {
			return nil, err
		}
		return flightResult{
			viz:    skillgraph.Materialize(triples),
			stable: startEpoch == epoch && s.epoch.Load() == epoch,
		}, nil
	})
	if err != nil {
		err = types.Unavailable("query", err)
		log.Warn("Visualization query degraded", "limit", limit, "error", err)
		s.metrics.ObserveQuery("degraded", time.Since(start))
		recordSpanError(span, err)
		return types.EmptyVisualization(), err
	}
	res := v.(flightResult)
	viz := res.viz
	span.SetAttributes(
		attribute.Bool("query.shared", shared),
		attribute.Int64("query.epoch", epoch),
		attribute.Int("query.nodes", len(viz.Nodes)),
		attribute.Int("query.links", len(viz.Links)),
	)

	// A read that overlapped a commit is served but never cached.
	if s.opts.Cache != nil && gen >= 0 && res.stable {
		if err := s.opts.Cache.Store(ctx, gen, limit, viz); err != nil {
			s.metrics.IncCache("store", "error")
			log.Debug("Visualization cache store failed", "error", err)
		} else {
			s.metrics.IncCache("store", "ok")
		}
	}
	s.metrics.ObserveQuery("ok", time.Since(start))
	return viz, nil
}

func (s *graphStore) Health(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	err := s.guard(ctx, "health", s.backend.Ping)
	s.metrics.SetBackendUp(s.backend.Name(), err == nil)
	if err != nil {
		s.log.With(ctxutil.LogFields(ctx)...).Warn("Store health check failed", "error", err)
		return types.Unavailable("health", err)
	}
	return nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
