package app

import (
	graphdata "github.com/yungbote/skillgraph-backend/internal/data/graph"
	"github.com/yungbote/skillgraph-backend/internal/extract"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/platform/rediscache"
	"github.com/yungbote/skillgraph-backend/internal/services"
	"github.com/yungbote/skillgraph-backend/internal/sources/github"
	"github.com/yungbote/skillgraph-backend/internal/sources/notion"
)

type Services struct {
	Graph services.GraphStore
	Build services.BuildService
}

func wireServices(log *logger.Logger, cfg Config, backend graphdata.Backend, cache *rediscache.Cache, metrics *observability.Metrics, gh *github.Client, nc *notion.Client) Services {
	opts := services.GraphStoreOptions{
		DefaultLimit:     cfg.Store.DefaultLimit,
		MaxLimit:         cfg.Store.MaxLimit,
		OpTimeout:        cfg.Store.OpTimeout,
		AbortOnMalformed: cfg.Store.AbortOnMalformed,
		Breaker: services.BreakerConfig{
			Disabled:         cfg.Store.Breaker.Disabled,
			Timeout:          cfg.Store.Breaker.Timeout,
			Interval:         cfg.Store.Breaker.Interval,
			FailureThreshold: cfg.Store.Breaker.FailureThreshold,
			MinRequests:      cfg.Store.Breaker.MinRequests,
		},
		Metrics: metrics,
	}
	// A typed nil would make the interface non-nil.
	if cache != nil {
		opts.Cache = cache
	}
	store := services.NewGraphStore(log, backend, opts)

	var pages services.PageSource
	if nc != nil && nc.Configured() {
		pages = nc
	}
	var repos services.RepositorySource
	if gh != nil {
		repos = gh
	}
	build := services.NewBuildService(log, store, repos, pages, extract.New(), metrics, cfg.Store.OpTimeout)
	return Services{Graph: store, Build: build}
}
