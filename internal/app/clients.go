package app

import (
	"context"
	"fmt"
	"strings"

	graphdata "github.com/yungbote/skillgraph-backend/internal/data/graph"
	"github.com/yungbote/skillgraph-backend/internal/platform/badgerdb"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/skillgraph-backend/internal/platform/rediscache"
	"github.com/yungbote/skillgraph-backend/internal/platform/sqldb"
	"github.com/yungbote/skillgraph-backend/internal/sources/github"
	"github.com/yungbote/skillgraph-backend/internal/sources/notion"
)

// backendConnector returns the connector for the configured store. Remote
// stores are wrapped in a DeferredBackend by the caller.
func backendConnector(log *logger.Logger, cfg Config) (graphdata.Connector, error) {
	st := cfg.Store
	switch st.Backend {
	case BackendMemory:
		return func(context.Context) (graphdata.Backend, error) {
			return graphdata.NewMemoryBackend(), nil
		}, nil
	case BackendNeo4j:
		return func(ctx context.Context) (graphdata.Backend, error) {
			client, err := neo4jdb.New(ctx, log, neo4jdb.Config{
				URI:            cfg.Neo4j.URI,
				User:           cfg.Neo4j.User,
				Password:       cfg.Neo4j.Password,
				Database:       cfg.Neo4j.Database,
				ConnectTimeout: st.ConnectTimeout,
				MaxPoolSize:    cfg.Neo4j.MaxPoolSize,
			})
			if err != nil {
				return nil, err
			}
			return graphdata.NewNeo4jBackend(client, log), nil
		}, nil
	case BackendPostgres, BackendSQLite:
		driver, dsn := sqldb.DriverPostgres, cfg.SQL.PostgresDSN
		if st.Backend == BackendSQLite {
			driver, dsn = sqldb.DriverSQLite, cfg.SQL.SQLitePath
		}
		return func(ctx context.Context) (graphdata.Backend, error) {
			db, err := sqldb.Open(ctx, log, sqldb.Config{
				Driver:         driver,
				DSN:            dsn,
				ConnectTimeout: st.ConnectTimeout,
			})
			if err != nil {
				return nil, err
			}
			b, err := graphdata.NewSQLBackend(ctx, db, log)
			if err != nil {
				_ = sqldb.Close(db)
				return nil, err
			}
			return b, nil
		}, nil
	case BackendBadger:
		return func(context.Context) (graphdata.Backend, error) {
			db, err := badgerdb.Open(log, badgerdb.Config{
				Path:       cfg.Badger.Path,
				InMemory:   cfg.Badger.InMemory,
				SyncWrites: cfg.Badger.SyncWrites,
			})
			if err != nil {
				return nil, err
			}
			return graphdata.NewBadgerBackend(db, log), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", st.Backend)
	}
}

// openBackend connects to the store once. A failed first attempt is logged and
// the backend keeps retrying in the background of later calls.
func openBackend(ctx context.Context, log *logger.Logger, cfg Config) (graphdata.Backend, error) {
	connect, err := backendConnector(log, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend == BackendMemory {
		return connect(ctx)
	}
	b := graphdata.NewDeferredBackend(cfg.Store.Backend, connect, cfg.Store.RetryEvery)
	if err := b.Connect(ctx); err != nil {
		log.Error("Graph store unreachable at startup; serving degraded until it recovers",
			"backend", cfg.Store.Backend, "error", err)
	}
	return b, nil
}

// openCache returns nil when no redis address is configured or redis is down.
func openCache(ctx context.Context, log *logger.Logger, cfg Config) *rediscache.Cache {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil
	}
	cache, err := rediscache.New(ctx, log, rediscache.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		Prefix:      cfg.Redis.Prefix,
		TTL:         cfg.Redis.TTL,
		DialTimeout: cfg.Store.ConnectTimeout,
	})
	if err != nil {
		log.Warn("Visualization cache disabled", "addr", cfg.Redis.Addr, "error", err)
		return nil
	}
	return cache
}

func openGitHub(log *logger.Logger, cfg Config) (*github.Client, error) {
	return github.New(log, github.Config{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		MaxPages:          cfg.GitHub.MaxPages,
	})
}

func openNotion(log *logger.Logger, cfg Config) (*notion.Client, error) {
	return notion.New(log, notion.Config{
		APIKey:            cfg.Notion.APIKey,
		BaseURL:           cfg.Notion.BaseURL,
		RequestsPerSecond: cfg.Notion.RequestsPerSecond,
	})
}
