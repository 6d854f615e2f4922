package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	graphdata "github.com/yungbote/skillgraph-backend/internal/data/graph"
	httpx "github.com/yungbote/skillgraph-backend/internal/http"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/platform/rediscache"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Backend  graphdata.Backend
	Cache    *rediscache.Cache
	Metrics  *observability.Metrics
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func NewLogger(cfg Config) (*logger.Logger, error) {
	return logger.NewWithOptions(logger.Options{
		Mode:       cfg.Log.Mode,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// New wires the process. An unreachable store does not fail startup.
func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Starting skill graph", "env", cfg.App.Env, "version", cfg.App.Version, "backend", cfg.Store.Backend)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(cfg.App.Name, cfg.App.Env, cfg.App.Version))
	metrics := observability.Init(cfg.Metrics.Enabled)

	backend, err := openBackend(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init store: %w", err)
	}
	cache := openCache(ctx, log, cfg)

	gh, err := openGitHub(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init github source: %w", err)
	}
	nc, err := openNotion(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init notion source: %w", err)
	}

	svcs := wireServices(log, cfg, backend, cache, metrics, gh, nc)
	router := wireRouter(log, cfg, svcs, metrics, gh, nc)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Backend:      backend,
		Cache:        cache,
		Metrics:      metrics,
		Services:     svcs,
		Router:       router,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background listeners that live until Close.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.Cfg.Metrics.Addr != "" {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
	return (&httpx.Server{Engine: a.Router}).Run(ctx, a.Cfg.HTTP.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx := context.Background()
	if a.Backend != nil {
		if err := a.Backend.Close(ctx); err != nil {
			a.Log.Warn("Store close failed", "error", err)
		}
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
