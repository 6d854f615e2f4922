package app

import (
	"github.com/gin-gonic/gin"

	httpx "github.com/yungbote/skillgraph-backend/internal/http"
	httpH "github.com/yungbote/skillgraph-backend/internal/http/handlers"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/services"
	"github.com/yungbote/skillgraph-backend/internal/sources/github"
	"github.com/yungbote/skillgraph-backend/internal/sources/notion"
)

func wireRouter(log *logger.Logger, cfg Config, svcs Services, metrics *observability.Metrics, gh *github.Client, nc *notion.Client) *gin.Engine {
	if cfg.Log.Mode == "production" || cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	var repos httpH.RepositoryFetcher
	if gh != nil {
		repos = gh
	}
	var pages services.PageSource
	if nc != nil {
		pages = nc
	}
	return httpx.NewRouter(httpx.RouterConfig{
		Logger:        log.With("component", "http"),
		Metrics:       metrics,
		ServiceName:   cfg.App.Name,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		ServeMetrics:  cfg.Metrics.Addr == "",
		HealthHandler: httpH.NewHealthHandler(svcs.Graph),
		GraphHandler:  httpH.NewGraphHandler(svcs.Graph, svcs.Build),
		SourceHandler: httpH.NewSourceHandler(repos, pages),
	})
}
