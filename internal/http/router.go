package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/skillgraph-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skillgraph-backend/internal/http/middleware"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

type RouterConfig struct {
	Logger      *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string
	// ServeMetrics mounts /metrics on the API router.
	ServeMetrics bool

	HealthHandler *httpH.HealthHandler
	GraphHandler  *httpH.GraphHandler
	SourceHandler *httpH.SourceHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Logger))
	r.Use(httpMW.RequestMetrics(cfg.Metrics, "/metrics", "/healthcheck", "/readyz"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.ServeMetrics && cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Graph
		if cfg.GraphHandler != nil {
			api.POST("/graph/rebuild", cfg.GraphHandler.Rebuild)
			api.POST("/graph/build", cfg.GraphHandler.Build)
			api.GET("/graph/data", cfg.GraphHandler.Data)
		}

		// Raw sources
		if cfg.SourceHandler != nil {
			api.POST("/github/fetch", cfg.SourceHandler.FetchGitHub)
			api.POST("/notion/fetch", cfg.SourceHandler.FetchNotion)
		}
	}

	return r
}
