package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/recordhub/internal/api/handler"
	"github.com/timmy/recordhub/internal/api/middleware"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/repository"
)

// Deps are the collaborators the routes read from.
type Deps struct {
	Store    *repository.Store
	Trigger  handler.Firer       // nil disables POST /api/v1/etl/run
	Gatherer prometheus.Gatherer // nil disables GET /metrics
	Logger   *logger.Logger      // nil uses the default logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string, cors middleware.CORSConfig) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler(deps.Store)
	dataHandler := handler.NewDataHandler(deps.Store)
	statsHandler := handler.NewStatsHandler(deps.Store)

	// Health check
	r.GET("/health", healthHandler.Health)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Canonical records
		v1.GET("/data", dataHandler.ListData)
		v1.GET("/entities/:entity_id", dataHandler.GetEntity)
		v1.GET("/raw/:source/:external_id", dataHandler.GetRaw)

		// Runs
		v1.GET("/stats", statsHandler.GetStats)

		if deps.Trigger != nil {
			v1.POST("/etl/run", handler.NewETLHandler(deps.Trigger).Run)
		}
	}

	return r
}
