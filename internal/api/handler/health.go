package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/repository"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store *repository.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *repository.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string     `json:"status"`
	DBConnected bool       `json:"db_connected"`
	ETLLastRun  *time.Time `json:"etl_last_run"`
	ETLStatus   string     `json:"etl_status"`
}

// Health reports store connectivity and the state of the latest run.
// Responds 503 when the store cannot be reached.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HealthResponse{Status: "healthy", ETLStatus: "unknown"}

	if err := h.store.Ping(ctx); err != nil {
		logger.CtxWarn(ctx, "Health check: store unreachable: %v", err)
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.DBConnected = true

	last, err := h.store.Runs.Latest(ctx)
	if err != nil {
		logger.CtxWarn(ctx, "Health check: latest run lookup failed: %v", err)
	}
	if last != nil {
		resp.ETLLastRun = last.EndTime
		resp.ETLStatus = string(last.Status)
	}
	c.JSON(http.StatusOK, resp)
}
