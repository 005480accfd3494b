package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/scheduler"
	"github.com/timmy/recordhub/internal/service"
)

// Firer runs one pipeline invocation. *scheduler.Trigger implements it.
type Firer interface {
	Fire(ctx context.Context) (*service.Summary, error)
}

// ETLHandler triggers pipeline invocations on demand.
type ETLHandler struct {
	trigger Firer
}

// NewETLHandler creates a new ETL handler.
func NewETLHandler(trigger Firer) *ETLHandler {
	return &ETLHandler{trigger: trigger}
}

// Run handles POST /api/v1/etl/run.
// The invocation runs synchronously; 409 when another one is in flight.
func (h *ETLHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := h.trigger.Fire(ctx)
	switch {
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		logger.CtxError(ctx, "Manual ETL run failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, summary)
	}
}
