package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/repository"
)

// DataHandler serves canonical records.
type DataHandler struct {
	store *repository.Store
}

// NewDataHandler creates a new data handler.
// Parameters:
//   - store: store to read canonical records from.
// Returns:
//   - *DataHandler: initialized handler.
func NewDataHandler(store *repository.Store) *DataHandler {
	return &DataHandler{store: store}
}

// PageResponse is one page of canonical records.
type PageResponse struct {
	RequestID    string  `json:"request_id"`
	TotalCount   int64   `json:"total_count"`
	Limit        int     `json:"limit"`
	Offset       int     `json:"offset"`
	APILatencyMs float64 `json:"api_latency_ms"`
	Data         []gin.H `json:"data"`
}

// ListData handles GET /api/v1/data.
// Query: limit (1..100, default 10), offset (>= 0), source (optional).
func (h *DataHandler) ListData(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	limit, ok := queryInt(c, "limit", defaultLimit, 1, maxLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0, 0, 0)
	if !ok {
		return
	}
	source := c.Query("source")

	recs, total, err := h.store.Canonical.List(ctx, source, limit, offset)
	if err != nil {
		internalError(c, "Failed to list records", err)
		return
	}

	data := make([]gin.H, 0, len(recs))
	for i := range recs {
		data = append(data, flattenRecord(&recs[i]))
	}

	latency := float64(time.Since(start).Microseconds()) / 1000
	c.JSON(http.StatusOK, PageResponse{
		RequestID:    logger.GetRequestID(ctx),
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
		APILatencyMs: math.Round(latency*100) / 100,
		Data:         data,
	})
}

// GetEntity handles GET /api/v1/entities/:entity_id.
// Returns every live record of the entity cluster, oldest first.
func (h *DataHandler) GetEntity(c *gin.Context) {
	entityID := c.Param("entity_id")

	recs, err := h.store.Canonical.ListByEntity(c.Request.Context(), entityID)
	if err != nil {
		internalError(c, "Failed to load entity", err)
		return
	}
	if len(recs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
		return
	}

	records := make([]gin.H, 0, len(recs))
	for i := range recs {
		records = append(records, flattenRecord(&recs[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"entity_id": entityID,
		"count":     len(records),
		"records":   records,
	})
}

// GetRaw handles GET /api/v1/raw/:source/:external_id.
// Returns the stored source document behind a canonical record.
func (h *DataHandler) GetRaw(c *gin.Context) {
	rec, err := h.store.Raw.GetBySourceID(c.Request.Context(), c.Param("source"), c.Param("external_id"))
	if err != nil {
		internalError(c, "Failed to load raw record", err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Raw record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
