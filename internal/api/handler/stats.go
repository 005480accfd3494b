package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/repository"
)

// StatsHandler reports run history and record counts.
type StatsHandler struct {
	store *repository.Store
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store *repository.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	LastRunID            *string                  `json:"last_run_id"`
	TotalProcessed       int64                    `json:"total_records_processed"`
	TotalInserted        int64                    `json:"total_records_inserted"`
	TotalUpdated         int64                    `json:"total_records_updated"`
	TotalFailed          int64                    `json:"total_records_failed"`
	LastRunTimestamp     *time.Time               `json:"last_run_timestamp"`
	LastRunStatus        *string                  `json:"last_run_status"`
	LastFailureTimestamp *time.Time               `json:"last_failure_timestamp"`
	CanonicalRecords     int64                    `json:"canonical_records"`
	Entities             int64                    `json:"entities"`
	RecordsBySource      []repository.SourceCount `json:"records_by_source"`
	PendingRawRecords    int64                    `json:"pending_raw_records"`
	Checkpoints          []domain.Checkpoint      `json:"checkpoints"`
	Runs                 []domain.RunRecord       `json:"runs"`
}

// GetStats handles GET /api/v1/stats.
// Totals cover every recorded run; runs lists the most recent ones (limit 1..100).
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	limit, ok := queryInt(c, "limit", defaultLimit, 1, maxLimit)
	if !ok {
		return
	}

	runs, err := h.store.Runs.ListRecent(ctx, "", limit)
	if err != nil {
		internalError(c, "Failed to list runs", err)
		return
	}
	totals, err := h.store.Runs.Totals(ctx)
	if err != nil {
		internalError(c, "Failed to sum runs", err)
		return
	}
	lastFailure, err := h.store.Runs.LatestWithStatus(ctx, domain.RunStatusFailed)
	if err != nil {
		internalError(c, "Failed to load last failure", err)
		return
	}
	canonical, err := h.store.Canonical.Count(ctx)
	if err != nil {
		internalError(c, "Failed to count records", err)
		return
	}
	entities, err := h.store.Canonical.CountEntities(ctx)
	if err != nil {
		internalError(c, "Failed to count entities", err)
		return
	}
	bySource, err := h.store.Canonical.CountBySource(ctx)
	if err != nil {
		internalError(c, "Failed to count records by source", err)
		return
	}

	pending, err := h.store.Raw.CountUnprocessed(ctx)
	if err != nil {
		internalError(c, "Failed to count pending raw records", err)
		return
	}
	checkpoints, err := h.store.Checkpoints.List(ctx)
	if err != nil {
		internalError(c, "Failed to list checkpoints", err)
		return
	}

	resp := StatsResponse{
		TotalProcessed:    totals.Processed,
		TotalInserted:     totals.Inserted,
		TotalUpdated:      totals.Updated,
		TotalFailed:       totals.Failed,
		CanonicalRecords:  canonical,
		Entities:          entities,
		RecordsBySource:   bySource,
		PendingRawRecords: pending,
		Checkpoints:       checkpoints,
		Runs:              runs,
	}
	if resp.Runs == nil {
		resp.Runs = []domain.RunRecord{}
	}
	if resp.Checkpoints == nil {
		resp.Checkpoints = []domain.Checkpoint{}
	}
	if len(runs) > 0 {
		last := runs[0]
		status := string(last.Status)
		resp.LastRunID = &last.RunID
		resp.LastRunStatus = &status
		resp.LastRunTimestamp = last.EndTime
	}
	if lastFailure != nil {
		resp.LastFailureTimestamp = lastFailure.EndTime
	}
	c.JSON(http.StatusOK, resp)
}
