package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// queryInt reads an integer query parameter bounded to [min, max].
// Parameters:
//   - c: Gin request context.
//   - name: query parameter name.
//   - def: value used when the parameter is absent.
//   - min: smallest accepted value.
//   - max: largest accepted value; zero means unbounded.
// Returns:
//   - int: parsed value.
//   - bool: false if a 400 response was already written.
func queryInt(c *gin.Context, name string, def, min, max int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || (max > 0 && v > max) {
		msg := name + " must be an integer >= " + strconv.Itoa(min)
		if max > 0 {
			msg = name + " must be an integer between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return 0, false
	}
	return v, true
}

// internalError logs err against the request and writes a 500 response.
func internalError(c *gin.Context, what string, err error) {
	logger.CtxError(c.Request.Context(), "%s: %v", what, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": what + ": " + err.Error()})
}

// flattenRecord renders a canonical record as one flat object: identity
// columns next to the normalized fields.
func flattenRecord(rec *domain.CanonicalRecord) gin.H {
	return gin.H{
		"id":           rec.ID,
		"entity_id":    rec.EntityID,
		"source":       rec.Source,
		"source_id":    rec.SourceID,
		"title":        rec.Data.Title,
		"description":  rec.Data.Description,
		"content":      rec.Data.Content,
		"author":       rec.Data.Author,
		"published_at": rec.Data.PublishedAt,
		"url":          rec.Data.URL,
		"category":     rec.Data.Category,
		"metadata":     rec.Data.Metadata,
		"created_at":   rec.CreatedAt,
		"updated_at":   rec.UpdatedAt,
	}
}
