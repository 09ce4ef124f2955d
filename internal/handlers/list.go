package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"siteinspect/internal/models"
)

type uploadListItem struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Category  models.Category `json:"category"`
	BlobURL   string          `json:"blob_url"`
	SizeBytes int64           `json:"size_bytes"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h HandlerSet) ListUploads(c *gin.Context) {
	// An absent category lists everything; ParseCategory's empty-means-general
	// default only applies to uploads.
	var category models.Category
	if raw := c.Query("category"); raw != "" {
		parsed, err := models.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		category = parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.uploads.List(c.Request.Context(), category, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list uploads failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list uploads"})
		return
	}

	items := make([]uploadListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, uploadListItem{
			ID:        rec.ID,
			Filename:  rec.Filename,
			Category:  rec.Category,
			BlobURL:   rec.BlobURL,
			SizeBytes: rec.SizeBytes,
			CreatedAt: rec.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"uploads": items})
}
