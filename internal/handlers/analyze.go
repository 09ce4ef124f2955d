package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteinspect/internal/models"
)

type analyzeRequest struct {
	BlobURL  string `json:"blob_url"`
	Category string `json:"category"`
}

// Analyze runs inference against an already-uploaded blob.
func (h HandlerSet) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if req.BlobURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing blob_url"})
		return
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), category, req.BlobURL)
	if err != nil {
		h.log.Error().Err(err).Str("category", string(category)).Msg("analyze failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result.Raw)
}
