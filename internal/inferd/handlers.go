package inferd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"siteinspect/internal/middleware"
	"siteinspect/internal/models"
)

// Analyzer is the slice of Service the HTTP layer needs.
type Analyzer interface {
	Analyze(ctx context.Context, category models.Category, blobURL string) (Response, error)
}

type HandlerSet struct {
	log zerolog.Logger
	svc Analyzer
}

func NewHandlerSet(log zerolog.Logger, svc Analyzer) HandlerSet {
	return HandlerSet{log: log, svc: svc}
}

// Register wires the routes. The function key guards the infer endpoints
// only; health stays open for probes.
func (h HandlerSet) Register(router *gin.RouterGroup, apiKey string) {
	router.GET("/healthz", h.Health)

	guarded := router.Group("")
	guarded.Use(middleware.APIKey(apiKey))
	guarded.POST("/infer", h.infer(models.CategoryGeneral))
	guarded.POST("/infer/dresscode", h.infer(models.CategoryDresscode))
	guarded.POST("/infer/dustbin", h.infer(models.CategoryDustbin))
	guarded.POST("/infer/lights", h.infer(models.CategoryLights))
}

func (h HandlerSet) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type inferRequest struct {
	BlobURL string `json:"blob_url"`
}

func (h HandlerSet) infer(category models.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
			return
		}

		var req inferRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
			return
		}
		if req.BlobURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing blob_url"})
			return
		}

		resp, err := h.svc.Analyze(c.Request.Context(), category, req.BlobURL)
		if err != nil {
			h.log.Error().Err(err).Str("category", string(category)).Msg("analysis failed")
			switch {
			case errors.Is(err, ErrInvalidImage):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, ErrFetch):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
