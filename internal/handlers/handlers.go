package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"siteinspect/internal/config"
	"siteinspect/internal/middleware"
	"siteinspect/internal/models"
	"siteinspect/internal/service"
)

// Uploader runs the upload-and-route flow. Satisfied by
// service.UploadService; tests substitute fakes.
type Uploader interface {
	Upload(ctx context.Context, input service.UploadInput) (service.UploadOutput, error)
}

// UploadLister reads back stored upload records.
type UploadLister interface {
	List(ctx context.Context, category models.Category, limit, offset int) ([]models.UploadRecord, error)
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	uploader Uploader
	analyzer service.Analyzer
	uploads  UploadLister
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, uploader Uploader, analyzer service.Analyzer, uploads UploadLister, db *pgxpool.Pool, cache *redis.Client) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		uploader: uploader,
		analyzer: analyzer,
		uploads:  uploads,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		guarded := v1.Group("")
		guarded.Use(middleware.APIKey(h.cfg.Security.APIKey))
		guarded.POST("/uploads", h.Upload)
		guarded.POST("/analyze", h.Analyze)

		v1.GET("/uploads", h.ListUploads)
	}
}
