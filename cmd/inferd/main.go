package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"siteinspect/internal/cache"
	"siteinspect/internal/config"
	"siteinspect/internal/database"
	"siteinspect/internal/detector"
	"siteinspect/internal/inferd"
	"siteinspect/internal/log"
	"siteinspect/internal/middleware"
	"siteinspect/internal/models"
	"siteinspect/internal/queue"
	"siteinspect/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "inferd")

	ctx := context.Background()

	// Postgres and redis only feed the best-effort log sinks here; the
	// service analyzes fine without either.
	var logs inferd.LogWriter
	if cfg.Postgres.DSN != "" {
		dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, log rows disabled")
		} else {
			defer dbPool.Close()
			logs = repository.NewInferenceLogRepository(dbPool)
		}
	}

	var tasks inferd.TaskQueue
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, log tasks disabled")
	} else {
		defer redisClient.Close()
		tasks = queue.NewProducer(redisClient, cfg.Worker.Stream)
	}

	detectors := map[models.Category]detector.Detector{
		models.CategoryGeneral:   detector.NewHTTPDetector(cfg.Detector.GeneralURL, cfg.Detector.ConfThreshold, cfg.Detector.Timeout, logger),
		models.CategoryDresscode: detector.NewHTTPDetector(cfg.Detector.DresscodeURL, cfg.Detector.ConfThreshold, cfg.Detector.Timeout, logger),
		models.CategoryDustbin:   detector.NewHTTPDetector(cfg.Detector.DustbinURL, cfg.Detector.ConfThreshold, cfg.Detector.Timeout, logger),
		models.CategoryLights:    detector.NewHTTPDetector(cfg.Detector.LightsURL, cfg.Detector.ConfThreshold, cfg.Detector.Timeout, logger),
	}

	svc := inferd.NewService(cfg, detectors, logs, tasks, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)

	inferd.NewHandlerSet(logger, svc).Register(engine.Group(""), cfg.Security.APIKey)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("inference server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("inference server failed")
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("inference server exited cleanly")
}
