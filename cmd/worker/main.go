package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"siteinspect/internal/cache"
	"siteinspect/internal/config"
	"siteinspect/internal/database"
	"siteinspect/internal/log"
	"siteinspect/internal/logsink"
	"siteinspect/internal/queue"
	"siteinspect/internal/repository"
	"siteinspect/internal/storage"
	"siteinspect/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx := context.Background()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	sink := logsink.NewStore(objectStore, cfg.LogSink, logger)

	// The row store is optional; partitions in object storage are the
	// durable log.
	var logStore tasks.LogStore
	if cfg.Postgres.DSN != "" {
		dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, log rows disabled")
		} else {
			defer dbPool.Close()
			logStore = repository.NewInferenceLogRepository(dbPool)
		}
	}

	processor := tasks.NewProcessor(sink, logStore, objectStore, cfg.LogSink, logger)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(sigCtx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-sigCtx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
