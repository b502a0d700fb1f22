package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"qrattend/internal/config"
	"qrattend/internal/logging"
	"qrattend/internal/observability"
	"qrattend/internal/queue"
	"qrattend/internal/stats"
	"qrattend/internal/store"
)

var version = "dev"

// Worker consumes attendance.recorded events and maintains per-class counters.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.QueueBackend == "memory" {
		log.Fatal("worker needs QUEUE_BACKEND=redis; the in-memory queue lives inside the API process")
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base.With(zap.String("component", "worker"))

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version, "worker")
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	w := newWorker(newRecordSource(db.Client), stats.New(redisClient.Client), logger)

	messages, err := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey).Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages")
	w.run(ctx, messages)
	logger.Info("worker stopped")
}
