package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/classes"
	"qrattend/internal/cloudinary"
	"qrattend/internal/config"
	"qrattend/internal/handler"
	"qrattend/internal/httpmiddleware"
	"qrattend/internal/logging"
	"qrattend/internal/metrics"
	"qrattend/internal/observability"
	"qrattend/internal/qr"
	"qrattend/internal/queue"
	"qrattend/internal/settings"
	"qrattend/internal/stats"
	"qrattend/internal/store"
	"qrattend/internal/teachers"
)

var version = "dev"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version, "api")
	if err != nil {
		lg.Base.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, lg); err != nil {
		lg.Base.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, lg *logging.Log) error {
	logger := lg.Base
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := store.Migrate(db.Client); err != nil {
			return err
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable, threshold overrides and class counters disabled until it is")
	}

	counters := stats.New(redisClient.Client)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
		go drainInProcess(ctx, q, counters, logger)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	qrGen := qr.NewGenerator(cfg.FrontendURLBase)
	var qrPublisher classes.QRPublisher
	if cfg.CloudinaryEnabled() {
		cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		qrPublisher = qr.NewPublisher(qrGen, cdn)
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		logger.Info("cloudinary not configured, class QR codes are served by the API only")
	}

	classRepo := classes.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	threshold := settings.NewThreshold(redisClient.Client, cfg.ThresholdMeters, logger)

	registrar := attendance.NewRegistrar(classRepo, attendanceRepo, threshold,
		attendance.WithPersistRejected(cfg.PersistRejected),
		attendance.WithNotifier(queue.NewCheckInNotifier(q, logger)),
		attendance.WithLogger(logger),
	)

	h := handler.New(handler.Deps{
		Registrar: registrar,
		Query:     attendance.NewQuery(classRepo, attendanceRepo, cfg.Location),
		Teachers:  teachers.NewService(teachers.NewRepository(db.Client), 0),
		Classes:   classes.NewService(classRepo, qrPublisher, logger),
		Threshold: threshold,
		QR:        qrGen,
		Counters:  counters,

		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		AccessTTL: cfg.AccessTTL,
		AdminUser: cfg.AdminUser,
		Location:  cfg.Location,

		LogLevel:     lg.Level,
		CheckInLimit: httpmiddleware.NewRedisWindow(redisClient.Client, "checkin", cfg.CheckInLimitPerMin, time.Minute, logger).GinMiddleware(),
		DB:           db,
		Redis:        redisClient,
		Log:          logger,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(logger, "/healthz", "/metrics"))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// drainInProcess counts events of the in-memory queue, which no separate
// worker process can reach. The event's pass flag is trusted as is.
func drainInProcess(ctx context.Context, q queue.Queue, counters *stats.Counters, logger *zap.Logger) {
	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Error("in-process consumer failed", zap.Error(err))
		return
	}
	for msg := range messages {
		ev, err := queue.DecodeCheckIn(msg)
		if err != nil {
			logger.Warn("event dropped", zap.Error(err))
			continue
		}
		if err := counters.Incr(ctx, ev.ClassID, ev.Validated); err != nil {
			logger.Warn("increment counters failed", zap.String("class_id", ev.ClassID), zap.Error(err))
		}
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
