package httpmiddleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisWindow is a fixed-window limiter shared by every API instance. When
// Redis cannot be reached requests are let through.
type RedisWindow struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewRedisWindow allows limit requests per window for each client IP.
func NewRedisWindow(rdb *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RedisWindow {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisWindow{
		rdb:    rdb,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		log:    log,
	}
}

func (w *RedisWindow) key(client string) string {
	slot := w.now().UnixNano() / int64(w.window)
	return "ratelimit:" + w.prefix + ":" + client + ":" + strconv.FormatInt(slot, 10)
}

// Allow counts one request for client and reports whether it is under limit.
func (w *RedisWindow) Allow(ctx context.Context, client string) bool {
	key := w.key(client)
	pipe := w.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	return incr.Val() <= w.limit
}

func (w *RedisWindow) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !w.Allow(c.Request.Context(), clientKey(c)) {
			c.Header("Retry-After", strconv.Itoa(int(w.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": rateLimitMessage})
			return
		}
		c.Next()
	}
}
