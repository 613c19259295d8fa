package throttle

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/metrics"
	"github.com/mindsettler/service-booking/internal/platform/response"
)

// Limiter decides whether an action keyed by key may run now.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration) bool
	Release(ctx context.Context, key string)
}

// RedisLimiter allows one action per key per window using SET NX with expiry.
// Redis errors fail open.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisLimiter creates a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, logger: logger}
}

// Allow claims key for window. It returns false when the key is already claimed.
func (l *RedisLimiter) Allow(ctx context.Context, key string, window time.Duration) bool {
	ok, err := l.client.SetNX(ctx, l.prefix+":"+key, "1", window).Result()
	if err != nil {
		l.logger.Warn("throttle unavailable, allowing request", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// Release drops a claim whose action did not go ahead, so the key can be claimed
// again inside the window.
func (l *RedisLimiter) Release(ctx context.Context, key string) {
	if err := l.client.Del(ctx, l.prefix+":"+key).Err(); err != nil {
		l.logger.Warn("failed to release throttle claim", zap.String("key", key), zap.Error(err))
	}
}

// Ping checks Redis connectivity.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// NoopLimiter always allows.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string, time.Duration) bool { return true }

func (NoopLimiter) Release(context.Context, string) {}

// RateLimitMiddleware counts requests per client IP and rejects with 429 once limit
// is exceeded inside window. Redis errors fail open.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, keyPrefix string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := strings.TrimSpace(strings.Split(c.ClientIP(), ",")[0])
		key := keyPrefix + ":ip:" + ip

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			ttl, _ := rdb.TTL(ctx, key).Result()
			metrics.ObserveThrottled("rate_limit")
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			response.TooManyRequests(c, "too many requests, try again in "+ttl.String())
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Next()
	}
}
