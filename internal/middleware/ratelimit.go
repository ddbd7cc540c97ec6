package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contactsbook/contacts-api/pkg/logger"
	"github.com/contactsbook/contacts-api/pkg/redis"
	"github.com/contactsbook/contacts-api/pkg/response"
)

// RateLimitConfig holds fixed-window rate limit settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// hitCounter increments the hit count under a window key, stamping the
// window TTL in the same round trip.
type hitCounter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// redisHitCounter counts hits in Redis. The counter and its expiry are
// set in one transactional pipeline so a crashed request cannot leave
// an immortal key.
type redisHitCounter struct {
	rdb *redis.Client
}

func (r *redisHitCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimit throttles clients with a fixed window counter in Redis,
// keyed by client IP and route. Redis being down fails open.
func RateLimit(rdb *redis.Client, cfg RateLimitConfig, log *logger.Logger) gin.HandlerFunc {
	return rateLimit(&redisHitCounter{rdb: rdb}, cfg, log, time.Now)
}

func rateLimit(counter hitCounter, cfg RateLimitConfig, log *logger.Logger, now func() time.Time) gin.HandlerFunc {
	if cfg.Requests <= 0 {
		cfg.Requests = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		window := now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", c.ClientIP(), c.FullPath(), window)

		count, err := counter.Incr(c.Request.Context(), key, cfg.Window)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		if count > int64(cfg.Requests) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			response.TooManyRequests(c, "Too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
