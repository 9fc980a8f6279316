package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/coopelec/backend/internal/infrastructure/logger"
	"github.com/coopelec/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CounterStore counts requests per key in fixed windows.
// Implementations live in the cache package.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// RateLimit allows limit requests per client IP in each window. A store
// error lets the request through.
func RateLimit(store CounterStore, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimitByKey(store, limit, window, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey is RateLimit with a custom key extractor
func RateLimitByKey(store CounterStore, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if store == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		count, ttl, err := store.Incr(c.Request.Context(), keyFunc(c), window)
		if err != nil {
			logger.L(c.Request.Context()).Warn("Rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ceilSeconds(ttl), 10))

		if count > int64(limit) {
			c.Header("Retry-After", strconv.FormatInt(ceilSeconds(ttl), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Next()
	}
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
