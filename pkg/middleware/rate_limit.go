package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware is a coarse fixed-window limiter keyed by route and
// caller. The per-endpoint business limits live in the xp service and are
// enforced against the database.
func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		userID, exists := c.Get(ContextUserID)
		if !exists {
			userID = c.ClientIP()
		}

		windowStart := time.Now().UTC().Truncate(window)
		key := fmt.Sprintf("rate_limit:%s:%v:%d", c.FullPath(), userID, windowStart.Unix())

		ctx := c.Request.Context()
		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate_limited", "message": "Rate limit check failed"})
			c.Abort()
			return
		}

		if count == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			retryAfter := windowStart.Add(window).Sub(time.Now().UTC())
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "message": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
