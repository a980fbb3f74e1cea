package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitStrategy derives the Redis key that buckets a request for
// rate-limiting purposes.
type RateLimitStrategy interface {
	Key(c *gin.Context) (string, error)
}

// ClientRateLimit buckets by authenticated user when available, falling back
// to the client IP for anonymous requests.
type ClientRateLimit struct{}

func (ClientRateLimit) Key(c *gin.Context) (string, error) {
	id := c.GetString(ctxUserID)
	if id == "" {
		id = c.ClientIP()
	}
	return "rate:" + id + ":" + c.Request.Method + ":" + c.FullPath(), nil
}

// RateLimiter enforces a fixed-window request ceiling per strategy key.
// The counter lives in Redis so the limit holds across replicas.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration, strat RateLimitStrategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key, err := strat.Key(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down must not take uploads with it.
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}
		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
