package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/tiketa/tiketa-backend/internal/helpers"
)

// RateLimiter throttles requests per caller with a redis counter. The counter
// lives for one window and is incremented on every request; exceeding the
// limit yields 429 until the window expires.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int64, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: redisClient, limit: limit, window: window}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s", r.identifier(c))

		count, err := r.redis.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Redis being down should not take the API with it.
			c.Next()
			return
		}
		if count == 1 {
			r.redis.Expire(c.Request.Context(), key, r.window)
		}
		if count > r.limit {
			helpers.RespondWithError(c, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// identifier keys the counter by verified user when available, client IP
// otherwise.
func (r *RateLimiter) identifier(c *gin.Context) string {
	if username, ok := Username(c); ok {
		return "user:" + username
	}
	return "ip:" + c.ClientIP()
}
