package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lostmahbles/listial-api/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Allower is the slice of the rate limiter the middleware needs.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit throttles a route group per client IP. Redis errors fail open so
// a cache outage never locks users out of login.
func RateLimit(limiter Allower, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitRejectedTotal.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
