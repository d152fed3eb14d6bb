package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"murmur/backend/internal/monitoring"
	"murmur/backend/internal/storage"
)

// RateLimiter 基于存储层固定窗口计数的限流器。
//
// 计数器放在存储层（内存或 Redis）而不是进程内，多实例部署时
// 共享同一个窗口。存储故障时放行请求，限流不能成为单点。
type RateLimiter struct {
	store   storage.RateLimitRepository
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewRateLimiter 创建限流器。metrics 可以为 nil。
func NewRateLimiter(store storage.RateLimitRepository, metrics *monitoring.Metrics, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// ByIP 按客户端 IP 限流。limitType 区分不同窗口的计数键。
func (rl *RateLimiter) ByIP(limitType string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", limitType, c.ClientIP())

		count, err := rl.store.IncrementRateLimit(key, window)
		if err != nil {
			rl.log.Warn("rate limit store unavailable, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitBlock(limitType)
			}
			rl.log.Warn("rate limit exceeded",
				zap.String("type", limitType),
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GlobalThrottle 进程级令牌桶，兜底保护下游存储。
func GlobalThrottle(rps float64, burst int, metrics *monitoring.Metrics) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			if metrics != nil {
				metrics.RecordRateLimitBlock("global")
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Server busy, please try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
