// Package httptransport 提供匿名消息服务的 HTTP API。
package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"murmur/backend/internal/config"
	"murmur/backend/internal/health"
	"murmur/backend/internal/middleware"
	"murmur/backend/internal/monitoring"
	"murmur/backend/internal/service"
	"murmur/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	IdentityService *service.IdentityService
	MessageService  *service.MessageService
	Store           storage.Store
	Metrics         *monitoring.Metrics
	HealthChecker   *health.HealthChecker
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	if deps.Metrics != nil {
		monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
		router.Use(monitor.PanicRecovery())
		router.Use(monitor.HTTPMetrics())
		router.Use(monitor.BusinessMetrics())
	} else {
		router.Use(gin.Recovery())
	}
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())

	// 匿名消息体很小，1MB 足够
	router.Use(middleware.RequestSizeLimit(1 * 1024 * 1024))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	identityHandler := NewIdentityHandler(deps.IdentityService, deps.Logger)
	messageHandler := NewMessageHandler(deps.MessageService, deps.Logger)

	// 限流中间件
	rateLimiter := middleware.NewRateLimiter(deps.Store, deps.Metrics, deps.Logger)
	rl := deps.Config.RateLimit
	if rl.ThrottleRPS > 0 {
		router.Use(middleware.GlobalThrottle(rl.ThrottleRPS, rl.ThrottleBurst, deps.Metrics))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 存活/就绪探针
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}

	// API 路由
	api := router.Group("/api")
	api.Use(rateLimiter.ByIP("api", rl.GlobalLimit, rl.GlobalWindow))
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "OK",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})

		users := api.Group("/users")
		{
			users.POST("/create", identityHandler.Create)
			users.GET("/check/:linkToken", identityHandler.Check)
			users.GET("/messages/:linkToken", messageHandler.List)
			users.PATCH("/messages/:id/read", messageHandler.MarkRead)
		}

		// 发送端点有更严的限流窗口
		messages := api.Group("/messages")
		messages.Use(rateLimiter.ByIP("send", rl.SendLimit, rl.SendWindow))
		{
			messages.POST("/send", messageHandler.Send)
		}
	}

	// 未匹配路由统一返回 JSON 404
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: MsgRouteNotFound})
	})

	return router
}
