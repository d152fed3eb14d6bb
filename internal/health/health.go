package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"murmur/backend/internal/storage"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	hc.addChecks()

	return hc
}

// addChecks 注册存活与就绪检查
func (hc *HealthChecker) addChecks() {
	// 存储连通性
	hc.health.AddReadinessCheck("storage", func() error {
		return hc.store.Health()
	})

	hc.health.AddLivenessCheck("storage", func() error {
		return hc.store.Health()
	})

	// 限流计数器可读（Redis 部署时等价于 Redis 连通性检查）
	hc.health.AddReadinessCheck("ratelimit", func() error {
		_, err := hc.store.GetRateLimit("health_check")
		return err
	})
}

// Handler 返回健康检查处理器，服务 /live 与 /ready。
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活探针处理函数
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪探针处理函数
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}
