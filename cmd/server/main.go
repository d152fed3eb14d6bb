package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"murmur/backend/internal/config"
	"murmur/backend/internal/health"
	"murmur/backend/internal/logger"
	"murmur/backend/internal/monitoring"
	"murmur/backend/internal/service"
	"murmur/backend/internal/storage"
	"murmur/backend/internal/storage/hybrid"
	"murmur/backend/internal/storage/memory"
	"murmur/backend/internal/sweeper"
	"murmur/backend/internal/token"
	httptransport "murmur/backend/internal/transport/http"
)

// main 启动匿名消息服务：HTTP API 加后台过期清理任务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.DefaultRotation(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		Compress:    true,
	}))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting murmur server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.Duration("message_ttl", cfg.Retention.MessageTTL),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" {
		store, err = initializeDatabaseStorage(cfg, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		// 内存存储（开发环境）
		store = memory.NewStore(cfg.Retention.MessageTTL)
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化服务层
	tokens := token.NewGenerator(cfg.Token.Length)
	identityService := service.NewIdentityService(store, tokens, log)
	messageService := service.NewMessageService(store, store, log)

	// 后台清理任务
	sweep := sweeper.New(store, cfg.Retention.MessageTTL, cfg.Retention.SweepInterval, metrics, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		IdentityService: identityService,
		MessageService:  messageService,
		Store:           store,
		Metrics:         metrics,
		HealthChecker:   healthChecker,
		Logger:          log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	startedAt := time.Now()

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期消息 goroutine
	group.Go(func() error {
		return sweep.Run(groupCtx)
	})

	// 运行时指标上报 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.UpdateSystemUptime(time.Since(startedAt))
				if hs, ok := store.(*hybrid.Store); ok {
					metrics.UpdateDatabaseConnections(hs.DBStats().OpenConnections)
				}
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		// 显式关闭存储再退出，os.Exit 不会执行 defer
		log.Error("server error", zap.Error(err))
		store.Close()
		os.Exit(1)
	}

	log.Info("server exited cleanly")
}

// initializeDatabaseStorage 初始化数据库存储（SQL + Redis 混合）
func initializeDatabaseStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	log.Info("initializing database storage",
		zap.String("database_type", cfg.Database.Type),
		zap.String("redis_address", cfg.Redis.Address),
	)

	store, err := hybrid.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Retention.MessageTTL,
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid store: %w", err)
	}

	return store, nil
}
