// Package sweeper 周期性删除超过保留期的消息。
//
// 读路径对过期消息做被动过滤，清理任务只负责把它们从存储中
// 真正移除，两者共用同一个保留期配置。
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"murmur/backend/internal/monitoring"
	"murmur/backend/internal/storage"
)

// Sweeper 过期消息清理任务。
type Sweeper struct {
	repo      storage.MessageRepository
	retention time.Duration
	interval  time.Duration
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// New 创建清理任务。retention 是消息保留期，interval 是扫描周期。
// metrics 可以为 nil。
func New(repo storage.MessageRepository, retention, interval time.Duration, metrics *monitoring.Metrics, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		repo:      repo,
		retention: retention,
		interval:  interval,
		metrics:   metrics,
		log:       log,
	}
}

// Run 启动清理循环，直到 ctx 取消。适合放进 errgroup。
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("starting expired message sweep task",
		zap.Duration("interval", s.interval),
		zap.Duration("retention", s.retention),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep task stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce 执行一次清理。失败只记日志，等待下个周期重试。
func (s *Sweeper) SweepOnce() {
	cutoff := time.Now().UTC().Add(-s.retention)
	count, err := s.repo.DeleteExpiredMessages(cutoff)
	if err != nil {
		s.log.Error("failed to sweep expired messages", zap.Error(err))
		return
	}
	if count > 0 {
		if s.metrics != nil {
			s.metrics.RecordMessagesSwept(count)
		}
		s.log.Info("expired messages swept", zap.Int("count", count))
	}
}
