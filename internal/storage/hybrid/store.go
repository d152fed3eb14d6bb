package hybrid

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage/redis"
	sqlstore "murmur/backend/internal/storage/sql"
)

// identityCacheTTL 身份缓存时长。
//
// 身份一经创建除计数外不再变化，短缓存即可挡掉发信路径上的
// 大部分按令牌查询。
const identityCacheTTL = 5 * time.Minute

// Store 混合存储实现，结合 SQL 数据库与 Redis。
//
// 持久化全部落在 SQL；Redis 承担按令牌的身份缓存和限流计数。
type Store struct {
	db    *sqlstore.Store
	cache *redis.Cache
	rc    *redis.Client
	ctx   context.Context
}

// NewStore 创建混合存储实例。
func NewStore(
	dbType, dsn string,
	maxOpenConns, maxIdleConns int,
	connMaxLifetime time.Duration,
	retention time.Duration,
	redisAddr, redisPassword string,
	redisDB int,
) (*Store, error) {
	db, err := sqlstore.NewStore(dbType, dsn, maxOpenConns, maxIdleConns, connMaxLifetime, retention)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rc, err := redis.New(redisAddr, redisPassword, redisDB)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		db:    db,
		cache: redis.NewCache(rc),
		rc:    rc,
		ctx:   context.Background(),
	}, nil
}

// ========== Identity Repository ==========

// SaveIdentity 保存新身份并预热缓存。
func (s *Store) SaveIdentity(identity *domain.Identity) error {
	if err := s.db.SaveIdentity(identity); err != nil {
		return err
	}

	// 缓存失败不影响写入结果
	_ = s.cache.CacheIdentity(s.ctx, identity, identityCacheTTL)
	return nil
}

// GetIdentityByHandle 根据昵称获取身份（不缓存，只在创建路径使用）。
func (s *Store) GetIdentityByHandle(handle string) (*domain.Identity, error) {
	return s.db.GetIdentityByHandle(handle)
}

// GetIdentityByToken 根据访问令牌获取身份，优先命中 Redis。
func (s *Store) GetIdentityByToken(linkToken string) (*domain.Identity, error) {
	if identity, err := s.cache.GetCachedIdentity(s.ctx, linkToken); err == nil {
		return identity, nil
	}

	identity, err := s.db.GetIdentityByToken(linkToken)
	if err != nil {
		return nil, err
	}

	_ = s.cache.CacheIdentity(s.ctx, identity, identityCacheTTL)
	return identity, nil
}

// IncrementMessageCount 累加消息计数并失效缓存。
func (s *Store) IncrementMessageCount(linkToken string) error {
	if err := s.db.IncrementMessageCount(linkToken); err != nil {
		return err
	}

	// 计数变化后旧缓存作废，下次查询回源
	_ = s.cache.InvalidateIdentity(s.ctx, linkToken)
	return nil
}

// ========== Message Repository ==========

// SaveMessage 保存消息。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.db.SaveMessage(message)
}

// ListMessagesByToken 返回某身份的全部未过期消息。
func (s *Store) ListMessagesByToken(linkToken string) ([]domain.Message, error) {
	return s.db.ListMessagesByToken(linkToken)
}

// MarkMessageRead 将消息标记为已读。
func (s *Store) MarkMessageRead(messageID string) (*domain.Message, error) {
	return s.db.MarkMessageRead(messageID)
}

// DeleteExpiredMessages 删除所有早于 cutoff 的消息。
func (s *Store) DeleteExpiredMessages(cutoff time.Time) (int, error) {
	return s.db.DeleteExpiredMessages(cutoff)
}

// ========== RateLimit Repository ==========

// IncrementRateLimit 累加固定窗口限流计数（Redis INCR）。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return s.cache.IncrementRateLimit(s.ctx, key, window)
}

// GetRateLimit 读取当前窗口的计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.cache.GetRateLimit(s.ctx, key)
}

// DBStats 返回 SQL 连接池统计，供监控上报。
func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

// Close 关闭数据库与 Redis 连接。
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.rc.Close()
		return err
	}
	return s.rc.Close()
}

// Health 检查数据库与 Redis 健康状态。
func (s *Store) Health() error {
	if err := s.db.Health(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	if err := s.rc.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
