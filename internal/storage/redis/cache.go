package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"murmur/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Cache 基于 Redis 的身份缓存与限流计数。
type Cache struct {
	client *Client
}

// NewCache 创建 Redis 缓存实例。
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// ========== 身份缓存 ==========

// cachedIdentity 缓存序列化结构。
//
// domain.Identity 的 ID 和 HandleKey 对外部 JSON 隐藏，
// 缓存要完整还原记录，所以单独定义一份字段全集。
type cachedIdentity struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	HandleKey    string    `json:"handleKey"`
	LinkToken    string    `json:"linkToken"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
}

// identityKey 按令牌构造缓存 key。
func identityKey(linkToken string) string {
	return fmt.Sprintf("identity:token:%s", linkToken)
}

// CacheIdentity 按令牌缓存身份信息。
func (c *Cache) CacheIdentity(ctx context.Context, identity *domain.Identity, ttl time.Duration) error {
	data, err := json.Marshal(cachedIdentity{
		ID:           identity.ID,
		Handle:       identity.Handle,
		HandleKey:    identity.HandleKey,
		LinkToken:    identity.LinkToken,
		CreatedAt:    identity.CreatedAt,
		MessageCount: identity.MessageCount,
	})
	if err != nil {
		return err
	}
	return c.client.rdb.Set(ctx, identityKey(identity.LinkToken), data, ttl).Err()
}

// GetCachedIdentity 获取缓存的身份信息。
func (c *Cache) GetCachedIdentity(ctx context.Context, linkToken string) (*domain.Identity, error) {
	data, err := c.client.rdb.Get(ctx, identityKey(linkToken)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var cached cachedIdentity
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, err
	}
	return &domain.Identity{
		ID:           cached.ID,
		Handle:       cached.Handle,
		HandleKey:    cached.HandleKey,
		LinkToken:    cached.LinkToken,
		CreatedAt:    cached.CreatedAt,
		MessageCount: cached.MessageCount,
	}, nil
}

// InvalidateIdentity 删除缓存的身份信息。
func (c *Cache) InvalidateIdentity(ctx context.Context, linkToken string) error {
	return c.client.rdb.Del(ctx, identityKey(linkToken)).Err()
}

// ========== 限流计数 ==========

// IncrementRateLimit 累加固定窗口计数，窗口首次写入时设定过期时间。
func (c *Cache) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	rkey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.rdb.Incr(ctx, rkey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.rdb.Expire(ctx, rkey, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// GetRateLimit 读取当前窗口的计数。
func (c *Cache) GetRateLimit(ctx context.Context, key string) (int64, error) {
	rkey := fmt.Sprintf("ratelimit:%s", key)
	count, err := c.client.rdb.Get(ctx, rkey).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
