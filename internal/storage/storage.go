package storage

import (
	"errors"
	"time"

	"murmur/backend/internal/domain"
)

var (
	// ErrIdentityNotFound 身份不存在
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrHandleTaken 昵称已被占用（按大小写不敏感判定）
	ErrHandleTaken = errors.New("handle already taken")
	// ErrTokenExists 访问令牌冲突，调用方应换新令牌重试
	ErrTokenExists = errors.New("link token already exists")
	// ErrMessageNotFound 消息不存在（包括已过期的消息）
	ErrMessageNotFound = errors.New("message not found")
)

// IdentityRepository 定义身份数据存取操作。
//
// SaveIdentity 必须在存储层内部原子地保证 HandleKey 与 LinkToken 的
// 唯一性（互斥锁或唯一索引），并发创建相同昵称时恰好一个成功、
// 另一个得到 ErrHandleTaken。
type IdentityRepository interface {
	SaveIdentity(identity *domain.Identity) error
	GetIdentityByHandle(handle string) (*domain.Identity, error)
	GetIdentityByToken(linkToken string) (*domain.Identity, error)
	IncrementMessageCount(linkToken string) error
}

// MessageRepository 定义消息数据存取操作。
//
// 所有读取路径把已过期（CreatedAt 早于 now-retention）的消息视为不存在；
// DeleteExpiredMessages 是同一条过期规则的主动回收路径。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	ListMessagesByToken(linkToken string) ([]domain.Message, error)
	MarkMessageRead(messageID string) (*domain.Message, error)
	DeleteExpiredMessages(cutoff time.Time) (int, error)
}

// RateLimitRepository 定义固定窗口限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	IdentityRepository
	MessageRepository
	RateLimitRepository

	Close() error
	Health() error
}
