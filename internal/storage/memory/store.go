package memory

import (
	"sort"
	"sync"
	"time"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage"
)

// Store 使用内存保存身份与消息数据，主要用于开发验证和测试。
type Store struct {
	mu         sync.RWMutex
	identities map[string]*domain.Identity           // identityID -> identity
	byHandle   map[string]string                     // 小写 handle -> identityID
	byToken    map[string]string                     // linkToken -> identityID
	messages   map[string]map[string]*domain.Message // linkToken -> messageID -> message
	msgIndex   map[string]string                     // messageID -> linkToken

	// 固定窗口限流计数
	rateLimits map[string]*rateLimitEntry

	retention time.Duration
}

// rateLimitEntry 限流计数条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例，retention 是消息保留时长。
func NewStore(retention time.Duration) *Store {
	return &Store{
		identities: make(map[string]*domain.Identity),
		byHandle:   make(map[string]string),
		byToken:    make(map[string]string),
		messages:   make(map[string]map[string]*domain.Message),
		msgIndex:   make(map[string]string),
		rateLimits: make(map[string]*rateLimitEntry),
		retention:  retention,
	}
}

// ========== Identity Repository ==========

// SaveIdentity 保存新身份。
//
// 昵称唯一性（大小写不敏感）与令牌唯一性在同一把锁内检查并写入，
// 并发创建相同昵称时只有一个调用成功。
func (s *Store) SaveIdentity(identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity.HandleKey
	if key == "" {
		key = domain.NormalizeHandle(identity.Handle)
	}

	if _, exists := s.byHandle[key]; exists {
		return storage.ErrHandleTaken
	}
	if _, exists := s.byToken[identity.LinkToken]; exists {
		return storage.ErrTokenExists
	}

	s.identities[identity.ID] = identity
	s.byHandle[key] = identity.ID
	s.byToken[identity.LinkToken] = identity.ID
	return nil
}

// GetIdentityByHandle 根据昵称获取身份（大小写不敏感）。
func (s *Store) GetIdentityByHandle(handle string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHandle[domain.NormalizeHandle(handle)]
	if !ok {
		return nil, storage.ErrIdentityNotFound
	}
	copied := *s.identities[id]
	return &copied, nil
}

// GetIdentityByToken 根据访问令牌获取身份。
func (s *Store) GetIdentityByToken(linkToken string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[linkToken]
	if !ok {
		return nil, storage.ErrIdentityNotFound
	}
	copied := *s.identities[id]
	return &copied, nil
}

// IncrementMessageCount 累加身份的消息计数。
func (s *Store) IncrementMessageCount(linkToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[linkToken]
	if !ok {
		return storage.ErrIdentityNotFound
	}
	s.identities[id].MessageCount++
	return nil
}

// ========== Message Repository ==========

// SaveMessage 保存消息，收件身份必须已存在。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked(time.Now())

	if _, ok := s.byToken[message.RecipientToken]; !ok {
		return storage.ErrIdentityNotFound
	}

	if _, ok := s.messages[message.RecipientToken]; !ok {
		s.messages[message.RecipientToken] = make(map[string]*domain.Message)
	}
	s.messages[message.RecipientToken][message.ID] = message
	s.msgIndex[message.ID] = message.RecipientToken
	return nil
}

// ListMessagesByToken 返回某身份的全部未过期消息，按创建时间倒序。
func (s *Store) ListMessagesByToken(linkToken string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneExpiredLocked(now)

	if _, ok := s.byToken[linkToken]; !ok {
		return nil, storage.ErrIdentityNotFound
	}

	msgMap := s.messages[linkToken]
	result := make([]domain.Message, 0, len(msgMap))
	for _, msg := range msgMap {
		if msg.ExpiredAt(now, s.retention) {
			continue
		}
		result = append(result, *msg)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// MarkMessageRead 将消息标记为已读（幂等）。
//
// 已过期但尚未被清理的消息视为不存在。
func (s *Store) MarkMessageRead(messageID string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneExpiredLocked(now)

	linkToken, ok := s.msgIndex[messageID]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	msg := s.messages[linkToken][messageID]
	if msg.ExpiredAt(now, s.retention) {
		return nil, storage.ErrMessageNotFound
	}

	msg.IsRead = true
	copied := *msg
	return &copied, nil
}

// DeleteExpiredMessages 删除所有早于 cutoff 的消息，返回删除数量。
func (s *Store) DeleteExpiredMessages(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for linkToken, msgMap := range s.messages {
		for id, msg := range msgMap {
			if msg.CreatedAt.Before(cutoff) {
				delete(msgMap, id)
				delete(s.msgIndex, id)
				count++
			}
		}
		if len(msgMap) == 0 {
			delete(s.messages, linkToken)
		}
	}
	return count, nil
}

// pruneExpiredLocked 清理已过期的消息（被动过期路径）。
func (s *Store) pruneExpiredLocked(now time.Time) {
	if s.retention <= 0 {
		return
	}
	for linkToken, msgMap := range s.messages {
		for id, msg := range msgMap {
			if msg.ExpiredAt(now, s.retention) {
				delete(msgMap, id)
				delete(s.msgIndex, id)
			}
		}
		if len(msgMap) == 0 {
			delete(s.messages, linkToken)
		}
	}
}

// ========== RateLimit Repository ==========

// IncrementRateLimit 累加限流计数，窗口首次写入时设定过期时间。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++

	// 顺带清理其他已过期窗口，避免长期运行时计数表无界增长
	for k, e := range s.rateLimits {
		if now.After(e.ExpiresAt) {
			delete(s.rateLimits, k)
		}
	}

	return entry.Count, nil
}

// GetRateLimit 读取当前窗口的计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rateLimits[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}

// Close 实现 storage.Store 接口，内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 实现 storage.Store 接口。
func (s *Store) Health() error {
	return nil
}
