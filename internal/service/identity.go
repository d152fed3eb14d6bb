package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage"
	"murmur/backend/internal/token"
)

// maxTokenAttempts 令牌冲突时的最大重试次数。
//
// 62^24 的空间里连续冲突几乎不可能发生，这个上限只是防御存储层
// 异常导致的死循环。
const maxTokenAttempts = 5

// ErrTokenGeneration 多次重试后仍未能生成唯一令牌
var ErrTokenGeneration = errors.New("failed to generate a unique link token")

// IdentityService 封装身份相关业务操作。
type IdentityService struct {
	repo   storage.IdentityRepository
	tokens *token.Generator
	log    *zap.Logger
}

// NewIdentityService 创建身份业务服务。
func NewIdentityService(repo storage.IdentityRepository, tokens *token.Generator, log *zap.Logger) *IdentityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{
		repo:   repo,
		tokens: tokens,
		log:    log,
	}
}

// Create 创建新身份。
//
// 昵称校验在任何持久化之前完成；唯一性由存储层保证，并发创建
// 相同昵称时落败方得到 storage.ErrHandleTaken。令牌冲突对调用方
// 不可见：换新令牌重试而不是报错。
func (s *IdentityService) Create(handle string) (*domain.Identity, error) {
	handle = strings.TrimSpace(handle)
	if err := domain.ValidateHandle(handle); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		linkToken, err := s.tokens.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate link token: %w", err)
		}

		identity := &domain.Identity{
			ID:        uuid.NewString(),
			Handle:    handle,
			HandleKey: domain.NormalizeHandle(handle),
			LinkToken: linkToken,
			CreatedAt: time.Now().UTC(),
		}

		err = s.repo.SaveIdentity(identity)
		if err == nil {
			return identity, nil
		}
		if errors.Is(err, storage.ErrTokenExists) {
			s.log.Warn("link token collision, retrying with a fresh token",
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, err
	}

	return nil, ErrTokenGeneration
}

// GetByToken 根据访问令牌获取身份。
func (s *IdentityService) GetByToken(linkToken string) (*domain.Identity, error) {
	return s.repo.GetIdentityByToken(linkToken)
}

// GetByHandle 根据昵称获取身份（大小写不敏感）。
func (s *IdentityService) GetByHandle(handle string) (*domain.Identity, error) {
	return s.repo.GetIdentityByHandle(handle)
}
