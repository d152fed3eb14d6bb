package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage"
	"murmur/backend/internal/storage/memory"
	"murmur/backend/internal/token"
)

// MockIdentityRepo 模拟身份存储接口
type MockIdentityRepo struct {
	mock.Mock
}

func (m *MockIdentityRepo) SaveIdentity(identity *domain.Identity) error {
	args := m.Called(identity)
	return args.Error(0)
}

func (m *MockIdentityRepo) GetIdentityByHandle(handle string) (*domain.Identity, error) {
	args := m.Called(handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityRepo) GetIdentityByToken(linkToken string) (*domain.Identity, error) {
	args := m.Called(linkToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityRepo) IncrementMessageCount(linkToken string) error {
	args := m.Called(linkToken)
	return args.Error(0)
}

func newIdentityService(store storage.IdentityRepository) *IdentityService {
	return NewIdentityService(store, token.NewGenerator(token.DefaultLength), nil)
}

func TestIdentityService_Create(t *testing.T) {
	t.Run("创建身份成功", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		service := newIdentityService(store)

		identity, err := service.Create("abc_123")
		require.NoError(t, err)
		assert.Equal(t, "abc_123", identity.Handle)
		assert.Len(t, identity.LinkToken, token.DefaultLength)
		assert.Equal(t, 0, identity.MessageCount)
		assert.False(t, identity.CreatedAt.IsZero())
	})

	t.Run("不同昵称得到不同令牌", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		service := newIdentityService(store)

		first, err := service.Create("alice")
		require.NoError(t, err)
		second, err := service.Create("bob")
		require.NoError(t, err)
		assert.NotEqual(t, first.LinkToken, second.LinkToken)
	})

	t.Run("重复昵称返回已占用", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		service := newIdentityService(store)

		_, err := service.Create("alice")
		require.NoError(t, err)

		_, err = service.Create("alice")
		assert.ErrorIs(t, err, storage.ErrHandleTaken)

		// 大小写不敏感
		_, err = service.Create("ALICE")
		assert.ErrorIs(t, err, storage.ErrHandleTaken)
	})

	t.Run("昵称格式校验", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		service := newIdentityService(store)

		_, err := service.Create("ab")
		assert.ErrorIs(t, err, domain.ErrHandleTooShort)

		_, err = service.Create(strings.Repeat("a", 21))
		assert.ErrorIs(t, err, domain.ErrHandleTooLong)

		_, err = service.Create("abc!")
		assert.ErrorIs(t, err, domain.ErrInvalidHandle)
	})

	t.Run("昵称去除两端空白", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		service := newIdentityService(store)

		identity, err := service.Create("  alice  ")
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Handle)
	})
}

func TestIdentityService_TokenCollisionRetry(t *testing.T) {
	t.Run("令牌冲突时换新令牌重试", func(t *testing.T) {
		repo := new(MockIdentityRepo)
		repo.On("SaveIdentity", mock.Anything).Return(storage.ErrTokenExists).Once()
		repo.On("SaveIdentity", mock.Anything).Return(nil).Once()

		service := newIdentityService(repo)
		identity, err := service.Create("alice")
		require.NoError(t, err)
		assert.NotEmpty(t, identity.LinkToken)
		repo.AssertNumberOfCalls(t, "SaveIdentity", 2)
	})

	t.Run("重试耗尽返回生成失败", func(t *testing.T) {
		repo := new(MockIdentityRepo)
		repo.On("SaveIdentity", mock.Anything).Return(storage.ErrTokenExists)

		service := newIdentityService(repo)
		_, err := service.Create("alice")
		assert.ErrorIs(t, err, ErrTokenGeneration)
		repo.AssertNumberOfCalls(t, "SaveIdentity", maxTokenAttempts)
	})

	t.Run("昵称冲突不重试", func(t *testing.T) {
		repo := new(MockIdentityRepo)
		repo.On("SaveIdentity", mock.Anything).Return(storage.ErrHandleTaken)

		service := newIdentityService(repo)
		_, err := service.Create("alice")
		assert.ErrorIs(t, err, storage.ErrHandleTaken)
		repo.AssertNumberOfCalls(t, "SaveIdentity", 1)
	})
}

func TestIdentityService_GetByToken(t *testing.T) {
	store := memory.NewStore(48 * time.Hour)
	service := newIdentityService(store)

	created, err := service.Create("alice")
	require.NoError(t, err)

	found, err := service.GetByToken(created.LinkToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Handle)

	_, err = service.GetByToken("no-such-token")
	assert.ErrorIs(t, err, storage.ErrIdentityNotFound)
}
