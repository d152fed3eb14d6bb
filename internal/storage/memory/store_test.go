package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage"
)

func newTestIdentity(handle, token string) *domain.Identity {
	return &domain.Identity{
		ID:        "id-" + token,
		Handle:    handle,
		HandleKey: domain.NormalizeHandle(handle),
		LinkToken: token,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryStore_IdentityOperations(t *testing.T) {
	store := NewStore(48 * time.Hour)

	identity := newTestIdentity("Alice_01", "token-alice")
	require.NoError(t, store.SaveIdentity(identity))

	// 按昵称查询（大小写不敏感）
	found, err := store.GetIdentityByHandle("alice_01")
	require.NoError(t, err)
	assert.Equal(t, "Alice_01", found.Handle)

	// 按令牌查询
	found, err = store.GetIdentityByToken("token-alice")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, found.ID)

	// 未知令牌
	_, err = store.GetIdentityByToken("no-such-token")
	assert.ErrorIs(t, err, storage.ErrIdentityNotFound)

	// 昵称冲突（不同大小写）
	dup := newTestIdentity("ALICE_01", "token-other")
	assert.ErrorIs(t, store.SaveIdentity(dup), storage.ErrHandleTaken)

	// 令牌冲突
	tokenDup := newTestIdentity("bob", "token-alice")
	assert.ErrorIs(t, store.SaveIdentity(tokenDup), storage.ErrTokenExists)

	// 消息计数
	require.NoError(t, store.IncrementMessageCount("token-alice"))
	require.NoError(t, store.IncrementMessageCount("token-alice"))
	found, err = store.GetIdentityByToken("token-alice")
	require.NoError(t, err)
	assert.Equal(t, 2, found.MessageCount)

	assert.ErrorIs(t, store.IncrementMessageCount("no-such-token"), storage.ErrIdentityNotFound)
}

func TestMemoryStore_ConcurrentSaveIdentity(t *testing.T) {
	store := NewStore(48 * time.Hour)

	// 两个并发调用创建相同昵称，恰好一个成功
	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := newTestIdentity("samehandle", "token-"+string(rune('a'+n)))
			errs[n] = store.SaveIdentity(identity)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, storage.ErrHandleTaken)
		}
	}
	assert.Equal(t, 1, success)
}

func TestMemoryStore_MessageOperations(t *testing.T) {
	store := NewStore(48 * time.Hour)
	require.NoError(t, store.SaveIdentity(newTestIdentity("alice", "token-alice")))

	now := time.Now().UTC()
	first := &domain.Message{
		ID:             "msg-1",
		RecipientToken: "token-alice",
		Content:        "first",
		CreatedAt:      now.Add(-2 * time.Minute),
	}
	second := &domain.Message{
		ID:             "msg-2",
		RecipientToken: "token-alice",
		Content:        "second",
		CreatedAt:      now.Add(-1 * time.Minute),
	}
	require.NoError(t, store.SaveMessage(first))
	require.NoError(t, store.SaveMessage(second))

	// 收件身份不存在时拒绝写入
	orphan := &domain.Message{ID: "msg-x", RecipientToken: "no-such-token", Content: "x", CreatedAt: now}
	assert.ErrorIs(t, store.SaveMessage(orphan), storage.ErrIdentityNotFound)

	// 列表按创建时间倒序
	messages, err := store.ListMessagesByToken("token-alice")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Content)
	assert.Equal(t, "first", messages[1].Content)

	// 未知令牌
	_, err = store.ListMessagesByToken("no-such-token")
	assert.ErrorIs(t, err, storage.ErrIdentityNotFound)

	// 标记已读幂等
	msg, err := store.MarkMessageRead("msg-1")
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	msg, err = store.MarkMessageRead("msg-1")
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	_, err = store.MarkMessageRead("no-such-message")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestMemoryStore_MessageExpiry(t *testing.T) {
	store := NewStore(48 * time.Hour)
	require.NoError(t, store.SaveIdentity(newTestIdentity("alice", "token-alice")))

	now := time.Now().UTC()
	expired := &domain.Message{
		ID:             "msg-expired",
		RecipientToken: "token-alice",
		Content:        "old",
		CreatedAt:      now.Add(-49 * time.Hour),
	}
	fresh := &domain.Message{
		ID:             "msg-fresh",
		RecipientToken: "token-alice",
		Content:        "new",
		CreatedAt:      now.Add(-47 * time.Hour),
	}
	require.NoError(t, store.SaveMessage(fresh))

	// 直接写入 map 绕过 SaveMessage 的被动清理，模拟尚未打扫的过期消息
	store.mu.Lock()
	store.messages["token-alice"][expired.ID] = expired
	store.msgIndex[expired.ID] = "token-alice"
	store.mu.Unlock()

	// 被动过期：列表对过期消息不可见
	messages, err := store.ListMessagesByToken("token-alice")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "msg-fresh", messages[0].ID)

	// 过期消息标记已读返回不存在
	_, err = store.MarkMessageRead("msg-expired")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestMemoryStore_DeleteExpiredMessages(t *testing.T) {
	store := NewStore(0) // 关闭被动清理，验证主动删除路径
	require.NoError(t, store.SaveIdentity(newTestIdentity("alice", "token-alice")))

	now := time.Now().UTC()
	old := &domain.Message{ID: "msg-old", RecipientToken: "token-alice", Content: "old", CreatedAt: now.Add(-49 * time.Hour)}
	fresh := &domain.Message{ID: "msg-new", RecipientToken: "token-alice", Content: "new", CreatedAt: now.Add(-47 * time.Hour)}
	require.NoError(t, store.SaveMessage(old))
	require.NoError(t, store.SaveMessage(fresh))

	count, err := store.DeleteExpiredMessages(now.Add(-48 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	messages, err := store.ListMessagesByToken("token-alice")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "msg-new", messages[0].ID)

	// 再次清理没有可删消息
	count, err = store.DeleteExpiredMessages(now.Add(-48 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryStore_RateLimit(t *testing.T) {
	store := NewStore(48 * time.Hour)

	for i := int64(1); i <= 3; i++ {
		count, err := store.IncrementRateLimit("ip:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err := store.GetRateLimit("ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// 未知 key 计数为 0
	count, err = store.GetRateLimit("ip:9.9.9.9")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
