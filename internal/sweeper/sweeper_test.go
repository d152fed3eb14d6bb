package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage/memory"
)

func seedIdentity(t *testing.T, store *memory.Store) *domain.Identity {
	t.Helper()
	identity := &domain.Identity{
		ID:        "id-1",
		Handle:    "alice",
		HandleKey: "alice",
		LinkToken: "token-alice",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveIdentity(identity))
	return identity
}

func TestSweeper_SweepOnce(t *testing.T) {
	t.Run("删除超过保留期的消息", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		identity := seedIdentity(t, store)

		now := time.Now().UTC()
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID:             "old",
			RecipientToken: identity.LinkToken,
			Content:        "old",
			CreatedAt:      now.Add(-72 * time.Hour),
		}))
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID:             "fresh",
			RecipientToken: identity.LinkToken,
			Content:        "fresh",
			CreatedAt:      now,
		}))

		sweeper := New(store, 48*time.Hour, time.Hour, nil, nil)
		sweeper.SweepOnce()

		messages, err := store.ListMessagesByToken(identity.LinkToken)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "fresh", messages[0].ID)
	})

	t.Run("没有过期消息时不删除", func(t *testing.T) {
		store := memory.NewStore(48 * time.Hour)
		identity := seedIdentity(t, store)

		require.NoError(t, store.SaveMessage(&domain.Message{
			ID:             "fresh",
			RecipientToken: identity.LinkToken,
			Content:        "fresh",
			CreatedAt:      time.Now().UTC(),
		}))

		sweeper := New(store, 48*time.Hour, time.Hour, nil, nil)
		sweeper.SweepOnce()

		messages, err := store.ListMessagesByToken(identity.LinkToken)
		require.NoError(t, err)
		assert.Len(t, messages, 1)
	})
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := memory.NewStore(48 * time.Hour)
	sweeper := New(store, 48*time.Hour, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweeper.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
