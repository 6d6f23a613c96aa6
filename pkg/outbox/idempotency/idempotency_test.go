package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values     map[string]string
	getError   error
	setNXError error
	lastKey    string
	lastTTL    time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.getError != nil {
		return "", f.getError
	}
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sb:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestMarkThenSeen(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := manager.Seen(ctx, "ledger-processor", "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, manager.MarkProcessed(ctx, "ledger-processor", "evt-1"))
	assert.Equal(t, "sb:idempotency:msg:ledger-processor:evt-1", store.lastKey)
	assert.Equal(t, 24*time.Hour, store.lastTTL)

	seen, err = manager.Seen(ctx, "ledger-processor", "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, manager.MarkProcessed(ctx, "ledger-processor", "evt-1"))
}

func TestSeenDoesNotClaim(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		seen, err := manager.Seen(ctx, "transaction-finalizer", "evt-9")
		require.NoError(t, err)
		assert.False(t, seen)
	}
}

func TestKeysAreScopedPerConsumer(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, manager.MarkProcessed(ctx, "history-created", "evt-1"))
	seen, err := manager.Seen(ctx, "ledger-processor", "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestManagerErrors(t *testing.T) {
	store := newFakeStore()
	store.getError = errors.New("boom")
	store.setNXError = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Seen(ctx, "ledger-processor", "evt")
	assert.Error(t, err)
	assert.Error(t, manager.MarkProcessed(ctx, "ledger-processor", "evt"))

	_, err = manager.Seen(ctx, " ", "evt")
	assert.Error(t, err)
	assert.Error(t, manager.MarkProcessed(ctx, "ledger-processor", ""))
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	assert.Error(t, err)
}
