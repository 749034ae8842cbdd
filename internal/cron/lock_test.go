package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "pb:cron:lock", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "pb:cron:lock", 0)
	require.NoError(t, err)

	unlock, err := first.TryLock(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, store.ttls["pb:cron:lock"])

	_, err = second.TryLock(ctx)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, unlock(ctx))
	assert.NotContains(t, store.values, "pb:cron:lock")

	again, err := second.TryLock(ctx)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLockUnlockAfterTakeover(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "pb:cron:lock", time.Minute)
	require.NoError(t, err)

	unlock, err := lock.TryLock(ctx)
	require.NoError(t, err)

	// lease expired and another worker took it
	store.values["pb:cron:lock"] = "someone-else"
	require.NoError(t, unlock(ctx))
	assert.Equal(t, "someone-else", store.values["pb:cron:lock"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", time.Minute)
	assert.Error(t, err)
}
