package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	keys   map[string]time.Duration
	setErr error
	delErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	if m.delErr != nil {
		return m.delErr
	}
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "pb:idempotency:" + scope + ":" + id
}

func TestNewGuardValidates(t *testing.T) {
	_, err := NewGuard(nil, "notifications", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemoryStore(), "", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemoryStore(), "notifications", -time.Second)
	assert.Error(t, err)
}

func TestOnceRunsFirstDeliveryOnly(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, "notifications", 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	runs := 0
	fn := func(context.Context) error { runs++; return nil }

	require.NoError(t, guard.Once(context.Background(), eventID, fn))
	assert.ErrorIs(t, guard.Once(context.Background(), eventID, fn), ErrDuplicate)
	assert.Equal(t, 1, runs)

	key := "pb:idempotency:evt:notifications:" + eventID.String()
	assert.Equal(t, 24*time.Hour, store.keys[key])
}

func TestOnceReleasesMarkerOnTransientFailure(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, "notifications", time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	boom := errors.New("db down")
	assert.ErrorIs(t, guard.Once(context.Background(), eventID, func(context.Context) error { return boom }), boom)
	assert.Empty(t, store.keys)

	require.NoError(t, guard.Once(context.Background(), eventID, func(context.Context) error { return nil }))
}

func TestOnceKeepsMarkerOnPermanentFailure(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, "notifications", time.Hour)
	require.NoError(t, err)

	err = guard.Once(context.Background(), uuid.New(), func(context.Context) error {
		return Permanent(errors.New("bad payload"))
	})
	assert.True(t, IsPermanent(err))
	assert.Len(t, store.keys, 1)
}

func TestOnceSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.setErr = errors.New("redis down")
	guard, err := NewGuard(store, "notifications", time.Hour)
	require.NoError(t, err)

	called := false
	err = guard.Once(context.Background(), uuid.New(), func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, store.setErr)
	assert.False(t, called)

	store.setErr = nil
	store.delErr = errors.New("del failed")
	boom := errors.New("boom")
	err = guard.Once(context.Background(), uuid.New(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, store.delErr)
}

func TestOnceRejectsNilEventID(t *testing.T) {
	guard, err := NewGuard(newMemoryStore(), "notifications", time.Hour)
	require.NoError(t, err)
	assert.True(t, IsPermanent(guard.Once(context.Background(), uuid.Nil, func(context.Context) error { return nil })))
}
