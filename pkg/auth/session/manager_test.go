package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager() (*Manager, *memoryStore) {
	store := newMemoryStore()
	return &Manager{store: store, ttl: 30 * 24 * time.Hour}, store
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	manager, store := newTestManager()
	userID := uuid.New()

	token, err := manager.Generate(context.Background(), "access-1", userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	raw := store.data["sess:access-1"]
	assert.NotContains(t, raw, token)
	assert.Contains(t, raw, digest(token))
	assert.Contains(t, raw, userID.String())
	assert.Equal(t, 30*24*time.Hour, store.ttls["sess:access-1"])
}

func TestRotateSpendsOldSession(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-1", userID)
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, "access-1", userID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = manager.Rotate(ctx, "access-1", uuid.New(), token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "token presented with another user's access token")

	pair, err := manager.Rotate(ctx, "access-1", userID, token)
	require.NoError(t, err)
	assert.NotEqual(t, "access-1", pair.AccessID)
	assert.NotEqual(t, token, pair.RefreshToken)
	assert.NotContains(t, store.data, "sess:access-1")

	_, err = manager.Rotate(ctx, "access-1", userID, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "replay after rotation")

	ok, err := manager.HasSession(ctx, pair.AccessID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevokeEndsSession(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-1", userID)
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "access-1"))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = manager.Rotate(ctx, "access-1", userID, token)
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))
}

func TestGenerateValidatesInput(t *testing.T) {
	manager, _ := newTestManager()
	_, err := manager.Generate(context.Background(), " ", uuid.New())
	assert.Error(t, err)
	_, err = manager.Generate(context.Background(), "access-1", uuid.Nil)
	assert.Error(t, err)
}
