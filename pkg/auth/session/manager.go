// Package session keeps refresh sessions in Redis, one per access token jti.
// Only a SHA-256 digest of the refresh token is stored, bound to the user it
// was issued to.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	redisclient "github.com/pasabuy/pasabuy-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Pair is the identity of a freshly rotated session.
type Pair struct {
	AccessID     string
	RefreshToken string
}

type record struct {
	UserID uuid.UUID `json:"uid"`
	Digest string    `json:"digest"`
}

type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns the plaintext refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.save(ctx, accessID, record{UserID: userID, Digest: digest(token)}); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate spends the refresh token of oldAccessID and opens a new session for
// the same user. The old session is deleted before the new one is written so
// a replayed token cannot fork the session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (Pair, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Pair{}, ErrInvalidRefreshToken
	}
	current, err := m.load(ctx, oldAccessID)
	if err != nil {
		return Pair{}, err
	}
	if current.UserID != userID || subtle.ConstantTimeCompare([]byte(current.Digest), []byte(digest(provided))) != 1 {
		return Pair{}, ErrInvalidRefreshToken
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(oldAccessID)); err != nil {
		return Pair{}, fmt.Errorf("drop session: %w", err)
	}

	next := Pair{AccessID: NewAccessID()}
	if next.RefreshToken, err = newRefreshToken(); err != nil {
		return Pair{}, err
	}
	if err := m.save(ctx, next.AccessID, record{UserID: userID, Digest: digest(next.RefreshToken)}); err != nil {
		return Pair{}, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live refresh session.
// Auth middleware uses it to reject access tokens after logout.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	_, err := m.load(ctx, accessID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrInvalidRefreshToken):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) save(ctx context.Context, accessID string, rec record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, accessID string) (record, error) {
	raw, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	if errors.Is(err, redislib.Nil) {
		return record{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return record{}, fmt.Errorf("load session: %w", err)
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
