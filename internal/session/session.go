// Package session maps opaque bearer tokens to user ids in redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth_"

// Manager issues, resolves and revokes tokens. Every token lives under
// auth_<token> and expires after the configured TTL.
type Manager struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewManager(rdb redis.Cmdable, ttl time.Duration) *Manager {
	return &Manager{rdb: rdb, ttl: ttl}
}

func key(token string) string {
	return keyPrefix + token
}

// Issue stores a fresh token for userID.
func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := m.rdb.Set(ctx, key(token), userID, m.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user id bound to token. An empty token, an unknown
// token and an expired token all report found=false.
func (m *Manager) Resolve(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	userID, err := m.rdb.Get(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve session: %w", err)
	}
	return userID, true, nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.rdb.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}
