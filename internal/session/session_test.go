package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(rdb, ttl), mr
}

func TestIssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	m, mr := newTestManager(t, 24*time.Hour)

	token, err := m.Issue(ctx, "64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored, err := mr.Get("auth_" + token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", stored)
	assert.Equal(t, 24*time.Hour, mr.TTL("auth_"+token))

	userID, ok, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", userID)

	require.NoError(t, m.Revoke(ctx, token))
	_, ok, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Revoke(ctx, token))
}

func TestIssue_DistinctTokens(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, time.Hour)

	a, err := m.Issue(ctx, "u1")
	require.NoError(t, err)
	b, err := m.Issue(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	for _, tok := range []string{a, b} {
		id, ok, err := m.Resolve(ctx, tok)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "u1", id)
	}
}

func TestResolve_Expired(t *testing.T) {
	ctx := context.Background()
	m, mr := newTestManager(t, time.Minute)

	token, err := m.Issue(ctx, "u1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, ok, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_EmptyAndUnknown(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, time.Minute)

	_, ok, err := m.Resolve(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.Resolve(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_StoreDown(t *testing.T) {
	ctx := context.Background()
	m, mr := newTestManager(t, time.Minute)
	mr.Close()

	_, _, err := m.Resolve(ctx, "anything")
	assert.Error(t, err)
	assert.Error(t, m.Ping(ctx))
}
