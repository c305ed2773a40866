package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	keys    map[string]time.Duration
	failErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{keys: map[string]time.Duration{}}
}

func (f *fakeClient) SetNX(_ context.Context, key string, _ any, expiration time.Duration) *redis.BoolCmd {
	if f.failErr != nil {
		return redis.NewBoolResult(false, f.failErr)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeClient) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.failErr != nil {
		return redis.NewIntResult(0, f.failErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestStoreRevokeSetsTTLToRemainingLifetime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := newFakeClient()
	store := New(client, WithClock(func() time.Time { return now }))

	err := store.Revoke(context.Background(), "jti-1", "user-1", now.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, client.keys[DefaultPrefix+"jti-1"])

	revoked, err := store.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(context.Background(), "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStoreRevokeSkipsExpiredTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := newFakeClient()
	store := New(client, WithClock(func() time.Time { return now }), WithPrefix("test:"))

	require.NoError(t, store.Revoke(context.Background(), "old", "user-1", now.Add(-time.Minute)))
	assert.Empty(t, client.keys)
}

func TestStoreRequiresTokenID(t *testing.T) {
	store := New(newFakeClient())
	require.Error(t, store.Revoke(context.Background(), " ", "user-1", time.Now().Add(time.Hour)))
}

func TestStorePropagatesClientErrors(t *testing.T) {
	client := newFakeClient()
	client.failErr = errors.New("connection refused")
	store := New(client)

	err := store.Revoke(context.Background(), "jti", "user", time.Now().Add(time.Hour))
	require.Error(t, err)

	_, err = store.IsRevoked(context.Background(), "jti")
	require.Error(t, err)
}
