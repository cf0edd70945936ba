package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

// fakeRedis implements the handful of commands the stores use.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisSnapshotCache(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cache := NewRedisSnapshotCache(rdb, 5*time.Minute)

	got, err := cache.GetSnapshot(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, got, "miss is not an error")

	stats := models.HostelStats{TotalRooms: 2, TotalBeds: 4, OccupiedBeds: 1, AvailableBeds: 3, OccupancyRate: 25}
	require.NoError(t, cache.SetSnapshot(ctx, "h1", stats))
	assert.Equal(t, 5*time.Minute, rdb.ttls["hostel:stats:h1"])

	got, err = cache.GetSnapshot(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stats, *got)

	require.NoError(t, cache.Invalidate(ctx, "h1"))
	got, err = cache.GetSnapshot(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, got)

	rdb.err = errors.New("connection refused")
	_, err = cache.GetSnapshot(ctx, "h1")
	assert.Error(t, err)
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisSessionStore(rdb)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	identity := models.Identity{UserID: "sub-1", Email: "owner@example.com"}
	session, err := store.Create(ctx, "access-token", identity, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)

	for key := range rdb.data {
		assert.NotContains(t, key, "access-token", "the raw token is never a key")
		assert.Equal(t, sessionKey("access-token"), key)
	}

	got, err := store.Get(ctx, "access-token")
	require.NoError(t, err)
	assert.Equal(t, identity, got.Identity)

	_, err = store.Get(ctx, "other-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, "access-token")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, rdb.data, "expired sessions are cleaned up")

	now = now.Add(-2 * time.Hour)
	_, err = store.Create(ctx, "access-token", identity, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, "access-token"))
	_, err = store.Get(ctx, "access-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
