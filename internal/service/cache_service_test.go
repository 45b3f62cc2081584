package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-analytics-api/internal/repository"
)

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client, nil), metrics, time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	hit, err := cache.Get(ctx, "reports:leaderboard:a", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "reports:leaderboard:a", map[string]int{"rank": 1}, 0))
	require.NoError(t, cache.Set(ctx, "other:key", 1, 0))
	assert.Equal(t, time.Minute, mr.TTL("reports:leaderboard:a"))

	hit, err = cache.Get(ctx, "reports:leaderboard:a", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, dest["rank"])

	require.NoError(t, cache.Invalidate(ctx, reportCachePattern))
	assert.False(t, mr.Exists("reports:leaderboard:a"))
	assert.True(t, mr.Exists("other:key"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())

	cache := NewCacheService(&mapCacheRepo{}, nil, 0, nil, false)
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, cache.Invalidate(context.Background(), "*"))
}
