package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTipLimiterDisabledWithoutRedis(t *testing.T) {
	l := NewTipLimiter(nil, config.Config{RateLimit: config.RateLimitConfig{TipPerMinute: 30, TipBurst: 10}})
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTipLimiterDisabledByConfig(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	assert.Nil(t, NewTipLimiter(client, config.Config{}))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, bucketTTL(0.5, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestNilBucketRefuses(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
}

func TestParseReply(t *testing.T) {
	res, err := parseReply([]int64{1, 4, 0})
	require.NoError(t, err)
	assert.Equal(t, Result{Allowed: true, Remaining: 4}, res)

	res, err = parseReply([]int64{0, 0, 1500})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1500*time.Millisecond, res.RetryAfter)

	res, err = parseReply([]int64{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, res.RetryAfter)

	_, err = parseReply([]int64{1, 2})
	assert.ErrorIs(t, err, errBadResponse)
}
