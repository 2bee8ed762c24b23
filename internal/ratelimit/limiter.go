// Package ratelimit throttles the unauthenticated-by-design endpoints, such as
// setting a tip through the token printed on the bill's QR code.
package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/menuya/internal/config"
)

const keyTipByToken = "menuya:ratelimit:tip:%s"

// TipLimiter bounds tip-by-token attempts per client so tokens cannot be
// guessed. It is disabled when redis is not configured.
type TipLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewTipLimiter(client *redis.Client, cfg config.Config) *TipLimiter {
	limit := cfg.RateLimit
	if client == nil || limit.TipPerMinute <= 0 || limit.TipBurst <= 0 {
		return nil
	}
	return &TipLimiter{
		bucket: NewTokenBucket(client),
		rate:   float64(limit.TipPerMinute) / 60,
		burst:  limit.TipBurst,
	}
}

func (l *TipLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether client may try another token.
func (l *TipLimiter) Allow(ctx context.Context, client string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTipByToken, strings.TrimSpace(client)), l.rate, l.burst)
}
