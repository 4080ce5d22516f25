package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/triviabees/internal/config"
)

const keyReferralLookupClient = "referral:lookup:client:%s"

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// ReferralLookupLimiter throttles public referral code lookups per client.
type ReferralLookupLimiter struct {
	enabled bool
	bucket  bucket
	rate    float64
	burst   int
}

func NewReferralLookupLimiter(cfg config.Config, client *redis.Client) (*ReferralLookupLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return &ReferralLookupLimiter{}, nil
	}
	if limitCfg.ReferralLookupRate <= 0 || limitCfg.ReferralLookupBurst <= 0 {
		return nil, fmt.Errorf("referral lookup rate limit must be positive")
	}

	var b bucket = NewLocalBucket()
	if client != nil {
		b = NewTokenBucket(client)
	}
	return &ReferralLookupLimiter{
		enabled: true,
		bucket:  b,
		rate:    limitCfg.ReferralLookupRate,
		burst:   limitCfg.ReferralLookupBurst,
	}, nil
}

func (l *ReferralLookupLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ReferralLookupLimiter) AllowClient(ctx context.Context, clientID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		clientID = "anonymous"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyReferralLookupClient, clientID), l.rate, l.burst)
}
