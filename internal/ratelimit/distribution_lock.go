package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/triviabees/internal/config"
)

const (
	keyDistributionLock    = "commission:distribute:lock:%s"
	defaultDistributionTTL = 30 * time.Second
)

// DistributionLocker serializes commission runs per order across processes
// when redis is available, and within the process otherwise.
type DistributionLocker struct {
	mutex Mutex
	ttl   time.Duration
}

func NewDistributionLocker(cfg config.Config, client *redis.Client) *DistributionLocker {
	ttl := time.Duration(cfg.RateLimit.DistributionLockTTLS) * time.Second
	if ttl <= 0 {
		ttl = defaultDistributionTTL
	}
	var m Mutex = NewLocalLocker()
	if client != nil {
		m = NewLocker(client)
	}
	return &DistributionLocker{mutex: m, ttl: ttl}
}

// NewLocalDistributionLocker is the in-process variant used by tests and
// single-instance deployments.
func NewLocalDistributionLocker(ttl time.Duration) *DistributionLocker {
	if ttl <= 0 {
		ttl = defaultDistributionTTL
	}
	return &DistributionLocker{mutex: NewLocalLocker(), ttl: ttl}
}

func (l *DistributionLocker) TryLockOrder(ctx context.Context, orderID string) (string, bool, error) {
	if l == nil || l.mutex == nil {
		return "", true, nil
	}
	return l.mutex.TryLock(ctx, fmt.Sprintf(keyDistributionLock, strings.TrimSpace(orderID)), l.ttl)
}

func (l *DistributionLocker) ReleaseOrder(ctx context.Context, orderID, token string) error {
	if l == nil || l.mutex == nil {
		return nil
	}
	return l.mutex.Release(ctx, fmt.Sprintf(keyDistributionLock, strings.TrimSpace(orderID)), token)
}
