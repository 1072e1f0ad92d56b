package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tarumnet/mikrobill/internal/config"
)

const (
	keySaveGlobal = "router:save:global"
	keySaveClient = "router:save:client:%s"
	keySaveLock   = "router:save:lock:%s"
)

// SaveLimiter throttles endpoints that mutate the router (subscription
// activation and client removal). RouterOS boards are slow to accept config
// writes and a burst of saves can wedge the DHCP server, so both a global
// budget and a per-client budget apply. The limiter is inert when Redis is
// not configured.
type SaveLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	globalRate  float64
	globalBurst int
	clientRate  float64
	clientBurst int
	lockTTL     time.Duration
}

func NewSaveLimiter(cfg config.Config) *SaveLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	limit := cfg.SaveLimit
	return &SaveLimiter{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		locker:      NewLocker(client),
		globalRate:  limit.GlobalRate,
		globalBurst: limit.GlobalBurst,
		clientRate:  limit.ClientRate,
		clientBurst: limit.ClientBurst,
		lockTTL:     time.Duration(limit.LockTTLSeconds) * time.Second,
	}
}

func (l *SaveLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SaveLimiter) AllowGlobal(ctx context.Context) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, keySaveGlobal, l.globalRate, l.globalBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *SaveLimiter) AllowClient(ctx context.Context, clientID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keySaveClient, strings.TrimSpace(clientID)), l.clientRate, l.clientBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// TryLockClient serializes router saves for one client across replicas, so
// two operators cannot race an activation against a delete.
func (l *SaveLimiter) TryLockClient(ctx context.Context, clientID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keySaveLock, strings.TrimSpace(clientID)), l.lockTTL)
}

func (l *SaveLimiter) ReleaseClient(ctx context.Context, clientID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keySaveLock, strings.TrimSpace(clientID)), token)
}
