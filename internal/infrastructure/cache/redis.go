package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/domain"
	"skill-match/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Redis struct {
	client  *redis.Client
	log     *zap.Logger
	ttl     time.Duration
	timeout time.Duration

	warnedUnavailable atomic.Bool
}

// NewRedis returns nil when the server cannot be reached.
func NewRedis(cfg config.RedisConfig, log *zap.Logger) *Redis {
	log = logger.OrNop(log)

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable", zap.String("addr", net.JoinHostPort(host, port)), zap.Error(err))
		_ = client.Close()
		return nil
	}

	return &Redis{client: client, log: log, ttl: ttlOrDefault(cfg.TTL), timeout: timeoutOrDefault(cfg.Timeout)}
}

func (r *Redis) isUnavailable() bool {
	return r == nil || r.client == nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.log.Warn("redis error, bypassing cache", zap.Error(err))
	}
}

// unavailable marks connection, timeout and closed-client failures as a dependency outage.
func unavailable(err error) error {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, domain.ErrExternalDependencyUnavailable) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.ErrClosed) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: redis: %w", domain.ErrExternalDependencyUnavailable, err)
	}
	return err
}

func (r *Redis) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Redis) Ping(ctx context.Context) error {
	if r.isUnavailable() {
		return fmt.Errorf("%w: redis not connected", domain.ErrExternalDependencyUnavailable)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return unavailable(r.client.Ping(ctx).Err())
}

func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if r.isUnavailable() {
		return false, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, unavailable(err)
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r.isUnavailable() {
		return nil
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return unavailable(err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if r.isUnavailable() || len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return unavailable(err)
	}
	return nil
}

func (r *Redis) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if r.isUnavailable() {
		return 0, nil
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	deleted := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if err := r.client.Del(ctx, k).Err(); err != nil {
			r.log.Warn("redis delete failed", zap.String("key", k), zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, unavailable(iter.Err())
}

func (r *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	if r.isUnavailable() {
		return nil, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out := make([]string, 0)
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, unavailable(iter.Err())
}

func (r *Redis) Close() error {
	if r.isUnavailable() {
		return nil
	}
	return r.client.Close()
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 60 * time.Second
	}
	return ttl
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
