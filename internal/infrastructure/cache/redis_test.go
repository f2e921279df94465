package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// closedPortRedis talks to a port nothing listens on, as after Redis goes away mid-run.
func closedPortRedis() *Redis {
	return &Redis{
		client:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond}),
		log:     zap.NewNop(),
		ttl:     time.Minute,
		timeout: 500 * time.Millisecond,
	}
}

func TestRedis_OutageIsTransient(t *testing.T) {
	r := closedPortRedis()
	defer r.Close()
	ctx := context.Background()

	if err := r.Delete(ctx, "dashboard:user:x"); !domain.IsTransient(err) {
		t.Fatalf("delete: expected transient error, got %v", err)
	}
	if _, err := r.GetJSON(ctx, "dashboard:user:x", new(string)); !domain.IsTransient(err) {
		t.Fatalf("get: expected transient error, got %v", err)
	}
	if _, err := r.DeleteByPattern(ctx, "recommendations:user:*"); !domain.IsTransient(err) {
		t.Fatalf("delete by pattern: expected transient error, got %v", err)
	}
	if err := r.Ping(ctx); !domain.IsTransient(err) {
		t.Fatalf("ping: expected transient error, got %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	if err := unavailable(redis.Nil); err != redis.Nil {
		t.Fatalf("expected cache miss to pass through, got %v", err)
	}
	plain := errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	if err := unavailable(plain); err != plain {
		t.Fatalf("expected command error to pass through, got %v", err)
	}
	if err := unavailable(redis.ErrClosed); !domain.IsTransient(err) || !errors.Is(err, redis.ErrClosed) {
		t.Fatalf("expected closed client to be transient, got %v", err)
	}
}

func TestNew_FallsBackToMemory(t *testing.T) {
	s := New(config.RedisConfig{Host: "127.0.0.1", Port: "1"}, zap.NewNop())
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected in-memory fallback, got %T", s)
	}
}
