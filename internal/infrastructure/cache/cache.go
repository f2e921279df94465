package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"skill-match/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the key/value cache used for per-user read models. Implementations never fail a
// read because the backend is down; they report a miss instead.
type Store interface {
	Ping(ctx context.Context) error
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// New connects to Redis and falls back to an in-process store when it is unreachable.
func New(cfg config.RedisConfig, log *zap.Logger) Store {
	if r := NewRedis(cfg, log); r != nil {
		return r
	}
	if log != nil {
		log.Info("using in-memory cache")
	}
	return NewMemory(ttlOrDefault(cfg.TTL))
}

func DashboardKey(userID uuid.UUID) string {
	return "dashboard:user:" + userID.String()
}

func AchievementsKey(userID uuid.UUID) string {
	return "achievements:user:" + userID.String()
}

func RecommendationsKey(userID uuid.UUID, limit int, minScore float64) string {
	return fmt.Sprintf("recommendations:user:%s:%d:%s", userID, limit, strconv.FormatFloat(minScore, 'f', -1, 64))
}

func RecommendationsPattern(userID uuid.UUID) string {
	return "recommendations:user:" + userID.String() + ":*"
}

func EmployabilityKey(candidateID uuid.UUID) string {
	return "employability:candidate:" + candidateID.String()
}

// UserPatterns lists every per-user key family, used when all users are invalidated.
var UserPatterns = []string{
	"dashboard:user:*",
	"achievements:user:*",
	"recommendations:user:*",
}
