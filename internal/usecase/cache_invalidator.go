package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"skill-match/internal/infrastructure/cache"
	"skill-match/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CacheInvalidator drops per-user read models after recomputes. The async variants never
// report failures to the caller; they only log.
type CacheInvalidator struct {
	store   cache.Store
	timeout time.Duration
	log     *zap.Logger

	wg sync.WaitGroup
}

func NewCacheInvalidator(store cache.Store, timeout time.Duration, log *zap.Logger) *CacheInvalidator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &CacheInvalidator{store: store, timeout: timeout, log: logger.OrNop(log)}
}

// UserKeys lists the cached entries of one user.
func (c *CacheInvalidator) UserKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if c == nil || c.store == nil {
		return []string{}, nil
	}
	out := make([]string, 0)
	for _, p := range []string{cache.DashboardKey(userID), cache.AchievementsKey(userID), cache.RecommendationsPattern(userID)} {
		keys, err := c.store.Keys(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
	}
	return out, nil
}

func (c *CacheInvalidator) InvalidateUserNow(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.store.Delete(ctx, cache.DashboardKey(userID), cache.AchievementsKey(userID))
	if _, perr := c.store.DeleteByPattern(ctx, cache.RecommendationsPattern(userID)); perr != nil {
		err = errors.Join(err, perr)
	}
	return err
}

func (c *CacheInvalidator) InvalidateAllNow(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var err error
	for _, p := range cache.UserPatterns {
		if _, perr := c.store.DeleteByPattern(ctx, p); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	return err
}

func (c *CacheInvalidator) InvalidateUser(userID uuid.UUID) {
	if c == nil || c.store == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.InvalidateUserNow(context.Background(), userID); err != nil {
			c.log.Warn("cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}()
}

func (c *CacheInvalidator) InvalidateAll() {
	if c == nil || c.store == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.InvalidateAllNow(context.Background()); err != nil {
			c.log.Warn("cache invalidation failed", zap.String("scope", "all"), zap.Error(err))
		}
	}()
}

// Wait blocks until pending async invalidations finish.
func (c *CacheInvalidator) Wait() {
	if c == nil {
		return
	}
	c.wg.Wait()
}
