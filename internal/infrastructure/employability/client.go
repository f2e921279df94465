package employability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/domain"
	"skill-match/internal/infrastructure/cache"
	"skill-match/internal/pkg/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Provider returns a candidate's employability in [0,1]. The value is advisory, so
// implementations degrade to 0 instead of failing a scoring run.
type Provider interface {
	Score(ctx context.Context, candidateID uuid.UUID) float64
}

type Client struct {
	http      *resty.Client
	path      string
	scorePath string
	cache     cache.Store
	ttl       time.Duration
	log       *zap.Logger
}

// NewClient returns nil when no base URL is configured; a nil *Client scores everyone 0.
func NewClient(cfg config.EmployabilityConfig, store cache.Store, log *zap.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	path := strings.TrimSpace(cfg.PathTemplate)
	if path == "" {
		path = "/candidates/{candidate_id}/employability"
	}
	scorePath := strings.TrimSpace(cfg.ScorePath)
	if scorePath == "" {
		scorePath = "data.score"
	}

	return &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		path:      path,
		scorePath: scorePath,
		cache:     store,
		ttl:       cfg.CacheTTL,
		log:       logger.OrNop(log),
	}
}

func (c *Client) Score(ctx context.Context, candidateID uuid.UUID) float64 {
	if c == nil {
		return 0
	}

	key := cache.EmployabilityKey(candidateID)
	if c.cache != nil {
		var cached float64
		if ok, err := c.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached
		}
	}

	v, err := c.fetch(ctx, candidateID)
	if err != nil {
		c.log.Warn("employability lookup failed",
			zap.String("candidate_id", candidateID.String()),
			zap.Error(err),
		)
		return 0
	}

	if c.cache != nil {
		_ = c.cache.SetJSON(ctx, key, v, c.ttl)
	}
	return v
}

func (c *Client) fetch(ctx context.Context, candidateID uuid.UUID) (float64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("candidate_id", candidateID.String()).
		Get(c.path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrExternalDependencyUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("%w: employability status %d", domain.ErrExternalDependencyUnavailable, resp.StatusCode())
	}

	res := gjson.GetBytes(resp.Body(), c.scorePath)
	if !res.Exists() {
		return 0, fmt.Errorf("%w: employability response has no %q", domain.ErrValidation, c.scorePath)
	}
	return normalize(res.Float()), nil
}

// normalize accepts either a fraction or a percentage.
func normalize(v float64) float64 {
	if v > 1 && v <= 100 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
