package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pawonlab/stockwise/internal/config"
	"github.com/pawonlab/stockwise/internal/engine/analyzer"
)

const (
	insightsKeyPrefix     = "stockwise:analysis"
	insightsScanBatchSize = 100
)

// InsightsCache stores per-ingredient analysis bundles. Replaying a long
// ledger for every request is wasteful; entries are invalidated whenever a
// transaction lands for the ingredient.
type InsightsCache interface {
	Get(ctx context.Context, ingredientID string) (analyzer.Analysis, bool, error)
	Set(ctx context.Context, analysis analyzer.Analysis) error
	Invalidate(ctx context.Context, ingredientID string) error
	InvalidateAll(ctx context.Context) error
}

type redisInsightsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopInsightsCache struct{}

func NewInsightsCache(cfg config.CacheConfig) (InsightsCache, error) {
	if !cfg.Enabled {
		return &noopInsightsCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisInsightsCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopInsightsCache() InsightsCache {
	return &noopInsightsCache{}
}

func (c *redisInsightsCache) Get(ctx context.Context, ingredientID string) (analyzer.Analysis, bool, error) {
	payload, err := c.client.Get(ctx, insightsKey(ingredientID)).Bytes()
	if err == redis.Nil {
		return analyzer.Analysis{}, false, nil
	}
	if err != nil {
		return analyzer.Analysis{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var analysis analyzer.Analysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return analyzer.Analysis{}, false, fmt.Errorf("decode analysis cache: %w", err)
	}

	return analysis, true, nil
}

func (c *redisInsightsCache) Set(ctx context.Context, analysis analyzer.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis cache: %w", err)
	}

	if err := c.client.Set(ctx, insightsKey(analysis.Ingredient.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisInsightsCache) Invalidate(ctx context.Context, ingredientID string) error {
	return c.client.Del(ctx, insightsKey(ingredientID)).Err()
}

func (c *redisInsightsCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, insightsKeyPrefix, insightsScanBatchSize)
}

func (n *noopInsightsCache) Get(ctx context.Context, ingredientID string) (analyzer.Analysis, bool, error) {
	return analyzer.Analysis{}, false, nil
}

func (n *noopInsightsCache) Set(ctx context.Context, analysis analyzer.Analysis) error {
	return nil
}

func (n *noopInsightsCache) Invalidate(ctx context.Context, ingredientID string) error {
	return nil
}

func (n *noopInsightsCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func insightsKey(ingredientID string) string {
	return fmt.Sprintf("%s:%s", insightsKeyPrefix, ingredientID)
}
