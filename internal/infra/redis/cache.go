package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

const (
	// DefaultTTL is the default TTL for fresh reports
	DefaultTTL = 60 * time.Second

	// StaleTTL is the TTL for the stale fallback copy
	StaleTTL = 24 * time.Hour

	// KeyPrefix is the prefix for fresh report keys
	KeyPrefix = "report:"

	// StaleKeyPrefix is the prefix for stale report keys. It differs from
	// KeyPrefix so that invalidating a case leaves the fallback in place.
	StaleKeyPrefix = "report_stale:"

	clearBatch = 100
)

// ReportCache is a Redis-backed casefile.ReportCache
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

var _ casefile.ReportCache = (*ReportCache)(nil)

// NewReportCache creates a new report cache. A non-positive ttl means DefaultTTL.
func NewReportCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "report_cache"),
	}
}

// Get retrieves a fresh report
func (c *ReportCache) Get(ctx context.Context, key string) (*casefile.Report, bool, error) {
	return c.get(ctx, KeyPrefix+key, "get")
}

// Set stores a fresh report with the cache TTL
func (c *ReportCache) Set(ctx context.Context, key string, report *casefile.Report) error {
	return c.set(ctx, KeyPrefix+key, report, c.ttl, "set")
}

// GetStale retrieves the fallback copy of a report
func (c *ReportCache) GetStale(ctx context.Context, key string) (*casefile.Report, bool, error) {
	return c.get(ctx, StaleKeyPrefix+key, "get_stale")
}

// SetStale stores the fallback copy of a report (24-hour TTL)
func (c *ReportCache) SetStale(ctx context.Context, key string, report *casefile.Report) error {
	return c.set(ctx, StaleKeyPrefix+key, report, StaleTTL, "set_stale")
}

// InvalidateCase removes every fresh report of a case
func (c *ReportCache) InvalidateCase(ctx context.Context, caseID uuid.UUID) error {
	pattern := fmt.Sprintf("%s%s:*", KeyPrefix, caseID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	removed := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= clearBatch {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to invalidate case reports: %w", err)
			}
			removed += count
			pipe = c.client.Pipeline()
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to invalidate case reports: %w", err)
		}
		removed += count
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan case reports: %w", err)
	}

	c.logger.Debug("case reports invalidated", "case_id", caseID.String(), "keys", removed)
	return nil
}

func (c *ReportCache) get(ctx context.Context, key, op string) (*casefile.Report, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "operation", op, "key", key)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", op, "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get cached report: %w", err)
	}

	var report casefile.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}

	c.logger.Debug("cache hit", "operation", op, "key", key)
	return &report, true, nil
}

func (c *ReportCache) set(ctx context.Context, key string, report *casefile.Report, ttl time.Duration, op string) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", op, "key", key, "error", err)
		return fmt.Errorf("failed to set cached report: %w", err)
	}

	return nil
}
