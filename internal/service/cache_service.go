package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

const (
	scheduleKeyPrefix = "schedule"
	// Kept outside the schedule:* pattern so invalidation never resets it.
	scheduleGenerationKey = "schedule_generation"
)

// cacheStore abstracts persistence for cached payloads.
type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService caches rendered schedule views and records hit metrics.
type CacheService struct {
	store      cacheStore
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(store cacheStore, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.store != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.store.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.store.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// Generation returns the schedule view generation. Views rendered under an older generation are never read again,
// so a reader racing a commit cannot publish its stale snapshot. ok is false when views must not be cached.
func (s *CacheService) Generation(ctx context.Context) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	gen, err := s.store.Counter(ctx, scheduleGenerationKey)
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Advance moves schedule views to a new generation. Call it after every committed mutation.
func (s *CacheService) Advance(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.store.Incr(ctx, scheduleGenerationKey); err != nil {
		s.logger.Warn("cache generation bump failed", zap.Error(err))
		return err
	}
	return nil
}

func scheduleDayKey(day time.Time, gen int64) string {
	return fmt.Sprintf("%s:day:%s:%d", scheduleKeyPrefix, day.Format(dateLayout), gen)
}

func scheduleWeekKey(start time.Time, gen int64) string {
	return fmt.Sprintf("%s:week:%s:%d", scheduleKeyPrefix, start.Format(dateLayout), gen)
}
