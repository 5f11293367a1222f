package cache

import (
	"context"
	"time"
)

// ValkeyCache is the caching surface used by VIGIL-CORE handlers. Intelligence
// outputs are ephemeral; handlers cache the most recent results here so read
// endpoints stay cheap, and the rate limiter keeps its counters here as well.
type ValkeyCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Analysis result caching for faster fetch on read endpoints
	CacheAnalysisResult(ctx context.Context, analysisKey string, result interface{}, ttl time.Duration) error
	GetCachedAnalysisResult(ctx context.Context, analysisKey string) ([]byte, error)
}
