package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// noopValkeyCache provides an in-memory, process-local fallback that satisfies
// ValkeyCache when the external cache is unavailable. It is best-effort and
// intended for development and degraded operation; data is not shared across
// replicas and is lost on restart.
type noopValkeyCache struct {
	m         map[string]noopEntry
	mu        sync.RWMutex
	logger    logger.Logger
	sweeps    int
	sweepRate int
}

type noopEntry struct {
	data      []byte
	expiresAt time.Time
}

// defaultSweepRate bounds how often Set scans the whole map for expired
// entries. Keys that are written once and never read again (rate-limit
// windows, readiness probes) would otherwise accumulate for the life of the
// process.
const defaultSweepRate = 64

func NewNoopValkeyCache(log logger.Logger) ValkeyCache {
	log.Warn("Valkey cache unavailable; using in-memory fallback (noop)")
	return &noopValkeyCache{m: make(map[string]noopEntry), logger: log, sweepRate: defaultSweepRate}
}

func (n *noopValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	e, ok := n.m[key]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		n.mu.Lock()
		delete(n.m, key)
		n.mu.Unlock()
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return e.data, nil
}

func (n *noopValkeyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		jb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b = jb
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	n.mu.Lock()
	n.m[key] = noopEntry{data: b, expiresAt: exp}
	n.sweeps++
	if n.sweeps >= n.sweepRate {
		n.sweeps = 0
		n.sweepExpiredLocked(time.Now())
	}
	n.mu.Unlock()
	return nil
}

// sweepExpiredLocked drops entries past their deadline. Caller holds mu.
func (n *noopValkeyCache) sweepExpiredLocked(now time.Time) {
	for key, e := range n.m {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(n.m, key)
		}
	}
}

func (n *noopValkeyCache) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) CacheAnalysisResult(ctx context.Context, analysisKey string, result interface{}, ttl time.Duration) error {
	return n.Set(ctx, "analysis_cache:"+analysisKey, result, ttl)
}

func (n *noopValkeyCache) GetCachedAnalysisResult(ctx context.Context, analysisKey string) ([]byte, error) {
	return n.Get(ctx, "analysis_cache:"+analysisKey)
}
