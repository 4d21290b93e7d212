package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gaesaju/gaesaju/ai"
)

// Config tunes the response cache.
type Config struct {
	// TTL after which a local entry is considered expired.
	TTL time.Duration

	// MaxEntries bounds the local tier; the oldest entry is evicted when
	// exceeded.
	MaxEntries int

	// EnableRedis adds a shared second tier behind the same interface.
	// Redis failures never fail the request path.
	EnableRedis bool

	// RedisTTL for the shared tier.
	RedisTTL time.Duration

	// KeyPrefix namespaces redis keys.
	KeyPrefix string
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		TTL:        time.Hour,
		MaxEntries: 1000,
		RedisTTL:   6 * time.Hour,
		KeyPrefix:  "gaesaju:ai:interp:",
	}
}

// Stats is the operational snapshot exposed on the diagnostic route.
type Stats struct {
	Count      int     `json:"count"`
	MaxEntries int     `json:"maxEntries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hitRate"`
}

type entry struct {
	response  *ai.InterpretationResponse
	createdAt time.Time
	expiresAt time.Time
}

// ResponseCache maps a normalized request fingerprint to a previously
// computed interpretation so identical requests skip the paid provider
// call. The local tier is authoritative for stats; Redis is a best-effort
// shared tier.
type ResponseCache struct {
	config *Config
	rdb    *redis.Client
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   []string // fingerprints in creation order, oldest first

	hits   atomic.Int64
	misses atomic.Int64

	group singleflight.Group

	now func() time.Time // swapped in tests
}

// New creates a ResponseCache. rdb may be nil when the Redis tier is
// disabled.
func New(config *Config, rdb *redis.Client, logger *zap.Logger) *ResponseCache {
	if config == nil {
		config = DefaultConfig()
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}

	return &ResponseCache{
		config:  config,
		rdb:     rdb,
		logger:  logger,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Fingerprint derives the stable cache key from the request's semantic
// fields. Volatile metadata never participates, so two field-for-field
// identical requests always collide.
func Fingerprint(req *ai.InterpretationRequest) string {
	data, _ := json.Marshal(struct {
		SajuResult  any `json:"sajuResult"`
		UserProfile any `json:"userProfile,omitempty"`
	}{
		SajuResult:  req.SajuResult,
		UserProfile: req.UserProfile,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for the request, if present and fresh.
// The returned copy carries Metadata.Cached = true.
func (c *ResponseCache) Get(ctx context.Context, req *ai.InterpretationRequest) (*ai.InterpretationResponse, bool) {
	key := Fingerprint(req)

	if resp, ok := c.getLocal(key); ok {
		c.hits.Add(1)
		return markCached(resp), true
	}

	if c.config.EnableRedis && c.rdb != nil {
		if resp, ok := c.getRedis(ctx, key); ok {
			c.hits.Add(1)
			c.storeLocal(key, resp)
			return markCached(resp), true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores the response under the request's fingerprint, evicting the
// oldest local entry when the bound is exceeded.
func (c *ResponseCache) Set(ctx context.Context, req *ai.InterpretationRequest, resp *ai.InterpretationResponse) {
	key := Fingerprint(req)
	c.storeLocal(key, resp)

	if c.config.EnableRedis && c.rdb != nil {
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := c.rdb.Set(ctx, c.config.KeyPrefix+key, data, c.config.RedisTTL).Err(); err != nil {
			c.logger.Warn("redis cache set failed", zap.Error(err))
		}
	}
}

// GetOrCompute deduplicates concurrent misses for the same fingerprint:
// only one caller runs compute, the rest share its result. Callers that
// don't need in-flight dedup use Get/Set directly.
func (c *ResponseCache) GetOrCompute(ctx context.Context, req *ai.InterpretationRequest, compute func() (*ai.InterpretationResponse, error)) (*ai.InterpretationResponse, bool, error) {
	if resp, ok := c.Get(ctx, req); ok {
		return resp, true, nil
	}

	key := Fingerprint(req)
	v, err, shared := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*ai.InterpretationResponse), shared, nil
}

// Stats returns the operational snapshot.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	count := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	s := Stats{
		Count:      count,
		MaxEntries: c.config.MaxEntries,
		Hits:       hits,
		Misses:     misses,
	}
	if hits+misses > 0 {
		s.HitRate = float64(hits) / float64(hits+misses)
	}
	return s
}

func (c *ResponseCache) getLocal(key string) (*ai.InterpretationResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.dropFromOrder(key)
		return nil, false
	}
	return e.response, true
}

func (c *ResponseCache) storeLocal(key string, resp *ai.InterpretationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.dropFromOrder(key)
	} else if len(c.entries) >= c.config.MaxEntries {
		// Evict the oldest-created entry.
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	now := c.now()
	c.entries[key] = &entry{
		response:  resp,
		createdAt: now,
		expiresAt: now.Add(c.config.TTL),
	}
	c.order = append(c.order, key)
}

// dropFromOrder must be called with the mutex held.
func (c *ResponseCache) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *ResponseCache) getRedis(ctx context.Context, key string) (*ai.InterpretationResponse, bool) {
	data, err := c.rdb.Get(ctx, c.config.KeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var resp ai.InterpretationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// markCached returns a shallow copy with the cached flag set, leaving the
// stored response untouched.
func markCached(resp *ai.InterpretationResponse) *ai.InterpretationResponse {
	out := *resp
	out.Metadata.Cached = true
	return &out
}
