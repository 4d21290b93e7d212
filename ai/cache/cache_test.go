package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/saju"
)

func testRequest(day string) *ai.InterpretationRequest {
	return &ai.InterpretationRequest{
		SajuResult: &saju.Result{
			Pillars: saju.Pillars{
				Year:  saju.Pillar{Stem: "gap", Branch: "ja"},
				Month: saju.Pillar{Stem: "eul", Branch: "chuk"},
				Day:   saju.Pillar{Stem: day, Branch: "in"},
				Hour:  saju.Pillar{Stem: "jeong", Branch: "myo"},
			},
			Elements:     map[string]int{"wood": 3, "fire": 2},
			DominantElem: "wood",
		},
		UserProfile: &ai.UserProfile{Age: 30, Tone: ai.ToneWarm},
	}
}

func testResponse(model string) *ai.InterpretationResponse {
	return &ai.InterpretationResponse{
		Enhanced: ai.EnhancedInterpretation{
			Personality: "curious and persistent",
			Strengths:   []string{"focus", "empathy", "grit"},
			Summary:     "a strong year ahead",
		},
		Metadata: ai.ResponseMetadata{Model: model, ProcessingTimeMs: 1200},
	}
}

func newLocalCache(cfg *Config) *ResponseCache {
	return New(cfg, nil, zap.NewNop())
}

// ---------------------------------------------------------------------------
// Fingerprint
// ---------------------------------------------------------------------------

func TestFingerprint_StableForEqualRequests(t *testing.T) {
	a := Fingerprint(testRequest("byeong"))
	b := Fingerprint(testRequest("byeong"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "sha256 hex")
}

func TestFingerprint_DiffersAcrossRequests(t *testing.T) {
	a := Fingerprint(testRequest("byeong"))
	b := Fingerprint(testRequest("gyeong"))
	assert.NotEqual(t, a, b)
}

func TestFingerprint_ProfileParticipates(t *testing.T) {
	withProfile := testRequest("byeong")
	withoutProfile := testRequest("byeong")
	withoutProfile.UserProfile = nil

	assert.NotEqual(t, Fingerprint(withProfile), Fingerprint(withoutProfile))
}

// ---------------------------------------------------------------------------
// Get / Set
// ---------------------------------------------------------------------------

func TestCache_MissThenHit(t *testing.T) {
	c := newLocalCache(nil)
	ctx := context.Background()
	req := testRequest("byeong")

	_, ok := c.Get(ctx, req)
	assert.False(t, ok)

	c.Set(ctx, req, testResponse("gemini-2.0-flash"))

	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, "gemini-2.0-flash", got.Metadata.Model)
	assert.True(t, got.Metadata.Cached, "cache hits are flagged")
}

func TestCache_StoredResponseNotMutated(t *testing.T) {
	c := newLocalCache(nil)
	ctx := context.Background()
	req := testRequest("byeong")
	resp := testResponse("gpt-4o-mini")

	c.Set(ctx, req, resp)
	_, ok := c.Get(ctx, req)
	require.True(t, ok)

	assert.False(t, resp.Metadata.Cached, "the caller's response is returned as a copy")
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newLocalCache(&Config{TTL: time.Hour, MaxEntries: 10})
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return t0 }

	ctx := context.Background()
	req := testRequest("byeong")
	c.Set(ctx, req, testResponse("m"))

	c.now = func() time.Time { return t0.Add(59 * time.Minute) }
	_, ok := c.Get(ctx, req)
	assert.True(t, ok)

	c.now = func() time.Time { return t0.Add(61 * time.Minute) }
	_, ok = c.Get(ctx, req)
	assert.False(t, ok, "entries expire after the TTL")
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := newLocalCache(&Config{TTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	first := testRequest("a")
	second := testRequest("b")
	third := testRequest("c")

	c.Set(ctx, first, testResponse("m1"))
	c.Set(ctx, second, testResponse("m2"))
	c.Set(ctx, third, testResponse("m3"))

	_, ok := c.Get(ctx, first)
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = c.Get(ctx, second)
	assert.True(t, ok)
	_, ok = c.Get(ctx, third)
	assert.True(t, ok)
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c := newLocalCache(&Config{TTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	first := testRequest("a")
	second := testRequest("b")

	c.Set(ctx, first, testResponse("m1"))
	c.Set(ctx, second, testResponse("m2"))
	c.Set(ctx, second, testResponse("m2-updated"))

	_, ok := c.Get(ctx, first)
	assert.True(t, ok, "re-storing an existing key evicts nothing")

	got, ok := c.Get(ctx, second)
	require.True(t, ok)
	assert.Equal(t, "m2-updated", got.Metadata.Model)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func TestCache_Stats(t *testing.T) {
	c := newLocalCache(&Config{TTL: time.Hour, MaxEntries: 100})
	ctx := context.Background()
	req := testRequest("byeong")

	c.Get(ctx, req) // miss
	c.Set(ctx, req, testResponse("m"))
	c.Get(ctx, req) // hit
	c.Get(ctx, req) // hit

	s := c.Stats()
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 100, s.MaxEntries)
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.667, s.HitRate, 0.001)
}

// ---------------------------------------------------------------------------
// Redis tier
// ---------------------------------------------------------------------------

func newRedisCache(t *testing.T, cfg *Config) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.EnableRedis = true
	return New(cfg, rdb, zap.NewNop()), mr
}

func TestCache_RedisBackfillsLocalTier(t *testing.T) {
	c, _ := newRedisCache(t, nil)
	ctx := context.Background()
	req := testRequest("byeong")

	c.Set(ctx, req, testResponse("m"))

	// Drop the local tier; the shared tier still has the entry.
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.order = nil
	c.mu.Unlock()

	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.True(t, got.Metadata.Cached)

	// The hit repopulated the local tier.
	assert.Equal(t, 1, c.Stats().Count)
}

func TestCache_RedisFailureDegradesGracefully(t *testing.T) {
	c, mr := newRedisCache(t, nil)
	ctx := context.Background()
	req := testRequest("byeong")

	mr.Close()

	// Writes and reads fall back to the local tier only.
	c.Set(ctx, req, testResponse("m"))
	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, "m", got.Metadata.Model)
}

func TestCache_RedisCorruptEntryIgnored(t *testing.T) {
	c, mr := newRedisCache(t, nil)
	ctx := context.Background()
	req := testRequest("byeong")

	require.NoError(t, mr.Set(c.config.KeyPrefix+Fingerprint(req), "not json"))

	_, ok := c.Get(ctx, req)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// GetOrCompute
// ---------------------------------------------------------------------------

func TestGetOrCompute_ComputesOnceForConcurrentMisses(t *testing.T) {
	c := newLocalCache(nil)
	ctx := context.Background()
	req := testRequest("byeong")

	var computes int
	var mu sync.Mutex
	gate := make(chan struct{})

	compute := func() (*ai.InterpretationResponse, error) {
		mu.Lock()
		computes++
		mu.Unlock()
		<-gate
		return testResponse("m"), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*ai.InterpretationResponse, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _, err := c.GetOrCompute(ctx, req, compute)
			assert.NoError(t, err)
			results[i] = resp
		}(i)
	}

	// Give the goroutines time to pile up on the singleflight key.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, computes, "concurrent misses share one computation")
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "m", r.Metadata.Model)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := newLocalCache(nil)
	ctx := context.Background()
	req := testRequest("byeong")

	_, _, err := c.GetOrCompute(ctx, req, func() (*ai.InterpretationResponse, error) {
		return nil, fmt.Errorf("provider down")
	})
	require.Error(t, err)

	_, ok := c.Get(ctx, req)
	assert.False(t, ok, "failures leave no cache entry")
}
