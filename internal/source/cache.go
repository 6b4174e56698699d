package source

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cetmix/towered/internal/types"
)

// cacheEntry holds a validated candidate list and when it was loaded
type cacheEntry struct {
	items       []types.Candidate
	lastRefresh time.Time
}

// DefaultSharedFetchTimeout bounds an upstream call shared by coalesced callers
const DefaultSharedFetchTimeout = 30 * time.Second

// Cached validates and caches the lists of another Source.
// Concurrent misses for the same list share one upstream call. That call
// outlives the caller that started it: cancelling one caller only stops its
// own wait.
type Cached struct {
	src     Source
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	now     func() time.Time
}

// NewCached wraps src. A zero ttl disables caching but keeps validation and coalescing.
func NewCached(src Source, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		src:     src,
		ttl:     ttl,
		timeout: DefaultSharedFetchTimeout,
		logger:  logger,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// WithFetchTimeout sets the limit for shared upstream calls
func (c *Cached) WithFetchTimeout(d time.Duration) *Cached {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Variables implements Source
func (c *Cached) Variables(ctx context.Context) ([]types.Candidate, error) {
	return c.load(ctx, "variables", c.src.Variables)
}

// Secrets implements Source
func (c *Cached) Secrets(ctx context.Context, keyType types.KeyType) ([]types.Candidate, error) {
	return c.load(ctx, "secrets:"+string(keyType), func(ctx context.Context) ([]types.Candidate, error) {
		return c.src.Secrets(ctx, keyType)
	})
}

// Invalidate drops all cached lists
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}

func (c *Cached) load(ctx context.Context, key string, fetch func(context.Context) ([]types.Candidate, error)) ([]types.Candidate, error) {
	if items, ok := c.get(key); ok {
		return slices.Clone(items), nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		raw, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		items, dropped := types.ValidateCandidates(raw)
		for _, reason := range dropped {
			c.logger.Warn("dropped candidate", "list", key, "error", reason)
		}

		c.set(key, items)
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]types.Candidate)), nil
	}
}

// get retrieves a cached list if available and fresh
func (c *Cached) get(key string) ([]types.Candidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.lastRefresh) > c.ttl {
		return nil, false
	}

	return entry.items, true
}

func (c *Cached) set(key string, items []types.Candidate) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		items:       items,
		lastRefresh: c.now(),
	}
}
