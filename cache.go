package plainblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eringen/plainblog/logger"
)

const feedKeyPrefix = "plainblog:feed:"

// FeedCache stores rendered feed documents (RSS, Atom, sitemap) for one
// index generation. A refresh bumps the generation, so stale entries are
// never served.
type FeedCache interface {
	Get(ctx context.Context, feed string, generation uint64) ([]byte, bool)
	Set(ctx context.Context, feed string, generation uint64, data []byte)
	Close() error
}

// MemoryFeedCache is an in-process FeedCache. It keeps entries of the latest
// generation only.
type MemoryFeedCache struct {
	mu         sync.RWMutex
	generation uint64
	entries    map[string][]byte
}

// NewMemoryFeedCache creates an empty MemoryFeedCache.
func NewMemoryFeedCache() *MemoryFeedCache {
	return &MemoryFeedCache{entries: make(map[string][]byte)}
}

func (c *MemoryFeedCache) Get(_ context.Context, feed string, generation uint64) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if generation != c.generation {
		return nil, false
	}
	data, ok := c.entries[feed]
	return data, ok
}

func (c *MemoryFeedCache) Set(_ context.Context, feed string, generation uint64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation < c.generation {
		return
	}
	if generation > c.generation {
		c.generation = generation
		c.entries = make(map[string][]byte)
	}
	c.entries[feed] = data
}

func (c *MemoryFeedCache) Close() error { return nil }

// RedisFeedCache keeps rendered feeds in Redis so several instances serving
// the same directory share them.
type RedisFeedCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisFeedCache connects to Redis and verifies the connection with a PING.
func NewRedisFeedCache(addr, password string, db int, ttl time.Duration) (*RedisFeedCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisFeedCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.WithComponent("feed-cache"),
	}, nil
}

func feedKey(feed string, generation uint64) string {
	return fmt.Sprintf("%s%s:%d", feedKeyPrefix, feed, generation)
}

func (c *RedisFeedCache) Get(ctx context.Context, feed string, generation uint64) ([]byte, bool) {
	key := feedKey(feed, generation)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisFeedCache) Set(ctx context.Context, feed string, generation uint64, data []byte) {
	key := feedKey(feed, generation)
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *RedisFeedCache) Close() error {
	return c.rdb.Close()
}

// newFeedCache picks Redis when configured and reachable, memory otherwise.
func newFeedCache(cfg SiteConfig, log *slog.Logger) FeedCache {
	if cfg.RedisAddr == "" {
		return NewMemoryFeedCache()
	}
	c, err := NewRedisFeedCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.FeedCacheTTL)
	if err != nil {
		log.Warn("redis unavailable, using in-memory feed cache", "addr", cfg.RedisAddr, "error", err)
		return NewMemoryFeedCache()
	}
	log.Info("feed cache connected to redis", "addr", cfg.RedisAddr)
	return c
}
