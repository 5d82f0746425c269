package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// queryCache is the process-local LRU. Staleness is decided at read time
// from the response's generation timestamp, not at write time.
type queryCache struct {
	mu    sync.Mutex
	cache *lru.Cache[[32]byte, *Response]
	ttl   time.Duration
}

func newQueryCache(size int, ttl time.Duration) *queryCache {
	if size <= 0 {
		size = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cache, err := lru.New[[32]byte, *Response](size)
	if err != nil {
		cache, _ = lru.New[[32]byte, *Response](1000)
	}
	return &queryCache{cache: cache, ttl: ttl}
}

func (c *queryCache) get(key [32]byte) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	if time.Since(resp.GeneratedAt) > c.ttl {
		c.cache.Remove(key)
		return nil, false
	}
	return resp.copy(), true
}

func (c *queryCache) set(key [32]byte, resp *Response) {
	c.mu.Lock()
	c.cache.Add(key, resp.copy())
	c.mu.Unlock()
}

func (c *queryCache) purge() {
	c.mu.Lock()
	c.cache.Purge()
	c.mu.Unlock()
}

// SharedCache is an optional second cache tier shared across processes.
// It is consulted before the local cache; errors degrade to a miss.
type SharedCache interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error
}

// RedisCache implements SharedCache on Redis with JSON-encoded responses.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects a shared cache to the given Redis address.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "codelens:query:",
	}
}

// Get implements SharedCache.
func (r *RedisCache) Get(ctx context.Context, key string) (*Response, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, true, nil
}

// Set implements SharedCache.
func (r *RedisCache) Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// cacheKey hashes (query, limit, filters) into the local cache key.
func cacheKey(req Request) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", req.Query, req.Limit, req.Filters.key())))
}

// sharedCacheKey is the hex form used for the shared tier.
func sharedCacheKey(req Request) string {
	k := cacheKey(req)
	return fmt.Sprintf("%x", k)
}
