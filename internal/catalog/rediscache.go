package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// WarmCache is an optional inter-process read-through cache for the
// static catalog tables and the (potentially large) hourly profile
// matrices. It never holds mutable state: every Get either serves from
// Redis or falls back to the loader and stores the result, and every
// stored value is immutable once written. Nil-safe: a nil *WarmCache
// behaves as "always miss, always call loader".
type WarmCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWarmCache connects to addr (host:port) with the given TTL for cached
// entries. Returns nil, nil if addr is empty — callers treat a nil
// *WarmCache as "caching disabled" rather than branching on a bool.
func NewWarmCache(addr string, ttl time.Duration) (*WarmCache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &WarmCache{client: client, ttl: ttl}, nil
}

// GetOrLoad returns the cached JSON-decoded value for key, or calls load
// and stores its result. The in-process table returned by load is always
// what callers use; the cache only avoids repeating expensive parsing
// across separate batch-runner invocations.
func GetOrLoad[T any](ctx context.Context, c *WarmCache, key string, load func() (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load()
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			return v, nil
		}
	}
	v, err := load()
	if err != nil {
		return zero, err
	}
	if encoded, encErr := json.Marshal(v); encErr == nil {
		_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
	}
	return v, nil
}

// Close releases the underlying connection pool.
func (c *WarmCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
