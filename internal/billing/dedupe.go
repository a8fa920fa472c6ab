package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids so provider retries skip repeated
// writes.
type Deduper interface {
	// FirstSeen records id and reports whether it had not been seen before.
	FirstSeen(ctx context.Context, id string) (bool, error)
	// Forget drops id so a failed event can be processed again.
	Forget(ctx context.Context, id string)
}

// NoopDeduper treats every event as new.
type NoopDeduper struct{}

func (NoopDeduper) FirstSeen(context.Context, string) (bool, error) { return true, nil }
func (NoopDeduper) Forget(context.Context, string)                   {}

// MemoryDeduper is a process-local Deduper.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper creates an empty MemoryDeduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = struct{}{}
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

// RedisDeduper shares processed event ids between instances. Keys expire
// after ttl, which should exceed the provider's retry window.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a RedisDeduper on client.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl == 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{client: client, prefix: "linkaday:stripe:event:", ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, id string) {
	d.client.Del(ctx, d.prefix+id) //nolint:errcheck
}

// ConnectRedis parses url, connects and pings with a 5 second timeout.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
