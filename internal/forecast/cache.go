package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	versionKey = "forecast:version"
	// BumpChannel announces a new cache version to every instance.
	BumpChannel = "forecast.bump"
)

// Cache stores entity reads in Redis. Keys embed a global version, so a
// single INCR retires every cached read after an action rewrote the tables.
// A nil *Cache reads through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	flight singleflight.Group
}

// NewCache returns a cache whose entries expire after ttl.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current generation, starting at 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("cache: init version: %w", err)
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil {
		return 0, fmt.Errorf("cache: read version: %w", err)
	}
	return ver, nil
}

// Bump retires every cached read and tells the other instances.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return fmt.Errorf("cache: bump: %w", err)
	}
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to bumps and calls onBump with each new
// version until ctx ends.
func (c *Cache) ListenForInvalidation(ctx context.Context, onBump func(version int64)) error {
	if !c.enabled() {
		return nil
	}
	sub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("cache: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = sub.Close() }()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil || onBump == nil {
					continue
				}
				onBump(ver)
			}
		}
	}()
	return nil
}

// fetch returns the cached value for kind/id or loads and stores it.
// Concurrent misses on one key share a single load. Load errors are not
// cached.
func fetch[T any](ctx context.Context, c *Cache, kind, id string, load func(context.Context) (T, error)) (T, error) {
	if !c.enabled() {
		return load(ctx)
	}
	var zero T
	ver, err := c.Version(ctx)
	if err != nil {
		return zero, err
	}
	key := fmt.Sprintf("forecast:v%d:%s:%s", ver, kind, id)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, fmt.Errorf("cache: decode %s: %w", key, err)
		}
		return out, nil
	} else if !errors.Is(err, redis.Nil) {
		return zero, fmt.Errorf("cache: get %s: %w", key, err)
	}

	value, err, _ := c.flight.Do(key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(loaded)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, fmt.Errorf("cache: set %s: %w", key, err)
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}
