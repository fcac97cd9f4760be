package ui

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BusyTracker counts in-flight actions per session so the master list can
// show a busy indicator. Overlapping actions are allowed.
type BusyTracker interface {
	Begin(ctx context.Context, key string) error
	End(ctx context.Context, key string) error
	Busy(ctx context.Context, key string) bool
}

// RedisBusy stores busy counters in Redis so every instance sees them.
type RedisBusy struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBusy constructs a Redis backed tracker. The ttl bounds how long a
// counter survives a crashed request.
func NewRedisBusy(client *redis.Client, ttl time.Duration) *RedisBusy {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisBusy{client: client, ttl: ttl}
}

func (b *RedisBusy) redisKey(key string) string {
	return "fuelcast:busy:" + key
}

// Begin increments the counter.
func (b *RedisBusy) Begin(ctx context.Context, key string) error {
	pipe := b.client.TxPipeline()
	pipe.Incr(ctx, b.redisKey(key))
	pipe.Expire(ctx, b.redisKey(key), b.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// End decrements the counter and drops it at zero.
func (b *RedisBusy) End(ctx context.Context, key string) error {
	n, err := b.client.Decr(ctx, b.redisKey(key)).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return b.client.Del(ctx, b.redisKey(key)).Err()
	}
	return nil
}

// Busy reports whether at least one action is running.
func (b *RedisBusy) Busy(ctx context.Context, key string) bool {
	n, err := b.client.Get(ctx, b.redisKey(key)).Int64()
	return err == nil && n > 0
}

// MemoryBusy is an in-process tracker.
type MemoryBusy struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryBusy returns an empty tracker.
func NewMemoryBusy() *MemoryBusy {
	return &MemoryBusy{counts: make(map[string]int)}
}

// Begin increments the counter.
func (b *MemoryBusy) Begin(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[key]++
	return nil
}

// End decrements the counter.
func (b *MemoryBusy) End(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counts[key] <= 1 {
		delete(b.counts, key)
		return nil
	}
	b.counts[key]--
	return nil
}

// Busy reports whether at least one action is running.
func (b *MemoryBusy) Busy(_ context.Context, key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[key] > 0
}
