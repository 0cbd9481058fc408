// Package cache holds recent definitive registry outcomes so repeat
// verifications of the same document do not hammer external registries.
//
// Only definitive answers are cached. A degraded "unknown" is never stored,
// so it can never mask a later explicit answer.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"

	platformredis "veridoc/internal/platform/redis"
	"veridoc/pkg/platform/sentinel"
)

// OutcomeCache stores per-(reference, registry) verification outcomes with a
// short TTL.
type OutcomeCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

// New constructs an OutcomeCache. A nil redis client yields a disabled cache
// whose lookups always miss, so callers need no nil checks.
func New(client *platformredis.Client, ttl time.Duration) *OutcomeCache {
	return &OutcomeCache{client: client, ttl: ttl}
}

func key(reference, registryName string) string {
	return fmt.Sprintf("veridoc:outcome:%s:%s", reference, registryName)
}

// Get returns the cached verified flag for the pair, or sentinel.ErrNotFound
// on a miss.
func (c *OutcomeCache) Get(ctx context.Context, reference, registryName string) (bool, error) {
	if c.client == nil {
		return false, sentinel.ErrNotFound
	}
	raw, err := c.client.Get(ctx, key(reference, registryName)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, sentinel.ErrNotFound
		}
		return false, fmt.Errorf("outcome cache get: %w", err)
	}
	verified, err := strconv.ParseBool(raw)
	if err != nil {
		return false, sentinel.ErrNotFound
	}
	return verified, nil
}

// Put stores a definitive outcome for the pair.
func (c *OutcomeCache) Put(ctx context.Context, reference, registryName string, verified bool) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key(reference, registryName), strconv.FormatBool(verified), c.ttl).Err(); err != nil {
		return fmt.Errorf("outcome cache put: %w", err)
	}
	return nil
}

// Invalidate drops all cached outcomes for a reference. Called on
// revocation so stale affirmative outcomes cannot outlive the record state.
func (c *OutcomeCache) Invalidate(ctx context.Context, reference string, registryNames []string) error {
	if c.client == nil {
		return nil
	}
	keys := make([]string, 0, len(registryNames))
	for _, name := range registryNames {
		keys = append(keys, key(reference, name))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("outcome cache invalidate: %w", err)
	}
	return nil
}
