// Package querycache is the client-facing response cache keyed by logical
// query identity. Mutating operations declare which identities they
// invalidate; invalidation is a best-effort signal to refetch, not an
// ordering barrier.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "query:"

// Cache wraps Redis based caching of query results.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New instantiates the cache helper. A nil client degrades to loader-only
// behavior so call sites need no nil checks.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Key composes a logical query identity from its parts.
func Key(parts ...string) string {
	return keyPrefix + strings.Join(parts, ":")
}

// Fetch loads a cached value into dest, populating the cache from loader on
// a miss. Cache transport failures fall back to the loader; a stale or
// corrupt payload is treated as a miss.
func (c *Cache) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("querycache: loader required")
	}
	if c == nil || c.client == nil {
		return c.loadInto(ctx, dest, loader)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(payload, dest); unmarshalErr == nil {
			return nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		if c.logger != nil {
			c.logger.Warn("query cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return c.loadInto(ctx, dest, loader)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("querycache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("query cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate marks the given logical identities stale. Fire-and-forget: a
// failed invalidation is logged, never surfaced, and the entries expire by
// TTL anyway.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		if c.logger != nil {
			c.logger.Warn("query cache invalidation failed",
				slog.String("keys", strings.Join(keys, ",")), slog.Any("error", err))
		}
	}
}

// InvalidatePrefix drops every entry under a logical identity prefix, for
// list queries whose full identity includes paging and filter state.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		if c.logger != nil {
			c.logger.Warn("query cache scan failed", slog.String("prefix", prefix), slog.Any("error", err))
		}
		return
	}
	if len(keys) > 0 {
		c.Invalidate(ctx, keys...)
	}
}

func (c *Cache) loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("querycache: marshal: %w", err)
	}
	return json.Unmarshal(raw, dest)
}
