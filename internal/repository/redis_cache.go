package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const resolvedURLKeyPrefix = "file:url:"

// RedisURLCache implements domain.URLCache using Redis. It fronts the
// record store for the high-traffic redirect endpoint; entries are evicted
// by the deletion orchestrator before the record disappears.
type RedisURLCache struct {
	client *redis.Client
}

// NewRedisURLCache creates a new Redis URL cache
func NewRedisURLCache(client *redis.Client) *RedisURLCache {
	return &RedisURLCache{
		client: client,
	}
}

// GetResolvedURL returns the cached delivery URL for a record id, or ""
// on a cache miss.
func (r *RedisURLCache) GetResolvedURL(ctx context.Context, id string) (string, error) {
	tracer := otel.Tracer("mediadepot-cache")
	ctx, span := tracer.Start(ctx, "cache.GetResolvedURL",
		trace.WithAttributes(attribute.String("file.id", id)),
	)
	defer span.End()

	url, err := r.client.Get(ctx, resolvedURLKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return "", nil // cache miss
		}
		return "", fmt.Errorf("failed to get cached url: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return url, nil
}

// SetResolvedURL caches the delivery URL for a record id with TTL
func (r *RedisURLCache) SetResolvedURL(ctx context.Context, id string, url string, ttl time.Duration) error {
	if err := r.client.Set(ctx, resolvedURLKeyPrefix+id, url, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache url: %w", err)
	}
	return nil
}

// EvictResolvedURL drops the cached URL for a record id
func (r *RedisURLCache) EvictResolvedURL(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, resolvedURLKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to evict cached url: %w", err)
	}
	return nil
}
