package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/procure-sim/internal/models"
)

// Cache stores the latest market snapshot per category in Redis so that
// read-heavy endpoints do not hit Postgres on every request.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps an existing Redis client. A zero ttl means snapshots
// never expire and are only replaced by the next tick.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// NewCacheFromAddress connects to Redis and verifies the connection.
func NewCacheFromAddress(address, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewCache(client, ttl), nil
}

func cacheKey(category string) string {
	return "market:" + category
}

// Get returns the cached snapshot for a category, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, category string) (*models.MarketData, error) {
	raw, err := c.client.Get(ctx, cacheKey(category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read market cache: %w", err)
	}

	var data models.MarketData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode market cache: %w", err)
	}
	return &data, nil
}

// Set stores a snapshot for its category.
func (c *Cache) Set(ctx context.Context, data *models.MarketData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode market cache: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(data.Category), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write market cache: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
