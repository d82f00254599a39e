// Package redis implements domain.CoordinateCache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

const keyPrefix = "solar-etl:coords:"

// CoordinateCache stores coordinate documents as JSON strings with a TTL.
type CoordinateCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewClient connects to addr. The connection is established lazily.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewCoordinateCache creates a cache on client. A zero ttl keeps keys forever.
func NewCoordinateCache(client *goredis.Client, ttl time.Duration) *CoordinateCache {
	return &CoordinateCache{client: client, ttl: ttl}
}

// Get returns domain.ErrNotFound when key is absent or expired.
func (c *CoordinateCache) Get(ctx context.Context, key string) (domain.Coordinates, error) {
	b, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var coords domain.Coordinates
	if err := json.Unmarshal(b, &coords); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return coords, nil
}

// Put stores coords under key.
func (c *CoordinateCache) Put(ctx context.Context, key string, coords domain.Coordinates) error {
	b, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("encode coordinates: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// CheckReadiness pings the server.
func (c *CoordinateCache) CheckReadiness(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *CoordinateCache) Close() error {
	return c.client.Close()
}
