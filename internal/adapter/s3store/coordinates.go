package s3store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// CoordinateCache stores city coordinates as JSON documents in an object
// store, one object per key under prefix.
type CoordinateCache struct {
	store  domain.ObjectStore
	prefix string
}

// NewCoordinateCache creates a cache writing to prefix+key.
func NewCoordinateCache(store domain.ObjectStore, prefix string) *CoordinateCache {
	return &CoordinateCache{store: store, prefix: prefix}
}

// Get decodes the document under key. Missing objects yield domain.ErrNotFound.
func (c *CoordinateCache) Get(ctx context.Context, key string) (domain.Coordinates, error) {
	body, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		return nil, err
	}
	var coords domain.Coordinates
	if err := json.Unmarshal(body, &coords); err != nil {
		return nil, fmt.Errorf("decode %s%s: %w", c.prefix, key, err)
	}
	return coords, nil
}

// Put writes coords as JSON under key.
func (c *CoordinateCache) Put(ctx context.Context, key string, coords domain.Coordinates) error {
	body, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("encode coordinates: %w", err)
	}
	return c.store.Put(ctx, c.prefix+key, body, "application/json")
}
