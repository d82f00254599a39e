package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// CacheLayer is one named backing of a TieredCache.
type CacheLayer struct {
	Name  string
	Cache domain.CoordinateCache
}

// TieredCache checks its layers in order and back-fills the faster layers on
// a hit in a slower one. Puts go to every layer.
type TieredCache struct {
	layers  []CacheLayer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTieredCache creates a cache over layers, fastest first.
func NewTieredCache(logger *slog.Logger, metrics *observability.Metrics, layers ...CacheLayer) *TieredCache {
	return &TieredCache{layers: layers, logger: logger, metrics: metrics}
}

func (t *TieredCache) Get(ctx context.Context, key string) (domain.Coordinates, error) {
	for i, l := range t.layers {
		coords, err := l.Cache.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			t.metrics.GeocodeCache.WithLabelValues(l.Name, "miss").Inc()
			continue
		}
		if err != nil {
			// An unavailable layer degrades to the next one.
			t.logger.Warn("coordinate cache read failed", "layer", l.Name, "key", key, "error", err)
			continue
		}
		t.metrics.GeocodeCache.WithLabelValues(l.Name, "hit").Inc()
		for _, faster := range t.layers[:i] {
			if err := faster.Cache.Put(ctx, key, coords); err != nil {
				t.logger.Warn("coordinate cache back-fill failed", "layer", faster.Name, "key", key, "error", err)
			}
		}
		return coords, nil
	}
	return nil, domain.ErrNotFound
}

// Put writes every layer and returns the first failure.
func (t *TieredCache) Put(ctx context.Context, key string, coords domain.Coordinates) error {
	var first error
	for _, l := range t.layers {
		if err := l.Cache.Put(ctx, key, coords); err != nil {
			t.logger.Warn("coordinate cache write failed", "layer", l.Name, "key", key, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// MemoryCache is an in-process CoordinateCache safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]domain.Coordinates
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]domain.Coordinates)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (domain.Coordinates, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *MemoryCache) Put(_ context.Context, key string, coords domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = coords
	return nil
}
