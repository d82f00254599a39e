package s3store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

func TestCoordinateCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cache := NewCoordinateCache(store, "public/openweathermap/")

	_, err := cache.Get(ctx, "cities.json")
	require.ErrorIs(t, err, domain.ErrNotFound)

	coords := domain.Coordinates{"Annecy": {Lat: 45.9, Lon: 6.12}}
	require.NoError(t, cache.Put(ctx, "cities.json", coords))
	assert.Equal(t, "application/json", store.ContentType("public/openweathermap/cities.json"))

	got, err := cache.Get(ctx, "cities.json")
	require.NoError(t, err)
	assert.Equal(t, coords, got)
}

func TestCoordinateCache_ReadsStringCoordinates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "cities.json", []byte(`{"Nyons":{"lat":"44.36","lon":"5.14"}}`), ""))

	got, err := NewCoordinateCache(store, "").Get(ctx, "cities.json")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinate(44.36), got["Nyons"].Lat)
}

func TestCoordinateCache_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "cities.json", []byte(`not json`), ""))

	_, err := NewCoordinateCache(store, "").Get(ctx, "cities.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
