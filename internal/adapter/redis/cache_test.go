//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp").WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	addr, err := ctr.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)
	return addr
}

func TestCoordinateCache_Redis(t *testing.T) {
	ctx := context.Background()
	cache := NewCoordinateCache(NewClient(startRedis(t), "", 0), time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	require.NoError(t, cache.CheckReadiness(ctx))

	_, err := cache.Get(ctx, "cities.json")
	require.ErrorIs(t, err, domain.ErrNotFound)

	coords := domain.Coordinates{
		"Moulins":  {Lat: 46.56, Lon: 3.33},
		"Aurillac": {Lat: 44.93, Lon: 2.44},
	}
	require.NoError(t, cache.Put(ctx, "cities.json", coords))

	got, err := cache.Get(ctx, "cities.json")
	require.NoError(t, err)
	assert.Equal(t, coords, got)
}
