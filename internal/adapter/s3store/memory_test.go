package s3store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	body := []byte("2024-01-01")
	require.NoError(t, s.Put(ctx, "public/solar/solar_last_download", body, "text/plain"))
	body[0] = 'X'

	got, err := s.Get(ctx, "public/solar/solar_last_download")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", string(got), "stored bodies are copies")
	assert.Equal(t, "text/plain", s.ContentType("public/solar/solar_last_download"))
	assert.Equal(t, []string{"public/solar/solar_last_download"}, s.Keys())
}

func TestMemoryStore_Missing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
