package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	Name        string
	DisplayName string
}

// Found reports whether the provider matched the query.
func (r GeocodingResult) Found() bool {
	return r.Name != "" || r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a city name and country to coordinates.
	ForwardGeocode(ctx context.Context, city, country string) (GeocodingResult, error)
}

// CoordinateCache stores resolved city coordinates by key. Get returns
// ErrNotFound when the key has never been written.
type CoordinateCache interface {
	Get(ctx context.Context, key string) (Coordinates, error)
	Put(ctx context.Context, key string, coords Coordinates) error
}

// ObjectStore is the persisted artifact layer (S3 in production).
// Get returns ErrNotFound for a missing key.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
