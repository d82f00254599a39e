package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// readTable loads a dated CSV table. A missing object yields an empty table.
func readTable(ctx context.Context, store domain.ObjectStore, key string) (domain.Table, error) {
	body, err := store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, err
	}
	t, err := domain.ReadTable(bytes.NewReader(body))
	if err != nil {
		return domain.Table{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return t, nil
}

func writeTable(ctx context.Context, store domain.ObjectStore, key string, t *domain.Table) error {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, buf.Bytes(), "text/csv")
}

func readFrame(ctx context.Context, store domain.ObjectStore, key string) (domain.Frame, error) {
	body, err := store.Get(ctx, key)
	if err != nil {
		return domain.Frame{}, err
	}
	f, err := domain.ReadFrame(bytes.NewReader(body), ',')
	if err != nil {
		return domain.Frame{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return f, nil
}

func writeFrame(ctx context.Context, store domain.ObjectStore, key string, f *domain.Frame) error {
	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, buf.Bytes(), "text/csv")
}

// readCityWeather loads a city-weather document. A missing object yields an
// empty set.
func readCityWeather(ctx context.Context, store domain.ObjectStore, key string) (domain.CityWeatherSet, error) {
	body, err := store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return make(domain.CityWeatherSet), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCityWeather(key, body)
}

func decodeCityWeather(key string, body []byte) (domain.CityWeatherSet, error) {
	set := make(domain.CityWeatherSet)
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return set, nil
}

// writeCityWeather stores set as JSON. Every city's data is written as a
// list, empty when no sample was collected.
func writeCityWeather(ctx context.Context, store domain.ObjectStore, key string, set domain.CityWeatherSet) error {
	for _, cw := range set {
		if cw != nil && cw.Data == nil {
			cw.Data = []domain.Observation{}
		}
	}
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, body, "application/json")
}
