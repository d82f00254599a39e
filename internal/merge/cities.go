package merge

import "github.com/renergies99/solar-forecast-etl/internal/domain"

// CityWeather folds fragments into dst. Cities missing from dst are added;
// cities already present get the fragment's observations appended, skipping
// timestamps they already hold. It returns the number of observations added.
func CityWeather(dst domain.CityWeatherSet, fragments ...domain.CityWeatherSet) int {
	added := 0
	for _, frag := range fragments {
		for city, incoming := range frag {
			if incoming == nil {
				continue
			}
			existing, ok := dst[city]
			if !ok {
				existing = &domain.CityWeather{Lat: incoming.Lat, Lon: incoming.Lon, Data: []domain.Observation{}}
				dst[city] = existing
			}
			added += appendObservations(existing, incoming.Data)
		}
	}
	return added
}

func appendObservations(cw *domain.CityWeather, obs []domain.Observation) int {
	seen := make(map[int64]bool, len(cw.Data))
	for _, o := range cw.Data {
		seen[o.Dt] = true
	}
	added := 0
	for _, o := range obs {
		if seen[o.Dt] {
			continue
		}
		seen[o.Dt] = true
		cw.Data = append(cw.Data, o)
		added++
	}
	return added
}
