package merge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func record(d int, kv ...string) domain.DailyRecord {
	r := domain.NewDailyRecord(day(d))
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func TestAppendDaily_AddsOnlyNewDates(t *testing.T) {
	table := domain.Table{}
	added := AppendDaily(&table, record(2, "nb_event", "1"), record(1, "nb_event", "0", "SSN", "90"))

	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"nb_event", "SSN"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, day(1), table.Rows[0].Date, "rows are sorted by date")

	added = AppendDaily(&table, record(2, "nb_event", "9"), record(3, "nb_event", "4"))
	assert.Equal(t, 1, added)
	assert.Equal(t, "1", table.Rows[1].Get("nb_event"), "existing dates are never overwritten")
}

func TestAppendDaily_Idempotent(t *testing.T) {
	recs := []domain.DailyRecord{record(1, "a", "1"), record(2, "a", "2")}

	once := domain.Table{}
	AppendDaily(&once, recs...)

	twice := domain.Table{}
	AppendDaily(&twice, recs...)
	added := AppendDaily(&twice, recs...)

	assert.Equal(t, 0, added)
	assert.Equal(t, once, twice)
}

func TestAppendDaily_DuplicateWithinBatch(t *testing.T) {
	table := domain.Table{}
	added := AppendDaily(&table, record(1, "a", "1"), record(1, "a", "2"))

	assert.Equal(t, 1, added)
	assert.Equal(t, "1", table.Rows[0].Get("a"))
}

func TestAppendDaily_RecordWithoutKeysUsesSortedFields(t *testing.T) {
	table := domain.Table{}
	AppendDaily(&table, domain.DailyRecord{Date: day(1), Values: map[string]string{"b": "2", "a": "1"}})

	assert.Equal(t, []string{"a", "b"}, table.Columns)
}

func TestNextDate(t *testing.T) {
	fallback := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, fallback, NextDate(&domain.Table{}, fallback))

	table := domain.Table{}
	AppendDaily(&table, record(3), record(7))
	assert.Equal(t, day(8), NextDate(&table, fallback))
}

func TestDays(t *testing.T) {
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, Days(day(1), day(4)))
	assert.Empty(t, Days(day(4), day(4)))
	assert.Empty(t, Days(day(5), day(4)))
}

func obs(t *testing.T, dt int64, temp float64) domain.Observation {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"dt": dt, "temp": temp})
	require.NoError(t, err)
	o, err := domain.NewObservation(raw)
	require.NoError(t, err)
	return o
}

func dts(cw *domain.CityWeather) []int64 {
	out := make([]int64, len(cw.Data))
	for i, o := range cw.Data {
		out[i] = o.Dt
	}
	return out
}

func TestCityWeather_UnionAndDedup(t *testing.T) {
	dst := domain.CityWeatherSet{
		"Annecy": {Lat: 45.9, Lon: 6.1, Data: []domain.Observation{obs(t, 100, 1), obs(t, 200, 2)}},
	}
	frag := domain.CityWeatherSet{
		"Annecy": {Lat: 45.9, Lon: 6.1, Data: []domain.Observation{obs(t, 200, 9), obs(t, 300, 3)}},
		"Nyons":  {Lat: 44.4, Lon: 5.1, Data: []domain.Observation{obs(t, 100, 5)}},
	}

	added := CityWeather(dst, frag)

	assert.Equal(t, 2, added)
	require.Len(t, dst, 2)
	assert.Equal(t, []int64{100, 200, 300}, dts(dst["Annecy"]))
	assert.Equal(t, []int64{100}, dts(dst["Nyons"]))
	assert.Equal(t, domain.Coordinate(44.4), dst["Nyons"].Lat)

	// The kept observation for dt=200 is the one already stored.
	b, err := json.Marshal(dst["Annecy"].Data[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"dt":200,"temp":2}`, string(b))
}

func TestCityWeather_Idempotent(t *testing.T) {
	frag := domain.CityWeatherSet{
		"Moulins": {Lat: 46.5, Lon: 3.3, Data: []domain.Observation{obs(t, 1, 1), obs(t, 2, 2)}},
	}
	dst := domain.CityWeatherSet{}

	assert.Equal(t, 2, CityWeather(dst, frag))
	assert.Equal(t, 0, CityWeather(dst, frag))
	assert.Equal(t, []int64{1, 2}, dts(dst["Moulins"]))
}

func TestFrames_ColumnUnion(t *testing.T) {
	annual := domain.Frame{
		Columns: []string{"Date", "Heures", "Solaire"},
		Rows:    [][]string{{"2023-01-01", "00:00", "0"}},
	}
	current := domain.Frame{
		Columns: []string{"Date", "Heures", "Solaire", "TCH Solaire (%)"},
		Rows:    [][]string{{"2024-01-01", "00:00", "0", "1.5"}},
	}

	out := Frames(annual, current)

	assert.Equal(t, []string{"Date", "Heures", "Solaire", "TCH Solaire (%)"}, out.Columns)
	assert.Equal(t, [][]string{
		{"2023-01-01", "00:00", "0", Missing},
		{"2024-01-01", "00:00", "0", "1.5"},
	}, out.Rows)
}

func TestFrames_Empty(t *testing.T) {
	out := Frames()
	assert.Empty(t, out.Columns)
	assert.Empty(t, out.Rows)
}
