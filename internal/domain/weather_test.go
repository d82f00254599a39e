package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinates_AcceptsStringsAndNumbers(t *testing.T) {
	var coords Coordinates
	err := json.Unmarshal([]byte(`{
		"Moulins": {"lat": "46.5660526", "lon": "3.3331703"},
		"Annecy": {"lat": 45.8992348, "lon": 6.1288847}
	}`), &coords)
	require.NoError(t, err)

	assert.InDelta(t, 46.5660526, float64(coords["Moulins"].Lat), 1e-9)
	assert.InDelta(t, 3.3331703, float64(coords["Moulins"].Lon), 1e-9)
	assert.InDelta(t, 45.8992348, float64(coords["Annecy"].Lat), 1e-9)
}

func TestCoordinate_RejectsGarbage(t *testing.T) {
	var c Coordinate
	assert.Error(t, json.Unmarshal([]byte(`"north"`), &c))
}

func TestObservation_KeepsProviderFields(t *testing.T) {
	raw := `{"dt":1687867200,"temp":21.4,"weather":[{"main":"Clear"}]}`
	obs, err := NewObservation([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(1687867200), obs.Dt)

	out, err := json.Marshal(obs)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestObservation_MarshalWithoutRaw(t *testing.T) {
	out, err := json.Marshal(Observation{Dt: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dt":42}`, string(out))
}

func TestTable_LastDate(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	tbl := Table{Rows: []DailyRecord{{Date: d2}, {Date: d1}}}

	last, ok := tbl.LastDate()
	require.True(t, ok)
	assert.Equal(t, d2, last)

	_, ok = Table{}.LastDate()
	assert.False(t, ok)
}

func TestTruncateDay_UsesUTCCalendarDay(t *testing.T) {
	paris := time.FixedZone("CEST", 2*3600)
	d := TruncateDay(time.Date(2025, 7, 1, 1, 15, 0, 0, paris))

	assert.Equal(t, "2025-06-30", FormatDate(d))
	assert.Equal(t, time.UTC, d.Location())
}

func TestParseDate_AcceptsTimestampPrefix(t *testing.T) {
	d, err := ParseDate("2024-02-29 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestTable_LenOnReturnedValue(t *testing.T) {
	read := func() Table {
		return Table{Rows: []DailyRecord{{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}}
	}
	assert.Equal(t, 1, read().Len())
	assert.Equal(t, 0, Table{}.Len())
}
