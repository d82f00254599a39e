package bulletin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

const predictionFixture = `:Product: 3-Day Space Weather Predictions daypre.txt
:Issued: 2024 Jan 01 2200 UTC
# Prepared by the U.S. Dept. of Commerce, NOAA, Space Weather Prediction Center
#
#  3-Day Space Weather Predictions
#
:Prediction_dates:     2024 Jan 02  2024 Jan 03  2024 Jan 04
#
:Geomagnetic_A_indices:
A_Fredericksburg    8     6     4
A_Planetary        10     8     6
#
:Pred_Mid_k:
0000-0300   2.00  1.00  1.00
0300-0600   3.00  2.00  1.00
#
:Polar_cap:
1.0  1.0  1.0
#
:10cm_flux:
150   148   146
#
:Reg_Prob:
3536  10  10  5
`

func TestParsePrediction(t *testing.T) {
	table, err := ParsePrediction(predictionFixture)
	require.NoError(t, err)

	assert.Equal(t, []string{FieldAp, FieldKIndexPlanetary, FieldFlux10cm}, table.Columns)
	require.Equal(t, 3, table.Len())

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		date      time.Time
		ap, k, cm string
	}{
		{day(2), "9", "2.5", "150"},
		{day(3), "7", "1.5", "148"},
		{day(4), "5", "1", "146"},
	}
	for i, tt := range tests {
		row := table.Rows[i]
		assert.Equal(t, tt.date, row.Date)
		assert.Equal(t, tt.ap, row.Get(FieldAp))
		assert.Equal(t, tt.k, row.Get(FieldKIndexPlanetary))
		assert.Equal(t, tt.cm, row.Get(FieldFlux10cm))
		assert.NotContains(t, row.Values, "Polar_cap")
		assert.NotContains(t, row.Values, "Reg_Prob")
	}
}

func TestParsePrediction_MissingDates(t *testing.T) {
	_, err := ParsePrediction(":Product: daypre.txt\n:10cm_flux:\n150 148 146\n")
	assert.ErrorIs(t, err, domain.ErrMalformedBulletin)
}

func TestParsePrediction_BadDate(t *testing.T) {
	_, err := ParsePrediction(":Prediction_dates: 2024 Foo 02\n")
	assert.ErrorIs(t, err, domain.ErrMalformedBulletin)
}
