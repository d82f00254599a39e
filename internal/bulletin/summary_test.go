package bulletin

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

const summaryFixture = `:Product: Daily Solar and Geophysical Report 20240101SGAS.txt
:Issued: 2024 Jan 01 0245 UTC
# Prepared jointly by the U.S. Dept. of Commerce, NOAA,
# Space Weather Prediction Center and the U.S. Air Force.
#
SGAS Number 001 Issued at 0245Z on 01 Jan 2024
This report is compiled from data received at SWO on 31 Dec
A.  Energetic Events
Begin  Max  End  Rgn   Loc   Xray  Op 245MHz 10cm   Sweep
 0735 0743 0748  3536 N05E43 C3.2  1f
 1012 1020 1031  3536 S12W10 M1.0  SF
B.  Proton Events: None
C.  Geomagnetic Activity Summary: The geomagnetic field was quiet
at all latitudes.
D.  Stratwarm: Not Available
E.  Daily Indices: (real-time preliminary/estimated values)
    10 cm 163  SSN 160  Afr/Ap 004/003   X-ray Background C1.2
    Daily Proton Fluence (flux accumulation over 24 hrs)
    GT 1 MeV 1.3e+05   GT 10 MeV 1.2e+04 p/(cm2-ster-day)
    (GOES-18 satellite synchronous orbit W137 degrees)
    Daily Electron Fluence
    GT 2 MeV 1.1e+07 e/(cm2-ster-day)
    (GOES-18 satellite synchronous orbit W137 degrees)
    3 Hour K-indices
    Boulder 1 1 1 1 1 1 1 1 Planetary 1 1 1 0 1 1 1 ?
F.  Comments: None.
`

var bulletinDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestParse_Summary(t *testing.T) {
	b, err := Parse(bulletinDate, summaryFixture)
	require.NoError(t, err)

	require.Len(t, b.Events, 2)
	assert.Equal(t, "0735", b.Events[0]["Begin"])
	assert.Equal(t, "N05E43", b.Events[0]["Loc"])
	assert.Equal(t, "C3.2", b.Events[0]["Xray"])
	assert.Equal(t, "1f", b.Events[0]["Op"])
	assert.Equal(t, "M1.0", b.Events[1]["Xray"])
	assert.Equal(t, "", b.Events[1]["Sweep"])

	assert.Equal(t, Note{Label: "Proton Events", Text: "None"}, b.Proton)
	assert.Equal(t, "The geomagnetic field was quiet at all latitudes.", b.Geomag.Text)
	assert.Equal(t, Note{Label: "Comments", Text: "None."}, b.Comment)

	want := Indices{
		Flux10cm:        163,
		SunspotNumber:   "160",
		Afr:             "004",
		Ap:              "003",
		XrayBackground:  "C1.2",
		ProtonGT1MeV:    "1.3e+05",
		ProtonGT10MeV:   "1.2e+04",
		ElectronGT2MeV:  "1.1e+07",
		KIndexBoulder:   1,
		KIndexPlanetary: 0.75,
	}
	if diff := cmp.Diff(want, b.Indices); diff != "" {
		t.Errorf("indices mismatch (-want +got):\n%s", diff)
	}
}

func TestBulletin_Record(t *testing.T) {
	b, err := Parse(bulletinDate, summaryFixture)
	require.NoError(t, err)

	rec := b.Record()
	assert.Equal(t, bulletinDate, rec.Date)
	assert.Equal(t, []string{
		FieldEventCount,
		"Proton Events",
		"Geomagnetic Activity Summary",
		FieldFlux10cm,
		FieldSunspotNumber,
		FieldAfr,
		FieldAp,
		FieldXrayBackground,
		FieldProtonGT1MeV,
		FieldProtonGT10MeV,
		FieldElectronGT2MeV,
		FieldKIndexBoulder,
		FieldKIndexPlanetary,
		"Comments",
	}, rec.Keys)
	assert.Equal(t, "2", rec.Get(FieldEventCount))
	assert.Equal(t, "163", rec.Get(FieldFlux10cm))
	assert.Equal(t, "0.75", rec.Get(FieldKIndexPlanetary))
	assert.Equal(t, "None", rec.Get("Proton Events"))
}

func TestParse_UnmeasuredValues(t *testing.T) {
	text := strings.NewReplacer(
		"10 cm 163  SSN 160", "10 cm ???  SSN ???",
		"GT 1 MeV 1.3e+05   GT 10 MeV 1.2e+04", "GT 1 MeV ?   GT 10 MeV n/a",
		"GT 2 MeV 1.1e+07", "GT 2 MeV ?",
		"Boulder 1 1 1 1 1 1 1 1 Planetary", "Boulder ? ? 2 2 ? ? ? ? Planetary",
	).Replace(summaryFixture)

	b, err := Parse(bulletinDate, text)
	require.NoError(t, err)

	assert.Zero(t, b.Indices.Flux10cm)
	assert.Equal(t, "???", b.Indices.SunspotNumber)
	assert.Equal(t, "?", b.Indices.ProtonGT1MeV)
	assert.Equal(t, "n/a", b.Indices.ProtonGT10MeV)
	assert.Equal(t, "?", b.Indices.ElectronGT2MeV)
	assert.InDelta(t, 0.5, b.Indices.KIndexBoulder, 1e-9)
	assert.InDelta(t, 0.75, b.Indices.KIndexPlanetary, 1e-9)

	rec := b.Record()
	assert.Equal(t, "0", rec.Get(FieldFlux10cm))
	assert.Equal(t, "0.5", rec.Get(FieldKIndexBoulder))
}

func TestParse_NoteKeepsTextAfterExtraColons(t *testing.T) {
	text := strings.Replace(summaryFixture, "F.  Comments: None.", "F.  Comments: Region 3536: produced flares", 1)

	b, err := Parse(bulletinDate, text)
	require.NoError(t, err)
	assert.Equal(t, Note{Label: "Comments", Text: "Region 3536  produced flares"}, b.Comment)
}

func TestParse_NoEvents(t *testing.T) {
	text := strings.Replace(summaryFixture,
		" 0735 0743 0748  3536 N05E43 C3.2  1f\n 1012 1020 1031  3536 S12W10 M1.0  SF\n", "", 1)

	b, err := Parse(bulletinDate, text)
	require.NoError(t, err)
	assert.Empty(t, b.Events)
	assert.Equal(t, "0", b.Record().Get(FieldEventCount))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing section C", strings.Replace(summaryFixture, "\nC.  Geomagnetic", "\nX.  Geomagnetic", 1)},
		{"C marker without trailing space", strings.Replace(summaryFixture, "\nC.  Geomagnetic", "\nC.Geomagnetic", 1)},
		{"missing section A", strings.Replace(summaryFixture, "\nA.  Energetic", "\nEnergetic", 1)},
		{"note without colon", strings.Replace(summaryFixture, "Proton Events: None", "Proton Events None", 1)},
		{"truncated section E", strings.Replace(summaryFixture, "    3 Hour K-indices\n", "", 1)},
		{"K line without planetary values", strings.Replace(summaryFixture, " Planetary ", " ", 1)},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(bulletinDate, tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedBulletin)
		})
	}
}

func TestSplit_CRLF(t *testing.T) {
	sec, err := Split(strings.ReplaceAll(summaryFixture, "\n", "\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "  Proton Events: None", sec.B)
	assert.Equal(t, "  Stratwarm: Not Available", sec.D)
}

func TestDecodeEvent_ShortLine(t *testing.T) {
	ev := decodeEvent(EventLayout, " 0735 0743")
	assert.Equal(t, "0735", ev["Begin"])
	assert.Equal(t, "0743", ev["Max"])
	assert.Equal(t, "", ev["End"])
	assert.Equal(t, "", ev["Sweep"])
	assert.Len(t, ev, len(EventLayout))
}
