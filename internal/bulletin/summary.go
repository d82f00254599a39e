package bulletin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// Column names of the flattened daily record.
const (
	FieldEventCount      = "nb_event"
	FieldFlux10cm        = "10cm"
	FieldSunspotNumber   = "SSN"
	FieldAfr             = "Afr"
	FieldAp              = "Ap"
	FieldXrayBackground  = "Xray Bg"
	FieldProtonGT1MeV    = "Proton Fluence (GT1MeV)"
	FieldProtonGT10MeV   = "Proton Fluence (GT10MeV)"
	FieldElectronGT2MeV  = "Electron Fluence (GT2MeV)"
	FieldKIndexBoulder   = "K index Boulder"
	FieldKIndexPlanetary = "K index Planetary"
)

// Note is a labelled free-text section (B, C and F).
type Note struct {
	Label string
	Text  string
}

// Indices are the daily values of section E.
type Indices struct {
	Flux10cm        float64
	SunspotNumber   string
	Afr             string
	Ap              string
	XrayBackground  string
	ProtonGT1MeV    string
	ProtonGT10MeV   string
	ElectronGT2MeV  string
	KIndexBoulder   float64
	KIndexPlanetary float64
}

// Bulletin is a parsed daily solar and geophysical activity summary.
type Bulletin struct {
	Date    time.Time
	Events  []Event
	Proton  Note
	Geomag  Note
	Comment Note
	Indices Indices
}

// Parse decodes the summary bulletin issued for date.
func Parse(date time.Time, text string) (Bulletin, error) {
	sec, err := Split(text)
	if err != nil {
		return Bulletin{}, err
	}

	b := Bulletin{Date: domain.TruncateDay(date)}
	b.Events = parseEvents(sec.A)

	if b.Proton, err = parseNote(sec.B); err != nil {
		return Bulletin{}, fmt.Errorf("section B: %w", err)
	}
	if b.Geomag, err = parseNote(sec.C); err != nil {
		return Bulletin{}, fmt.Errorf("section C: %w", err)
	}
	if b.Indices, err = parseIndices(sec.E); err != nil {
		return Bulletin{}, fmt.Errorf("section E: %w", err)
	}
	if b.Comment, err = parseNote(sec.F); err != nil {
		return Bulletin{}, fmt.Errorf("section F: %w", err)
	}
	return b, nil
}

// Record flattens the bulletin into a single dated row.
func (b Bulletin) Record() domain.DailyRecord {
	r := domain.NewDailyRecord(b.Date)
	r.Set(FieldEventCount, strconv.Itoa(len(b.Events)))
	r.Set(b.Proton.Label, b.Proton.Text)
	r.Set(b.Geomag.Label, b.Geomag.Text)
	r.Set(FieldFlux10cm, formatFloat(b.Indices.Flux10cm))
	r.Set(FieldSunspotNumber, b.Indices.SunspotNumber)
	r.Set(FieldAfr, b.Indices.Afr)
	r.Set(FieldAp, b.Indices.Ap)
	r.Set(FieldXrayBackground, b.Indices.XrayBackground)
	r.Set(FieldProtonGT1MeV, b.Indices.ProtonGT1MeV)
	r.Set(FieldProtonGT10MeV, b.Indices.ProtonGT10MeV)
	r.Set(FieldElectronGT2MeV, b.Indices.ElectronGT2MeV)
	r.Set(FieldKIndexBoulder, formatFloat(b.Indices.KIndexBoulder))
	r.Set(FieldKIndexPlanetary, formatFloat(b.Indices.KIndexPlanetary))
	r.Set(b.Comment.Label, b.Comment.Text)
	return r
}

// parseEvents skips the section title and the column header, then decodes
// every remaining non-blank line.
func parseEvents(text string) []Event {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil
	}
	var events []Event
	headerSeen := false
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		events = append(events, decodeEvent(EventLayout, line))
	}
	return events
}

// parseNote splits on the first colon. Later colons become spaces.
func parseNote(text string) (Note, error) {
	joined := strings.Join(strings.Split(text, "\n"), " ")
	label, body, ok := strings.Cut(joined, ":")
	if !ok {
		return Note{}, fmt.Errorf("%w: no label separator", domain.ErrMalformedBulletin)
	}
	body = strings.ReplaceAll(body, ":", " ")
	return Note{Label: strings.TrimSpace(label), Text: strings.TrimSpace(body)}, nil
}

// Line offsets within section E, counted from the title line.
const (
	lineDaily    = 1
	lineProton   = 3
	lineElectron = 6
	lineKIndex   = 9
)

func parseIndices(text string) (Indices, error) {
	lines := strings.Split(text, "\n")
	if len(lines) <= lineKIndex {
		return Indices{}, fmt.Errorf("%w: expected %d lines, got %d", domain.ErrMalformedBulletin, lineKIndex+1, len(lines))
	}

	daily := strings.Fields(lines[lineDaily])
	if len(daily) < 10 {
		return Indices{}, fmt.Errorf("%w: daily indices line has %d tokens", domain.ErrMalformedBulletin, len(daily))
	}
	afr, ap, ok := strings.Cut(daily[6], "/")
	if !ok {
		return Indices{}, fmt.Errorf("%w: Afr/Ap value %q", domain.ErrMalformedBulletin, daily[6])
	}

	proton := strings.Fields(lines[lineProton])
	if len(proton) < 8 {
		return Indices{}, fmt.Errorf("%w: proton fluence line has %d tokens", domain.ErrMalformedBulletin, len(proton))
	}
	electron := strings.Fields(lines[lineElectron])
	if len(electron) < 4 {
		return Indices{}, fmt.Errorf("%w: electron fluence line has %d tokens", domain.ErrMalformedBulletin, len(electron))
	}

	boulder, planetary, ok := strings.Cut(lines[lineKIndex], "Planetary")
	if !ok {
		return Indices{}, fmt.Errorf("%w: K-index line lacks Planetary values", domain.ErrMalformedBulletin)
	}
	boulderTokens := strings.Fields(boulder)
	if len(boulderTokens) > 0 && boulderTokens[0] == "Boulder" {
		boulderTokens = boulderTokens[1:]
	}

	return Indices{
		Flux10cm:        parseNumber(daily[2]),
		SunspotNumber:   daily[4],
		Afr:             afr,
		Ap:              ap,
		XrayBackground:  strings.TrimLeft(daily[9], "B"),
		ProtonGT1MeV:    proton[3],
		ProtonGT10MeV:   proton[7],
		ElectronGT2MeV:  electron[3],
		KIndexBoulder:   mean(boulderTokens),
		KIndexPlanetary: mean(strings.Fields(planetary)),
	}, nil
}

// parseNumber reads a numeric token. "?" and other non-numeric values count as 0.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func mean(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += parseNumber(t)
	}
	return sum / float64(len(tokens))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
