package bulletin

import (
	"fmt"
	"strings"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// Section markers in order of appearance. The C marker carries a trailing
// space so the "UTC." that often precedes it in section B cannot match.
var markers = [6]string{"\nA.", "\nB.", "\nC. ", "\nD.", "\nE.", "\nF."}

// Sections holds the raw text of each lettered section, marker excluded.
type Sections struct {
	A, B, C, D, E, F string
}

// Split cuts a summary bulletin into its six sections by searching each
// marker after the previous one.
func Split(text string) (Sections, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var parts [6]string
	idx := strings.Index(text, markers[0])
	if idx < 0 {
		return Sections{}, fmt.Errorf("%w: section A marker not found", domain.ErrMalformedBulletin)
	}
	rest := text[idx+len(markers[0]):]

	for i := 1; i < len(markers); i++ {
		idx = strings.Index(rest, markers[i])
		if idx < 0 {
			return Sections{}, fmt.Errorf("%w: section %c marker not found", domain.ErrMalformedBulletin, 'A'+i)
		}
		parts[i-1] = rest[:idx]
		rest = rest[idx+len(markers[i]):]
	}
	parts[5] = rest

	return Sections{
		A: parts[0],
		B: parts[1],
		C: parts[2],
		D: parts[3],
		E: parts[4],
		F: parts[5],
	}, nil
}
