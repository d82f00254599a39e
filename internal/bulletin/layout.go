package bulletin

import "strings"

// Column is one fixed-width field of a section A event line. Start and End
// are byte offsets, End exclusive.
type Column struct {
	Name  string
	Start int
	End   int
}

// EventLayout describes the energetic-events table in section A of the
// daily summary bulletin. The offsets are shared by every event line.
var EventLayout = []Column{
	{Name: "Begin", Start: 1, End: 6},
	{Name: "Max", Start: 6, End: 11},
	{Name: "End", Start: 11, End: 17},
	{Name: "Rgn", Start: 17, End: 22},
	{Name: "Loc", Start: 22, End: 29},
	{Name: "Xray", Start: 29, End: 35},
	{Name: "Op", Start: 35, End: 38},
	{Name: "245MHz", Start: 38, End: 45},
	{Name: "10cm", Start: 45, End: 49},
	{Name: "Sweep", Start: 49, End: 68},
}

// Event is one decoded row of the energetic-events table, keyed by column name.
type Event map[string]string

// decodeEvent slices line according to layout. Lines shorter than a column's
// offsets yield empty values for that column.
func decodeEvent(layout []Column, line string) Event {
	ev := make(Event, len(layout))
	for _, col := range layout {
		ev[col.Name] = slice(line, col.Start, col.End)
	}
	return ev
}

func slice(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}
