package trophies

import (
	"club_trophies/internal/table"
)

// Sheet names. Renaming them makes the stores create fresh sheets.
const (
	ClubSheet   = "Club Stats"
	MemberSheet = "Member Stats"
)

// LeftMarker fills a bucket cell for a member missing from that snapshot.
const LeftMarker = "Left"

var (
	ClubHeader   = []any{"Date", "Total Trophies", "Average Trophies", "Total Members"}
	MemberHeader = []any{"Member Name"}
)

// Workbook is the pair of history sheets a store loads and saves.
type Workbook struct {
	Club    *table.Grid
	Members *table.Grid
}

// NewWorkbook returns a workbook with both sheets headed and nothing else.
func NewWorkbook() *Workbook {
	wb := &Workbook{Club: table.New(), Members: table.New()}
	wb.EnsureHeaders()
	return wb
}

// EnsureHeaders writes the fixed header of any sheet whose first cell is
// empty. Existing headers are left alone.
func (wb *Workbook) EnsureHeaders() {
	if wb.Club == nil {
		wb.Club = table.New()
	}
	if wb.Members == nil {
		wb.Members = table.New()
	}
	writeHeader(wb.Club, ClubHeader)
	writeHeader(wb.Members, MemberHeader)
}

func writeHeader(g *table.Grid, header []any) {
	if g.Cell(1, 1) != nil {
		return
	}
	for i, v := range header {
		g.SetCell(1, i+1, v)
	}
}
