// Package table holds the in-memory cell grid that the history stores load
// into and persist from. Rows and columns are 1-based, matching spreadsheet
// addressing. The grid tracks which cells and fills changed since it was
// loaded so backends only write what a run touched.
package table

import (
	"sort"
)

// Ref addresses a single cell.
type Ref struct {
	Row int
	Col int
}

// Name returns the A1-style name of the cell.
func (r Ref) Name() string {
	return CellName(r.Row, r.Col)
}

type Grid struct {
	cells      map[Ref]any
	fills      map[Ref]string
	dirtyCells map[Ref]struct{}
	dirtyFills map[Ref]struct{}
	maxRow     int
	maxCol     int
}

// New returns an empty grid.
func New() *Grid {
	return &Grid{
		cells:      make(map[Ref]any),
		fills:      make(map[Ref]string),
		dirtyCells: make(map[Ref]struct{}),
		dirtyFills: make(map[Ref]struct{}),
	}
}

// FromRows builds a clean grid from loaded rows. Empty values are skipped,
// so a row of blanks does not extend MaxRow.
func FromRows(rows [][]any) *Grid {
	g := New()
	for r, row := range rows {
		for c, v := range row {
			if isEmpty(v) {
				continue
			}
			g.put(Ref{Row: r + 1, Col: c + 1}, v)
		}
	}
	return g
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func (g *Grid) put(ref Ref, v any) {
	g.cells[ref] = v
	if ref.Row > g.maxRow {
		g.maxRow = ref.Row
	}
	if ref.Col > g.maxCol {
		g.maxCol = ref.Col
	}
}

// Cell returns the value at (row, col) or nil when the cell is empty.
func (g *Grid) Cell(row, col int) any {
	return g.cells[Ref{Row: row, Col: col}]
}

// SetCell writes v at (row, col). Writing nil or "" clears the cell but the
// grid never shrinks.
func (g *Grid) SetCell(row, col int, v any) {
	if row < 1 || col < 1 {
		panic("table: row and column are 1-based")
	}
	ref := Ref{Row: row, Col: col}
	if isEmpty(v) {
		delete(g.cells, ref)
	} else {
		g.put(ref, v)
	}
	g.dirtyCells[ref] = struct{}{}
}

// Fill returns the background color of a cell as a 6-digit RGB hex string,
// or "" when the cell has no fill.
func (g *Grid) Fill(row, col int) string {
	return g.fills[Ref{Row: row, Col: col}]
}

func (g *Grid) SetFill(row, col int, color string) {
	ref := Ref{Row: row, Col: col}
	g.fills[ref] = color
	g.dirtyFills[ref] = struct{}{}
}

// MaxRow is the highest row holding a value, 0 for an empty grid.
func (g *Grid) MaxRow() int { return g.maxRow }

// MaxCol is the highest column holding a value across all rows.
func (g *Grid) MaxCol() int { return g.maxCol }

// AppendRow writes values starting at column 1 of a new row below MaxRow
// and returns the new row number. Nil values leave their cell empty.
func (g *Grid) AppendRow(values ...any) int {
	row := g.maxRow + 1
	for i, v := range values {
		if v == nil {
			continue
		}
		g.SetCell(row, i+1, v)
	}
	if row > g.maxRow {
		g.maxRow = row
	}
	return row
}

// AppendColumn writes header into row 1 of a new column right of MaxCol and
// returns the new column number.
func (g *Grid) AppendColumn(header any) int {
	col := g.maxCol + 1
	g.SetCell(1, col, header)
	if col > g.maxCol {
		g.maxCol = col
	}
	return col
}

// DirtyCells returns the cells written since load or the last MarkClean,
// ordered by row then column.
func (g *Grid) DirtyCells() []Ref {
	return sortedRefs(g.dirtyCells)
}

// DirtyFills returns the cells whose fill changed, ordered by row then column.
func (g *Grid) DirtyFills() []Ref {
	return sortedRefs(g.dirtyFills)
}

// MarkClean forgets pending changes after a successful save.
func (g *Grid) MarkClean() {
	g.dirtyCells = make(map[Ref]struct{})
	g.dirtyFills = make(map[Ref]struct{})
}

// Rows returns a dense copy of the grid. Each row is trimmed after its last
// non-empty cell.
func (g *Grid) Rows() [][]any {
	rows := make([][]any, g.maxRow)
	for ref, v := range g.cells {
		row := rows[ref.Row-1]
		if len(row) < ref.Col {
			grown := make([]any, ref.Col)
			copy(grown, row)
			row = grown
		}
		row[ref.Col-1] = v
		rows[ref.Row-1] = row
	}
	return rows
}

func sortedRefs(set map[Ref]struct{}) []Ref {
	refs := make([]Ref, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Row != refs[j].Row {
			return refs[i].Row < refs[j].Row
		}
		return refs[i].Col < refs[j].Col
	})
	return refs
}
