package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromRowsSkipsEmptyCells(t *testing.T) {
	g := FromRows([][]any{
		{"Member Name", "2026-10-04"},
		{"alice", 1000},
		{"", nil},
	})

	if g.MaxRow() != 2 {
		t.Errorf("Expected MaxRow 2, got %d", g.MaxRow())
	}
	if g.MaxCol() != 2 {
		t.Errorf("Expected MaxCol 2, got %d", g.MaxCol())
	}
	if len(g.DirtyCells()) != 0 {
		t.Errorf("Expected a freshly loaded grid to be clean, got %v", g.DirtyCells())
	}
}

func TestAppendRowAndColumn(t *testing.T) {
	g := New()
	g.SetCell(1, 1, "Member Name")

	col := g.AppendColumn("2026-10-18")
	assert.Equal(t, 2, col)

	row := g.AppendRow("bob", nil, 1200)
	assert.Equal(t, 2, row)
	assert.Equal(t, 3, g.MaxCol())
	assert.Nil(t, g.Cell(2, 2))
	assert.Equal(t, 1200, g.Cell(2, 3))

	assert.Equal(t, []Ref{{1, 1}, {1, 2}, {2, 1}, {2, 3}}, g.DirtyCells())

	g.MarkClean()
	assert.Empty(t, g.DirtyCells())
}

func TestSetCellEmptyClearsButKeepsBounds(t *testing.T) {
	g := FromRows([][]any{{"a", "b"}})
	g.SetCell(1, 2, "")

	assert.Nil(t, g.Cell(1, 2))
	assert.Equal(t, 2, g.MaxCol())
	assert.Equal(t, []Ref{{1, 2}}, g.DirtyCells())
}

func TestFillsTrackedSeparately(t *testing.T) {
	g := New()
	g.SetFill(3, 2, "00FF00")

	assert.Equal(t, "00FF00", g.Fill(3, 2))
	assert.Equal(t, "", g.Fill(2, 2))
	assert.Equal(t, []Ref{{3, 2}}, g.DirtyFills())
	assert.Empty(t, g.DirtyCells())
}

func TestRowsDense(t *testing.T) {
	g := New()
	g.SetCell(1, 1, "x")
	g.SetCell(3, 2, 5)

	rows := g.Rows()
	assert.Len(t, rows, 3)
	assert.Equal(t, []any{"x"}, rows[0])
	assert.Nil(t, rows[1])
	assert.Equal(t, []any{nil, 5}, rows[2])
}

func TestIntValue(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{1320, 1320, true},
		{int64(7), 7, true},
		{float64(1000), 1000, true},
		{1000.5, 0, false},
		{"1250", 1250, true},
		{" 300 ", 300, true},
		{"1200.0", 1200, true},
		{"Left", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := IntValue(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("IntValue(%#v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStringValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"alice", "alice"},
		{42, "42"},
		{float64(123), "123"},
		{12.5, "12.5"},
		{time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), "2026-10-18"},
	}
	for _, tt := range tests {
		if got := StringValue(tt.in); got != tt.want {
			t.Errorf("StringValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateValue(t *testing.T) {
	d, ok := DateValue("2026-10-11")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), d)

	d, ok = DateValue(time.Date(2026, 10, 11, 17, 30, 0, 0, time.Local))
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []any{"Member Name", "11/10/2026", 46000.0, nil} {
		if _, ok := DateValue(bad); ok {
			t.Errorf("Expected DateValue(%#v) to be absent", bad)
		}
	}
}

func TestCellName(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{1, 1, "A1"},
		{2, 26, "Z2"},
		{10, 27, "AA10"},
		{3, 52, "AZ3"},
		{1, 703, "AAA1"},
	}
	for _, tt := range tests {
		if got := CellName(tt.row, tt.col); got != tt.want {
			t.Errorf("CellName(%d, %d) = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
}
