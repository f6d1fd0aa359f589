package trophies

import (
	"testing"
	"time"

	"club_trophies/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t.Add(15 * time.Hour)
}

func snapshotOn(date string, members ...MemberTrophies) Snapshot {
	total := 0
	for _, m := range members {
		total += m.Trophies
	}
	return Snapshot{
		Date:    day(date),
		Club:    ClubTotals{Tag: "#2QV8YL", Name: "Night Owls", TotalTrophies: total, MemberCount: len(members)},
		Members: members,
	}
}

func member(name string, trophies int) MemberTrophies {
	return MemberTrophies{Name: name, Trophies: trophies}
}

// history builds a member sheet with the given bucket headers and rows.
func history(buckets []string, rows ...[]any) *table.Grid {
	header := []any{"Member Name"}
	for _, b := range buckets {
		header = append(header, b)
	}
	return table.FromRows(append([][]any{header}, rows...))
}

func entryFor(t *testing.T, res WeeklyResult, name string) MemberEntry {
	t.Helper()
	for _, e := range res.Entries {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("no entry for %q in %+v", name, res.Entries)
	return MemberEntry{}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		delta       int
		hasPrevious bool
		want        Band
	}{
		{0, false, BandTop},
		{-500, false, BandTop},
		{320, true, BandTop},
		{300, true, BandTop},
		{299, true, BandMid},
		{250, true, BandMid},
		{225, true, BandMid},
		{224, true, BandLow},
		{200, true, BandLow},
		{0, true, BandLow},
		{-40, true, BandLow},
	}
	for _, tt := range tests {
		if got := Classify(tt.delta, tt.hasPrevious); got != tt.want {
			t.Errorf("Classify(%d, %v) = %v, want %v", tt.delta, tt.hasPrevious, got, tt.want)
		}
	}
}

func TestBandColor(t *testing.T) {
	assert.Equal(t, "00FF00", BandTop.Color())
	assert.Equal(t, "FFFF00", BandMid.Color())
	assert.Equal(t, "FF0000", BandLow.Color())
	assert.Equal(t, "", BandNone.Color())
}

func TestRecordClub(t *testing.T) {
	wb := NewWorkbook()
	snap := snapshotOn("2026-10-18", member("alice", 1000), member("bob", 2001))

	rec := RecordClub(wb.Club, snap)

	assert.Equal(t, 2, rec.Row)
	assert.Equal(t, []any{"2026-10-18", 3001, 1500.5, 2}, wb.Club.Rows()[1])

	second := RecordClub(wb.Club, snap)
	assert.Equal(t, 3, second.Row, "club rows are never deduplicated by date")
}

func TestRecordClubZeroMembers(t *testing.T) {
	wb := NewWorkbook()
	snap := Snapshot{Date: day("2026-10-18"), Club: ClubTotals{TotalTrophies: 500, MemberCount: 0}}

	rec := RecordClub(wb.Club, snap)

	if rec.AverageTrophies != 0 {
		t.Errorf("Expected average 0 for an empty club, got %v", rec.AverageTrophies)
	}
	assert.Equal(t, 0.0, wb.Club.Cell(2, 3))
}

func TestEnsureHeadersKeepsExisting(t *testing.T) {
	wb := &Workbook{Members: history([]string{"2026-10-04"}, []any{"alice", 10})}
	wb.EnsureHeaders()

	assert.Equal(t, "Member Name", wb.Members.Cell(1, 1))
	assert.Empty(t, wb.Members.DirtyCells())
	assert.Equal(t, ClubHeader, wb.Club.Rows()[0])
}

func TestReconcileFirstRun(t *testing.T) {
	wb := NewWorkbook()
	snap := snapshotOn("2026-10-18", member("alice", 1000), member("bob", 800))

	res := ReconcileWeek(wb.Members, snap)

	require.True(t, res.BucketCreated)
	assert.Equal(t, 2, res.Column)
	assert.Equal(t, "", res.PreviousBucket)
	assert.Equal(t, [][]any{
		{"Member Name", "2026-10-18"},
		{"alice", 1000},
		{"bob", 800},
	}, wb.Members.Rows())
	for _, e := range res.Entries {
		assert.Equal(t, StatusJoined, e.Status)
		assert.Equal(t, BandTop, e.Band)
	}
}

func TestReconcileGatedWithinWeek(t *testing.T) {
	sheet := history([]string{"2026-10-12"}, []any{"alice", 1000})
	before := sheet.Rows()

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1400), member("carol", 50)))

	assert.False(t, res.BucketCreated)
	assert.Equal(t, "2026-10-12", res.PreviousBucket)
	assert.Empty(t, res.Entries)
	assert.Equal(t, before, sheet.Rows())
	assert.Empty(t, sheet.DirtyCells())
}

func TestReconcileIdempotentSecondRun(t *testing.T) {
	sheet := history(nil)
	snap := snapshotOn("2026-10-18", member("alice", 1000))

	first := ReconcileWeek(sheet, snap)
	require.True(t, first.BucketCreated)
	afterFirst := sheet.Rows()
	sheet.MarkClean()

	second := ReconcileWeek(sheet, snap)
	assert.False(t, second.BucketCreated)
	assert.Equal(t, afterFirst, sheet.Rows())
	assert.Empty(t, sheet.DirtyCells())
}

func TestReconcileCreatesExactlyOneColumnAfterSevenDays(t *testing.T) {
	sheet := history([]string{"2026-10-04", "2026-10-11"}, []any{"alice", 900, 1000})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1100)))

	require.True(t, res.BucketCreated)
	assert.Equal(t, 4, sheet.MaxCol())
	assert.Equal(t, "2026-10-18", sheet.Cell(1, 4))
	assert.Equal(t, "2026-10-11", res.PreviousBucket)
}

func TestReconcileSixDaysIsNotDue(t *testing.T) {
	sheet := history([]string{"2026-10-12"}, []any{"alice", 1000})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1100)))
	assert.False(t, res.BucketCreated)

	res = ReconcileWeek(sheet, snapshotOn("2026-10-19", member("alice", 1100)))
	assert.True(t, res.BucketCreated)
}

func TestReconcileDeltaBands(t *testing.T) {
	sheet := history([]string{"2026-10-11"},
		[]any{"top", 1000},
		[]any{"mid", 1000},
		[]any{"low", 1000},
		[]any{"down", 1000},
	)
	snap := snapshotOn("2026-10-18",
		member("top", 1320),
		member("mid", 1250),
		member("low", 1200),
		member("down", 950),
	)

	res := ReconcileWeek(sheet, snap)

	tests := []struct {
		name  string
		delta int
		band  Band
	}{
		{"top", 320, BandTop},
		{"mid", 250, BandMid},
		{"low", 200, BandLow},
		{"down", -50, BandLow},
	}
	for _, tt := range tests {
		e := entryFor(t, res, tt.name)
		assert.Equal(t, StatusTracked, e.Status, tt.name)
		assert.Equal(t, tt.delta, e.Delta, tt.name)
		assert.Equal(t, tt.band, e.Band, tt.name)
		assert.Equal(t, 1000, e.Previous, tt.name)
	}
	assert.Equal(t, 1320, sheet.Cell(2, 3))
}

func TestReconcileReadsNumbersLoadedAsText(t *testing.T) {
	sheet := history([]string{"2026-10-11"}, []any{"alice", "1000"}, []any{"bob", float64(900)})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1300), member("bob", 1130)))

	assert.Equal(t, BandTop, entryFor(t, res, "alice").Band)
	assert.Equal(t, BandMid, entryFor(t, res, "bob").Band)
}

func TestReconcileMemberLeft(t *testing.T) {
	sheet := history([]string{"2026-10-11"}, []any{"alice", 1000}, []any{"bob", 700})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1100)))

	assert.Equal(t, LeftMarker, sheet.Cell(3, 3))
	bob := entryFor(t, res, "bob")
	assert.Equal(t, StatusLeft, bob.Status)
	assert.Equal(t, BandNone, bob.Band)
	assert.Equal(t, 1, res.Count(StatusLeft))
	assert.Equal(t, 3, sheet.MaxRow(), "rows are never removed")
}

func TestReconcileReturningMemberAfterLeft(t *testing.T) {
	sheet := history([]string{"2026-10-04", "2026-10-11"}, []any{"alice", 1000, LeftMarker})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1050)))

	alice := entryFor(t, res, "alice")
	assert.Equal(t, StatusFirstEntry, alice.Status)
	assert.False(t, alice.HasPrevious)
	assert.Equal(t, BandTop, alice.Band)
}

func TestReconcileNewMemberAppended(t *testing.T) {
	sheet := history([]string{"2026-10-04", "2026-10-11"}, []any{"alice", 900, 1000})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1100), member("dave", 400)))

	dave := entryFor(t, res, "dave")
	assert.Equal(t, StatusJoined, dave.Status)
	assert.Equal(t, BandTop, dave.Band)
	assert.Equal(t, 3, dave.Row)
	assert.Equal(t, []any{"dave", nil, nil, 400}, sheet.Rows()[2])
}

func TestReconcileNewMembersKeepSnapshotOrder(t *testing.T) {
	sheet := history(nil)

	ReconcileWeek(sheet, snapshotOn("2026-10-18", member("zed", 1), member("amy", 2), member("kim", 3)))

	assert.Equal(t, "zed", sheet.Cell(2, 1))
	assert.Equal(t, "amy", sheet.Cell(3, 1))
	assert.Equal(t, "kim", sheet.Cell(4, 1))
}

func TestReconcileMalformedHeaderForcesBucket(t *testing.T) {
	sheet := history([]string{"last week"}, []any{"alice", 1000})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1010)))

	require.True(t, res.BucketCreated)
	alice := entryFor(t, res, "alice")
	assert.False(t, alice.HasPrevious)
	assert.Equal(t, BandTop, alice.Band)
}

func TestReconcileDuplicateRowsNotDeduplicated(t *testing.T) {
	sheet := history([]string{"2026-10-11"}, []any{"sam", 1000}, []any{"sam", 500})

	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("sam", 1300)))

	assert.Equal(t, 3, sheet.MaxRow(), "no extra row for a name already present")
	assert.Equal(t, 1300, sheet.Cell(2, 3))
	assert.Equal(t, 1300, sheet.Cell(3, 3))
	assert.Len(t, res.Entries, 2)
}

func TestReconcileUnchangedRoundTripWithinWeek(t *testing.T) {
	sheet := history([]string{"2026-10-04", "2026-10-14"},
		[]any{"alice", 900, 1000},
		[]any{"bob", 500, 650},
		[]any{"carol", nil, 20},
	)
	rows, cols := sheet.MaxRow(), sheet.MaxCol()

	ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1000), member("bob", 650), member("carol", 20)))

	assert.Equal(t, rows, sheet.MaxRow())
	assert.Equal(t, cols, sheet.MaxCol())
	assert.Empty(t, sheet.DirtyCells())
}

func TestApplyBandFills(t *testing.T) {
	sheet := history([]string{"2026-10-11"}, []any{"alice", 1000}, []any{"bob", 700})
	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1250), member("eve", 10)))

	ApplyBandFills(sheet, res)

	assert.Equal(t, "FFFF00", sheet.Fill(2, 3))
	assert.Equal(t, "", sheet.Fill(3, 3), "left rows are never colored")
	assert.Equal(t, "00FF00", sheet.Fill(4, 3))
}

func TestApplyBandFillsSkipsGatedRun(t *testing.T) {
	sheet := history([]string{"2026-10-17"}, []any{"alice", 1000})
	res := ReconcileWeek(sheet, snapshotOn("2026-10-18", member("alice", 1250)))

	ApplyBandFills(sheet, res)

	assert.Empty(t, sheet.DirtyFills())
}

func TestSnapshotLookup(t *testing.T) {
	snap := snapshotOn("2026-10-18", member("alice", 1000))

	got, ok := snap.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, 1000, got)

	_, ok = snap.Lookup("Alice")
	assert.False(t, ok, "names match exactly")
}
