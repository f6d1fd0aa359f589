package trophies

import (
	"time"

	"club_trophies/internal/table"

	"github.com/rs/zerolog/log"
)

// BucketIntervalDays is the minimum age of the last bucket before a new one
// is created.
const BucketIntervalDays = 7

type EntryStatus string

const (
	// StatusTracked: member had a value in the previous bucket.
	StatusTracked EntryStatus = "tracked"
	// StatusFirstEntry: existing row without a usable previous value.
	StatusFirstEntry EntryStatus = "first-entry"
	// StatusJoined: member got a new row this run.
	StatusJoined EntryStatus = "joined"
	// StatusLeft: existing row missing from the snapshot.
	StatusLeft EntryStatus = "left"
)

// MemberEntry is what the reconciler wrote for one member row.
type MemberEntry struct {
	Row         int
	Name        string
	Status      EntryStatus
	Trophies    int
	Previous    int
	HasPrevious bool
	Delta       int
	Band        Band
}

// WeeklyResult describes one reconciliation. When BucketCreated is false
// the member sheet was not touched.
type WeeklyResult struct {
	BucketCreated  bool
	BucketDate     string
	PreviousBucket string
	Column         int
	Entries        []MemberEntry
}

// Count returns how many entries have the given status.
func (r WeeklyResult) Count(status EntryStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// BandCounts tallies classified entries per band.
func (r WeeklyResult) BandCounts() map[Band]int {
	counts := make(map[Band]int)
	for _, e := range r.Entries {
		if e.Band != BandNone {
			counts[e.Band]++
		}
	}
	return counts
}

// LastBucket returns the date in the rightmost header cell of the member
// sheet. It is absent when the sheet has no bucket columns or the header is
// not a valid date.
func LastBucket(sheet *table.Grid) (time.Time, bool) {
	if sheet.MaxCol() < 2 {
		return time.Time{}, false
	}
	return table.DateValue(sheet.Cell(1, sheet.MaxCol()))
}

// BucketDue reports whether a new bucket should be created on today, given
// the last bucket date if there is one.
func BucketDue(last time.Time, hasLast bool, today time.Time) bool {
	if !hasLast {
		return true
	}
	return daysBetween(last, today) >= BucketIntervalDays
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// ReconcileWeek merges the snapshot into the member sheet if a new weekly
// bucket is due. Existing rows get their current trophies or the Left
// marker in the new column, then members without a row are appended in
// snapshot order.
func ReconcileWeek(sheet *table.Grid, snap Snapshot) WeeklyResult {
	today := snap.Day()
	last, hasLast := LastBucket(sheet)

	res := WeeklyResult{BucketDate: today}
	if hasLast {
		res.PreviousBucket = last.Format(DateLayout)
	}

	if !BucketDue(last, hasLast, snap.Date) {
		log.Info().
			Str("last_bucket", res.PreviousBucket).
			Str("today", today).
			Msg("Weekly bucket not due yet, member sheet unchanged")
		return res
	}

	lastRow := sheet.MaxRow()
	col := sheet.AppendColumn(today)
	res.BucketCreated = true
	res.Column = col

	log.Debug().
		Int("column", col).
		Str("bucket", today).
		Str("previous_bucket", res.PreviousBucket).
		Int("existing_rows", lastRow-1).
		Msg("Creating weekly bucket")

	known := make(map[string]bool, lastRow)
	for row := 2; row <= lastRow; row++ {
		name := table.StringValue(sheet.Cell(row, 1))
		known[name] = true

		trophies, present := snap.Lookup(name)
		if !present {
			sheet.SetCell(row, col, LeftMarker)
			res.Entries = append(res.Entries, MemberEntry{Row: row, Name: name, Status: StatusLeft})
			continue
		}

		entry := MemberEntry{Row: row, Name: name, Trophies: trophies, Status: StatusFirstEntry}
		if hasLast {
			entry.Previous, entry.HasPrevious = table.IntValue(sheet.Cell(row, col-1))
		}
		if entry.HasPrevious {
			entry.Status = StatusTracked
			entry.Delta = trophies - entry.Previous
		}
		entry.Band = Classify(entry.Delta, entry.HasPrevious)

		sheet.SetCell(row, col, trophies)
		res.Entries = append(res.Entries, entry)
	}

	for _, m := range snap.Members {
		if known[m.Name] {
			continue
		}
		known[m.Name] = true

		row := sheet.AppendRow(m.Name)
		sheet.SetCell(row, col, m.Trophies)
		res.Entries = append(res.Entries, MemberEntry{
			Row:      row,
			Name:     m.Name,
			Status:   StatusJoined,
			Trophies: m.Trophies,
			Band:     Classify(0, false),
		})
	}

	log.Info().
		Str("bucket", today).
		Int("tracked", res.Count(StatusTracked)).
		Int("first_entries", res.Count(StatusFirstEntry)).
		Int("joined", res.Count(StatusJoined)).
		Int("left", res.Count(StatusLeft)).
		Msg("Weekly bucket created")
	return res
}

// ApplyBandFills renders each classified entry of a created bucket as the
// background of its cell.
func ApplyBandFills(sheet *table.Grid, res WeeklyResult) {
	if !res.BucketCreated {
		return
	}
	for _, e := range res.Entries {
		if e.Band == BandNone {
			continue
		}
		sheet.SetFill(e.Row, res.Column, e.Band.Color())
	}
}
