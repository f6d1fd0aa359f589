package trophies

import (
	"club_trophies/internal/table"

	"github.com/rs/zerolog/log"
)

// ClubRow is one line of the club sheet.
type ClubRow struct {
	Row             int
	Date            string
	TotalTrophies   int
	AverageTrophies float64
	TotalMembers    int
}

// RecordClub appends the snapshot's club totals to the club sheet. It never
// reads earlier rows, so running twice on one day yields two rows.
func RecordClub(sheet *table.Grid, snap Snapshot) ClubRow {
	rec := ClubRow{
		Date:            snap.Day(),
		TotalTrophies:   snap.Club.TotalTrophies,
		AverageTrophies: snap.Club.AverageTrophies(),
		TotalMembers:    snap.Club.MemberCount,
	}
	rec.Row = sheet.AppendRow(rec.Date, rec.TotalTrophies, rec.AverageTrophies, rec.TotalMembers)

	log.Debug().
		Int("row", rec.Row).
		Str("date", rec.Date).
		Int("total_trophies", rec.TotalTrophies).
		Float64("average_trophies", rec.AverageTrophies).
		Int("total_members", rec.TotalMembers).
		Msg("Recorded club totals")
	return rec
}
