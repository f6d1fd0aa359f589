// Package trophies records club trophy snapshots into the two history
// sheets: an append-only club aggregate log and a weekly member table.
//
// Members are identified by display name. The game API offers no identity
// that survives a rename, so a renamed member shows up as one member
// leaving and another joining. When the member table already holds two rows
// with the same name, both rows receive that member's current trophies and
// each is compared against its own previous cell.
package trophies

import (
	"time"
)

// DateLayout is the format of bucket headers and club row dates.
const DateLayout = time.DateOnly

type ClubTotals struct {
	Tag           string
	Name          string
	TotalTrophies int
	MemberCount   int
}

type MemberTrophies struct {
	Name     string
	Tag      string
	Trophies int
}

// Snapshot is the club as fetched at Date. Members keep the order the API
// listed them in.
type Snapshot struct {
	Date    time.Time
	Club    ClubTotals
	Members []MemberTrophies
}

// Day returns the snapshot date formatted for the sheets.
func (s Snapshot) Day() string {
	return s.Date.Format(DateLayout)
}

// Lookup returns the trophies of the member with the given name.
func (s Snapshot) Lookup(name string) (int, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m.Trophies, true
		}
	}
	return 0, false
}

// AverageTrophies is TotalTrophies over MemberCount, 0 for an empty club.
func (c ClubTotals) AverageTrophies() float64 {
	if c.MemberCount == 0 {
		return 0
	}
	return float64(c.TotalTrophies) / float64(c.MemberCount)
}
