package processing

import (
	"fmt"
	"time"

	"club_trophies/internal/brawl"
	"club_trophies/internal/trophies"

	"github.com/rs/zerolog/log"
)

// BuildSnapshot converts a validated club response into the snapshot the
// sheets are updated from. A name listed twice keeps its first position and
// takes the trophies of its last occurrence. The club member count is the
// length of the API's member list and counts such a name twice.
func BuildSnapshot(club *brawl.Club, now time.Time) (trophies.Snapshot, error) {
	if club == nil {
		return trophies.Snapshot{}, fmt.Errorf("no club data")
	}
	if err := club.Validate(); err != nil {
		return trophies.Snapshot{}, err
	}

	members := make([]trophies.MemberTrophies, 0, len(club.Members))
	index := make(map[string]int, len(club.Members))
	for _, m := range club.Members {
		entry := trophies.MemberTrophies{Name: m.Name, Tag: m.Tag, Trophies: *m.Trophies}
		if i, dup := index[m.Name]; dup {
			log.Warn().
				Str("member", m.Name).
				Str("first_tag", members[i].Tag).
				Str("second_tag", m.Tag).
				Msg("Member name listed twice, keeping the later entry")
			members[i] = entry
			continue
		}
		index[m.Name] = len(members)
		members = append(members, entry)
	}

	snap := trophies.Snapshot{
		Date: now,
		Club: trophies.ClubTotals{
			Tag:           club.Tag,
			Name:          club.Name,
			TotalTrophies: *club.Trophies,
			MemberCount:   len(club.Members),
		},
		Members: members,
	}

	log.Debug().
		Str("club_tag", snap.Club.Tag).
		Int("total_trophies", snap.Club.TotalTrophies).
		Int("members", len(snap.Members)).
		Str("date", snap.Day()).
		Msg("Built snapshot")
	return snap, nil
}
