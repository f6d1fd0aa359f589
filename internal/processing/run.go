// Package processing runs one fetch, reconcile and persist cycle.
package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club_trophies/internal/brawl"
	"club_trophies/internal/notifications"
	"club_trophies/internal/trophies"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSource marks failures to get a usable club snapshot.
	ErrSource = errors.New("club source unavailable")
	// ErrStore marks failures to load or save the history sheets.
	ErrStore = errors.New("history store unavailable")
)

type ClubFetcher interface {
	GetClub(ctx context.Context, tag string) (*brawl.Club, error)
}

type HistoryStore interface {
	Load(ctx context.Context) (*trophies.Workbook, error)
	Save(ctx context.Context, wb *trophies.Workbook) error
}

type Archiver interface {
	Record(ctx context.Context, runID uuid.UUID, snap trophies.Snapshot, weekly trophies.WeeklyResult) error
}

type Notifier interface {
	NotifyRun(ctx context.Context, summary notifications.RunSummary) error
}

// Deps are the collaborators of a run. Archive and Notifier may be nil.
type Deps struct {
	Source   ClubFetcher
	Store    HistoryStore
	Archive  Archiver
	Notifier Notifier
	ClubTag  string
	Now      func() time.Time
}

// Result describes a completed run.
type Result struct {
	RunID    uuid.UUID
	Snapshot trophies.Snapshot
	Club     trophies.ClubRow
	Weekly   trophies.WeeklyResult
}

// Run loads the history, fetches the club, records the club totals,
// reconciles the weekly bucket and saves. Nothing is saved unless the fetch
// produced a valid snapshot. Archive and notification failures are logged
// and do not fail the run.
func Run(ctx context.Context, deps Deps) (*Result, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	runID := uuid.New()
	logger := log.With().Str("run_id", runID.String()).Logger()

	logger.Debug().Str("club_tag", deps.ClubTag).Msg("Starting run")

	wb, err := deps.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load history: %w", ErrStore, err)
	}

	club, err := deps.Source.GetClub(ctx, deps.ClubTag)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch club: %w", ErrSource, err)
	}
	snap, err := BuildSnapshot(club, now())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build snapshot: %w", ErrSource, err)
	}

	res := &Result{RunID: runID, Snapshot: snap}
	res.Club = trophies.RecordClub(wb.Club, snap)
	res.Weekly = trophies.ReconcileWeek(wb.Members, snap)
	trophies.ApplyBandFills(wb.Members, res.Weekly)

	if err := deps.Store.Save(ctx, wb); err != nil {
		return nil, fmt.Errorf("%w: failed to save history: %w", ErrStore, err)
	}

	logger.Info().
		Str("club", snap.Club.Name).
		Int("total_trophies", snap.Club.TotalTrophies).
		Int("members", snap.Club.MemberCount).
		Bool("bucket_created", res.Weekly.BucketCreated).
		Str("bucket", res.Weekly.BucketDate).
		Msg("History updated")

	if deps.Archive != nil {
		if err := deps.Archive.Record(ctx, runID, snap, res.Weekly); err != nil {
			logger.Error().Err(err).Msg("Failed to archive snapshot")
		}
	}

	if deps.Notifier != nil {
		summary := notifications.RunSummary{
			ClubName:      snap.Club.Name,
			ClubTag:       snap.Club.Tag,
			TotalTrophies: snap.Club.TotalTrophies,
			MemberCount:   snap.Club.MemberCount,
			Weekly:        res.Weekly,
		}
		if err := deps.Notifier.NotifyRun(ctx, summary); err != nil {
			logger.Error().Err(err).Msg("Failed to send run notification")
		}
	}

	return res, nil
}
