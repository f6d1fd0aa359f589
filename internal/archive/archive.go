// Package archive keeps every fetched snapshot in a SQLite database, so the
// history can be queried beyond what the weekly sheet shows.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"club_trophies/internal/trophies"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Archive manages the snapshot database
type Archive struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Archive, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create archive directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	a := &Archive{db: db}
	if err := a.init(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// init creates the schema
func (a *Archive) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			fetched_at TEXT NOT NULL,
			club_tag TEXT NOT NULL,
			club_name TEXT NOT NULL,
			total_trophies INTEGER NOT NULL,
			member_count INTEGER NOT NULL,
			bucket_created INTEGER NOT NULL,
			bucket_date TEXT
		);

		CREATE TABLE IF NOT EXISTS member_snapshots (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			name TEXT NOT NULL,
			tag TEXT NOT NULL,
			trophies INTEGER NOT NULL,
			band TEXT NOT NULL,
			status TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_member_snapshots_run ON member_snapshots(run_id);
		CREATE INDEX IF NOT EXISTS idx_member_snapshots_name ON member_snapshots(name);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Record stores one run and the members of its snapshot in a single
// transaction. Band and status come from the weekly result when a bucket
// was created; otherwise they are empty.
func (a *Archive) Record(ctx context.Context, runID uuid.UUID, snap trophies.Snapshot, weekly trophies.WeeklyResult) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		bucketDate sql.NullString
		created    int
	)
	if weekly.BucketCreated {
		bucketDate = sql.NullString{String: weekly.BucketDate, Valid: true}
		created = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, fetched_at, club_tag, club_name, total_trophies, member_count, bucket_created, bucket_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID.String(),
		snap.Date.UTC().Format(time.RFC3339),
		snap.Club.Tag,
		snap.Club.Name,
		snap.Club.TotalTrophies,
		snap.Club.MemberCount,
		created,
		bucketDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	entries := make(map[string]trophies.MemberEntry, len(weekly.Entries))
	for _, e := range weekly.Entries {
		if _, seen := entries[e.Name]; !seen {
			entries[e.Name] = e
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO member_snapshots (run_id, name, tag, trophies, band, status)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare member insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range snap.Members {
		var band, status string
		if e, ok := entries[m.Name]; ok {
			status = string(e.Status)
			if e.Band != trophies.BandNone {
				band = e.Band.String()
			}
		}
		if _, err := stmt.ExecContext(ctx, runID.String(), m.Name, m.Tag, m.Trophies, band, status); err != nil {
			return fmt.Errorf("failed to insert member %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	log.Debug().
		Str("run_id", runID.String()).
		Int("members", len(snap.Members)).
		Msg("Archived snapshot")
	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
