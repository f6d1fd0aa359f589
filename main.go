package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"club_trophies/internal/app"
	"club_trophies/internal/brawl"
	"club_trophies/internal/processing"

	"github.com/rs/zerolog/log"
)

func main() {
	log.Debug().Msg("Starting application")
	setupEnvironment()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	brawlClient := app.InitializeBrawlClient(cfg)
	deps, cleanup := initializeClients(ctx, cfg, brawlClient)
	defer cleanup()

	log.Info().Str("club_tag", cfg.ClubTag).Str("backend", cfg.StoreBackend).Msg("Updating club trophy history")

	callsBefore := brawlClient.GetAPICallCount()

	res, err := processing.Run(ctx, deps)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Str("category", errorCategory(err)).Msg("Run failed")
	}

	log.Info().
		Str("run_id", res.RunID.String()).
		Str("club", res.Snapshot.Club.Name).
		Int("members", res.Snapshot.Club.MemberCount).
		Bool("bucket_created", res.Weekly.BucketCreated).
		Int64("api_calls", brawlClient.GetAPICallCount()-callsBefore).
		Msg("Run complete")
}

// initializeClients wires the run's collaborators. The cleanup function
// closes the store and archive.
func initializeClients(ctx context.Context, cfg *app.Config, brawlClient *brawl.Client) (processing.Deps, func()) {
	log.Debug().Msg("Initializing clients")

	store, closeStore, err := app.InitializeStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create history store")
	}

	deps := processing.Deps{
		Source:   brawlClient,
		Store:    store,
		Notifier: app.InitializeNotificationClient(cfg),
		ClubTag:  cfg.ClubTag,
	}

	closers := []func() error{closeStore}
	archive, err := app.InitializeArchive(cfg)
	if err != nil {
		// optional; the run goes on without it
		log.Error().Err(err).Msg("Failed to open snapshot archive")
	} else if archive != nil {
		deps.Archive = archive
		closers = append(closers, archive.Close)
	}

	log.Debug().Msg("Clients initialized successfully")

	done := false
	return deps, func() {
		if done {
			return
		}
		done = true
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close resource")
			}
		}
	}
}

func errorCategory(err error) string {
	switch {
	case errors.Is(err, brawl.ErrMissingField):
		return "data-shape"
	case errors.Is(err, processing.ErrSource):
		return "source-unavailable"
	case errors.Is(err, processing.ErrStore):
		return "store-unavailable"
	default:
		return "unknown"
	}
}
