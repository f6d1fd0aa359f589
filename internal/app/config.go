package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"club_trophies/internal/archive"
	"club_trophies/internal/brawl"
	"club_trophies/internal/config"
	"club_trophies/internal/notifications"
	"club_trophies/internal/processing"
	"club_trophies/internal/sheets"
	"club_trophies/internal/workbook"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	BackendXLSX   = "xlsx"
	BackendSheets = "sheets"
)

// Config is the tracker configuration. Values come from the TOML file named
// by CONFIG_FILE, if any, and are overridden by non-empty environment
// variables.
type Config struct {
	BrawlAPIKey       string       `toml:"brawl_api_key"`
	BrawlAPIURL       string       `toml:"brawl_api_url"`
	ClubTag           string       `toml:"club_tag"`
	StoreBackend      string       `toml:"store_backend"`
	WorkbookPath      string       `toml:"workbook_path"`
	SpreadsheetID     string       `toml:"spreadsheet_id"`
	GoogleCredentials string       `toml:"google_credentials"`
	ArchiveDB         string       `toml:"archive_db"`
	Ntfy              NtfySettings `toml:"ntfy"`
}

type NtfySettings struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Topic    string `toml:"topic"`
	Priority string `toml:"priority"`
}

func defaultConfig() Config {
	return Config{
		BrawlAPIURL:       brawl.DefaultBaseURL,
		StoreBackend:      BackendXLSX,
		WorkbookPath:      workbook.DefaultPath,
		GoogleCredentials: "credentials.json",
		Ntfy: NtfySettings{
			URL:      "https://ntfy.sh",
			Topic:    "club-trophies",
			Priority: "default",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional config
// file and the environment, then validates it.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	overrideFromEnv(&cfg.BrawlAPIKey, "BRAWL_API_KEY", "API_KEY")
	overrideFromEnv(&cfg.BrawlAPIURL, "BRAWL_API_URL")
	overrideFromEnv(&cfg.ClubTag, "CLUB_TAG")
	overrideFromEnv(&cfg.StoreBackend, "STORE_BACKEND")
	overrideFromEnv(&cfg.WorkbookPath, "WORKBOOK_PATH")
	overrideFromEnv(&cfg.SpreadsheetID, "SPREADSHEET_ID")
	overrideFromEnv(&cfg.GoogleCredentials, "GOOGLE_CREDENTIALS")
	overrideFromEnv(&cfg.ArchiveDB, "ARCHIVE_DB")
	overrideFromEnv(&cfg.Ntfy.URL, "NTFY_URL")
	overrideFromEnv(&cfg.Ntfy.Topic, "NTFY_TOPIC")
	overrideFromEnv(&cfg.Ntfy.Priority, "NTFY_PRIORITY")
	if v := os.Getenv("NTFY_ENABLED"); v != "" {
		cfg.Ntfy.Enabled = v == "true"
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv sets field from the first non-empty variable among keys.
func overrideFromEnv(field *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*field = v
			return
		}
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.BrawlAPIKey == "" {
		errs = append(errs, errors.New("BRAWL_API_KEY (or API_KEY) is required"))
	}
	if c.ClubTag == "" {
		errs = append(errs, errors.New("CLUB_TAG is required"))
	}
	switch c.StoreBackend {
	case BackendXLSX:
	case BackendSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the sheets backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	return errors.Join(errs...)
}

// InitializeBrawlClient creates the game API client.
func InitializeBrawlClient(cfg *Config) *brawl.Client {
	log.Debug().Str("base_url", cfg.BrawlAPIURL).Msg("Initializing Brawl Stars client")
	return brawl.NewClient(cfg.BrawlAPIURL, cfg.BrawlAPIKey)
}

// InitializeStore opens the configured history store. The returned close
// function releases it and is never nil.
func InitializeStore(ctx context.Context, cfg *Config) (processing.HistoryStore, func() error, error) {
	switch cfg.StoreBackend {
	case BackendSheets:
		log.Debug().
			Str("spreadsheet_id", cfg.SpreadsheetID).
			Str("credentials", cfg.GoogleCredentials).
			Msg("Initializing sheets store")
		client, err := sheets.NewClient(ctx, cfg.GoogleCredentials)
		if err != nil {
			return nil, nil, err
		}
		return sheets.NewStore(client, cfg.SpreadsheetID), func() error { return nil }, nil
	default:
		log.Debug().Str("path", cfg.WorkbookPath).Msg("Initializing workbook store")
		store := workbook.NewStore(cfg.WorkbookPath)
		return store, store.Close, nil
	}
}

// InitializeArchive opens the snapshot archive, or returns nil when none is
// configured.
func InitializeArchive(cfg *Config) (*archive.Archive, error) {
	if cfg.ArchiveDB == "" {
		log.Debug().Msg("Snapshot archive disabled")
		return nil, nil
	}
	a, err := archive.Open(cfg.ArchiveDB)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfg.ArchiveDB).Msg("Snapshot archive opened")
	return a, nil
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient(cfg *Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.Ntfy.Enabled).
		Str("base_url", cfg.Ntfy.URL).
		Str("topic", cfg.Ntfy.Topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(cfg.Ntfy.URL, cfg.Ntfy.Topic, cfg.Ntfy.Enabled, cfg.Ntfy.Priority,
		config.DefaultResilienceConfig.Notification)

	if cfg.Ntfy.Enabled {
		log.Info().Str("topic", cfg.Ntfy.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}
