package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupEnvironment loads .env file and configures zerolog output and log level.
func setupEnvironment() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	production := os.Getenv("ENV") == "production"
	if production {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := os.Getenv("LOGLEVEL")
	level, ok := logLevel(levelStr, production)
	zerolog.SetGlobalLevel(level)
	if !ok {
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// logging is set up now, so the .env outcome can be reported
	if envErr == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// logLevel maps LOGLEVEL to a zerolog level. Unset means warn in production
// and info elsewhere; an unknown name falls back to info and reports false.
func logLevel(name string, production bool) (zerolog.Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		if production {
			return zerolog.WarnLevel, true
		}
		return zerolog.InfoLevel, true
	case "warning":
		name = "warn"
	}

	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return level, true
}
