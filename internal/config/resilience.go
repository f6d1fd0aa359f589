package config

import (
	"time"

	"club_trophies/internal/retry"
)

// ResilienceConfig holds retry profiles for the optional side channels. The
// game API fetch and the store save are never retried: a failed run leaves
// the previous workbook in place and the next scheduled run starts over.
type ResilienceConfig struct {
	Notification retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	Notification: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    10 * time.Second,
	},
}
