package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"club_trophies/internal/retry"
	"club_trophies/internal/trophies"

	"github.com/rs/zerolog/log"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config
}

// RunSummary is what a notification reports about one run.
type RunSummary struct {
	ClubName      string
	ClubTag       string
	TotalTrophies int
	MemberCount   int
	Weekly        trophies.WeeklyResult
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

// isRetryable is the retry classifier for delivery attempts.
func isRetryable(err error) bool {
	var notifErr *NotificationError
	if errors.As(err, &notifErr) {
		return notifErr.IsRetryable()
	}
	return true
}

func NewClient(baseURL, topic string, enabled bool, priority string, retryConfig retry.Config) *Client {
	retryConfig.Retryable = isRetryable
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
		retry:    retryConfig,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// SendNotification posts message to the topic, retrying transient failures.
func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.Enabled() {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	attempt := 0
	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		attempt++
		return struct{}{}, c.sendSingleNotification(ctx, message, attempt)
	})
	if err != nil {
		log.Warn().
			Err(err).
			Int("attempts", attempt).
			Msg("Notification delivery failed")
		return err
	}
	return nil
}

func (c *Client) sendSingleNotification(ctx context.Context, message string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "Club trophies")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &NotificationError{Type: "timeout", Underlying: err}
		}
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")
	return nil
}

// NotifyRun reports a run that created a weekly bucket. Runs gated by the
// weekly interval are not announced.
func (c *Client) NotifyRun(ctx context.Context, summary RunSummary) error {
	if !c.Enabled() {
		return nil
	}
	if !summary.Weekly.BucketCreated {
		log.Debug().Msg("No weekly bucket created, nothing to notify")
		return nil
	}

	log.Info().
		Str("bucket", summary.Weekly.BucketDate).
		Msg("Sending weekly summary notification")
	return c.SendNotification(ctx, FormatRunSummary(summary))
}

// FormatRunSummary renders the weekly summary as plain text.
func FormatRunSummary(summary RunSummary) string {
	var sb strings.Builder
	w := summary.Weekly
	bands := w.BandCounts()

	name := summary.ClubName
	if name == "" {
		name = summary.ClubTag
	}
	sb.WriteString(fmt.Sprintf("%s: weekly snapshot %s\n", name, w.BucketDate))
	sb.WriteString(fmt.Sprintf("Trophies: %d across %d members\n", summary.TotalTrophies, summary.MemberCount))
	if w.PreviousBucket != "" {
		sb.WriteString(fmt.Sprintf("Since %s: %d top, %d mid, %d low\n",
			w.PreviousBucket, bands[trophies.BandTop], bands[trophies.BandMid], bands[trophies.BandLow]))
	}

	joined := namesWith(w, trophies.StatusJoined)
	left := namesWith(w, trophies.StatusLeft)
	if len(joined) > 0 {
		sb.WriteString(fmt.Sprintf("Joined (%d): %s\n", len(joined), summarizeNames(joined)))
	}
	if len(left) > 0 {
		sb.WriteString(fmt.Sprintf("Left (%d): %s\n", len(left), summarizeNames(left)))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func namesWith(w trophies.WeeklyResult, status trophies.EntryStatus) []string {
	var names []string
	for _, e := range w.Entries {
		if e.Status == status {
			names = append(names, e.Name)
		}
	}
	return names
}

func summarizeNames(names []string) string {
	const maxNamesToShow = 10
	if len(names) <= maxNamesToShow {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s ... and %d more", strings.Join(names[:maxNamesToShow], ", "), len(names)-maxNamesToShow)
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}
