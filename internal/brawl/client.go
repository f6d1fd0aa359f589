package brawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://api.brawlstars.com/v1"

// ErrMissingField is returned when a response lacks a field the tracker
// cannot do without.
var ErrMissingField = errors.New("missing field in API response")

type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	apiCallCount int64
	apiCallMutex sync.Mutex
}

type Member struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	NameColor string `json:"nameColor"`
	Role      string `json:"role"`
	Trophies  *int   `json:"trophies"`
}

type Club struct {
	Tag              string   `json:"tag"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Type             string   `json:"type"`
	BadgeID          int      `json:"badgeId"`
	RequiredTrophies int      `json:"requiredTrophies"`
	Trophies         *int     `json:"trophies"`
	Members          []Member `json:"members"`
}

// APIError is a non-2xx answer from the API. Reason and Message come from
// the error body when it could be decoded.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("API request failed with status %d: %s: %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// NormalizeTag upper-cases a club or player tag and makes sure it starts
// with '#'.
func NormalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag != "" && !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

// GetClub fetches a club with its member list.
func (c *Client) GetClub(ctx context.Context, tag string) (*Club, error) {
	tag = NormalizeTag(tag)
	endpoint := fmt.Sprintf("%s/clubs/%s", c.baseURL, url.PathEscape(tag))

	log.Debug().Str("club_tag", tag).Msg("Fetching club")

	var club Club
	if err := c.get(ctx, endpoint, &club); err != nil {
		return nil, err
	}
	if err := club.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("club_tag", club.Tag).
		Str("club_name", club.Name).
		Int("members", len(club.Members)).
		Msg("Retrieved club")
	return &club, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.IncrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("body_length", len(body)).
		Msg("Received API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		var reason struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &reason) == nil {
			apiErr.Reason = reason.Reason
			apiErr.Message = reason.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Validate checks the fields the tracker relies on. Absent trophy counts are
// errors rather than zeros.
func (c *Club) Validate() error {
	if c.Trophies == nil {
		return fmt.Errorf("club %s: trophies: %w", c.Tag, ErrMissingField)
	}
	if c.Members == nil {
		return fmt.Errorf("club %s: members: %w", c.Tag, ErrMissingField)
	}
	for i, m := range c.Members {
		if m.Name == "" {
			return fmt.Errorf("club %s: member %d name: %w", c.Tag, i, ErrMissingField)
		}
		if m.Trophies == nil {
			return fmt.Errorf("club %s: member %q trophies: %w", c.Tag, m.Name, ErrMissingField)
		}
	}
	return nil
}
