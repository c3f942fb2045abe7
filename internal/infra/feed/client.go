package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout for a feed fetch.
	DefaultTimeout = 10 * time.Second

	// maxBodySize guards against a misbehaving upstream.
	maxBodySize = 4 << 20 // 4 MiB
)

// Client fetches the station playlist feed over HTTP.
type Client struct {
	feedURL    string
	userAgent  string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring the feed client.
type ClientOption func(*Client)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a feed client for the given playlist URL.
func NewClient(feedURL string, opts ...ClientOption) *Client {
	c := &Client{
		feedURL:   feedURL,
		userAgent: "Airlog/1.0 (https://github.com/lakefm/airlog)",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// rawPlaylist mirrors Playlist but defers entry decoding so each entry's
// original JSON object can be preserved alongside the parsed fields.
type rawPlaylist struct {
	Current json.RawMessage   `json:"nowPlaying"`
	Recent  []json.RawMessage `json:"recentlyPlayed"`
}

// Fetch retrieves and decodes the playlist. Individual entries that fail to
// decode are dropped with a warning rather than failing the whole fetch.
func (c *Client) Fetch(ctx context.Context) (*Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	var raw rawPlaylist
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	pl := &Playlist{}
	if len(raw.Current) > 0 && string(raw.Current) != "null" {
		if e, err := decodeEntry(raw.Current); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed now-playing entry")
		} else {
			pl.Current = e
		}
	}

	pl.Recent = make([]Entry, 0, len(raw.Recent))
	for i, msg := range raw.Recent {
		e, err := decodeEntry(msg)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Dropping malformed feed entry")
			continue
		}
		pl.Recent = append(pl.Recent, *e)
	}

	return pl, nil
}

func decodeEntry(msg json.RawMessage) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(msg, &e); err != nil {
		return nil, err
	}
	e.Raw = msg
	return &e, nil
}
