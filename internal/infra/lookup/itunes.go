package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/domain/artwork"
)

const (
	// DefaultITunesBaseURL is the iTunes Search API base URL
	DefaultITunesBaseURL = "https://itunes.apple.com"

	// DefaultITunesUserAgent identifies us to the API
	DefaultITunesUserAgent = "Airlog/1.0 (https://github.com/lakefm/airlog)"

	// DefaultITunesTimeout for HTTP requests
	DefaultITunesTimeout = 10 * time.Second

	// DefaultITunesRateInterval spaces requests so we stay within Apple's
	// ~20/min allowance
	DefaultITunesRateInterval = 3 * time.Second

	// DefaultITunesResultLimit per search
	DefaultITunesResultLimit = 3
)

// ITunesClient searches the iTunes catalog for album art by artist + album
// text. Results are untrusted: callers gate them through fuzzy name matching
// and a URL load check.
type ITunesClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
}

// ITunesOption is a functional option for configuring the iTunes client.
type ITunesOption func(*ITunesClient)

// WithITunesBaseURL sets a custom base URL (useful for testing).
func WithITunesBaseURL(url string) ITunesOption {
	return func(c *ITunesClient) {
		c.baseURL = url
	}
}

// WithITunesUserAgent sets a custom User-Agent header.
func WithITunesUserAgent(ua string) ITunesOption {
	return func(c *ITunesClient) {
		c.userAgent = ua
	}
}

// WithITunesHTTPClient sets a custom HTTP client.
func WithITunesHTTPClient(client *http.Client) ITunesOption {
	return func(c *ITunesClient) {
		c.httpClient = client
	}
}

// NewITunesClient creates a new iTunes Search API client.
// No API key required.
func NewITunesClient(opts ...ITunesOption) *ITunesClient {
	c := &ITunesClient{
		baseURL:   DefaultITunesBaseURL,
		userAgent: DefaultITunesUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultITunesTimeout,
		},
		limiter: newIntervalLimiter(DefaultITunesRateInterval),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies this provider in the resolution chain.
func (c *ITunesClient) Name() string {
	return "itunes"
}

// iTunesSearchResponse represents an iTunes Search API response.
type iTunesSearchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []iTunesResult `json:"results"`
}

// iTunesResult represents one album from the iTunes Search API.
type iTunesResult struct {
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"` // 100x100; larger sizes by URL rewrite
}

// SearchAlbumArt queries the iTunes album catalog and returns candidate
// artwork, with URLs upgraded from the API's 100x100 thumbnails to 600x600.
func (c *ITunesClient) SearchAlbumArt(ctx context.Context, artist, release string) ([]artwork.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	searchURL := fmt.Sprintf("%s/search?term=%s&media=music&entity=album&limit=%d",
		c.baseURL, url.QueryEscape(artist+" "+release), DefaultITunesResultLimit)

	log.Debug().
		Str("artist", artist).
		Str("release", release).
		Str("url", searchURL).
		Msg("Searching iTunes for album art")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success
	case http.StatusForbidden, http.StatusTooManyRequests:
		log.Warn().Int("status", resp.StatusCode).Msg("iTunes rate limit exceeded")
		return nil, artwork.ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Int("status", resp.StatusCode).Msg("iTunes temporary error")
		return nil, artwork.ErrTemporaryFailure
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var searchResp iTunesSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	candidates := make([]artwork.Candidate, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		if r.ArtworkURL100 == "" {
			continue
		}
		candidates = append(candidates, artwork.Candidate{
			ArtistName: r.ArtistName,
			AlbumName:  r.CollectionName,
			ImageURL:   strings.Replace(r.ArtworkURL100, "100x100", "600x600", 1),
		})
	}

	if len(candidates) == 0 {
		log.Debug().
			Str("artist", artist).
			Str("release", release).
			Msg("No iTunes album art found")
		return nil, artwork.ErrArtNotFound
	}

	return candidates, nil
}
