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
	// DefaultMBBaseURL is the MusicBrainz API base URL
	DefaultMBBaseURL = "https://musicbrainz.org/ws/2"

	// DefaultCAABaseURL is the Cover Art Archive base URL
	DefaultCAABaseURL = "https://coverartarchive.org"

	// DefaultMBUserAgent follows MusicBrainz guidelines
	DefaultMBUserAgent = "Airlog/1.0 (https://github.com/lakefm/airlog)"

	// DefaultMBRateLimit is 1 request per second (MusicBrainz guideline)
	DefaultMBRateLimit = 1

	// DefaultMBTimeout for HTTP requests
	DefaultMBTimeout = 10 * time.Second

	// DefaultMBResultLimit per search
	DefaultMBResultLimit = 3
)

// MusicBrainzClient searches MusicBrainz releases by artist + album text and
// maps each hit to its Cover Art Archive front-cover URL. Like the iTunes
// client, its results are untrusted until gated by the caller.
type MusicBrainzClient struct {
	baseURL    string
	caaBaseURL string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
}

// MBOption is a functional option for configuring the MusicBrainz client.
type MBOption func(*MusicBrainzClient)

// WithMBBaseURL sets a custom API base URL (useful for testing).
func WithMBBaseURL(url string) MBOption {
	return func(c *MusicBrainzClient) {
		c.baseURL = url
	}
}

// WithCAABaseURL sets a custom Cover Art Archive base URL.
func WithCAABaseURL(url string) MBOption {
	return func(c *MusicBrainzClient) {
		c.caaBaseURL = url
	}
}

// WithMBUserAgent sets a custom User-Agent header.
func WithMBUserAgent(ua string) MBOption {
	return func(c *MusicBrainzClient) {
		c.userAgent = ua
	}
}

// WithMBHTTPClient sets a custom HTTP client.
func WithMBHTTPClient(client *http.Client) MBOption {
	return func(c *MusicBrainzClient) {
		c.httpClient = client
	}
}

// NewMusicBrainzClient creates a new MusicBrainz API client.
func NewMusicBrainzClient(opts ...MBOption) *MusicBrainzClient {
	c := &MusicBrainzClient{
		baseURL:    DefaultMBBaseURL,
		caaBaseURL: DefaultCAABaseURL,
		userAgent:  DefaultMBUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultMBTimeout,
		},
		limiter: newRateLimiter(DefaultMBRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies this provider in the resolution chain.
func (c *MusicBrainzClient) Name() string {
	return "musicbrainz"
}

// mbRelease represents a release from the MusicBrainz API.
type mbRelease struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Score        int    `json:"score"`
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
}

// mbSearchResponse represents the MusicBrainz release search response.
type mbSearchResponse struct {
	Releases []mbRelease `json:"releases"`
	Count    int         `json:"count"`
}

// SearchAlbumArt queries the MusicBrainz release index and returns one
// candidate per release, pointing at the Cover Art Archive front cover.
// Many releases have no cover in the archive, which is exactly why callers
// must load-check these URLs before trusting them.
func (c *MusicBrainzClient) SearchAlbumArt(ctx context.Context, artist, release string) ([]artwork.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	query := fmt.Sprintf(`artist:"%s" AND release:"%s"`, escapeQuery(artist), escapeQuery(release))
	reqURL := fmt.Sprintf("%s/release?query=%s&fmt=json&limit=%d",
		c.baseURL, url.QueryEscape(query), DefaultMBResultLimit)

	log.Debug().
		Str("artist", artist).
		Str("release", release).
		Str("url", reqURL).
		Msg("Searching MusicBrainz for release art")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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
	case http.StatusTooManyRequests:
		log.Warn().Msg("MusicBrainz rate limit exceeded")
		return nil, artwork.ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Int("status", resp.StatusCode).Msg("MusicBrainz temporary error")
		return nil, artwork.ErrTemporaryFailure
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var searchResp mbSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	candidates := make([]artwork.Candidate, 0, len(searchResp.Releases))
	for _, r := range searchResp.Releases {
		if r.ID == "" {
			continue
		}
		artistName := ""
		if len(r.ArtistCredit) > 0 {
			artistName = r.ArtistCredit[0].Name
		}
		candidates = append(candidates, artwork.Candidate{
			ArtistName: artistName,
			AlbumName:  r.Title,
			ImageURL:   fmt.Sprintf("%s/release/%s/front", c.caaBaseURL, r.ID),
		})
	}

	if len(candidates) == 0 {
		log.Debug().
			Str("artist", artist).
			Str("release", release).
			Msg("No MusicBrainz releases found")
		return nil, artwork.ErrArtNotFound
	}

	return candidates, nil
}

// escapeQuery escapes special characters in Lucene query.
func escapeQuery(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`+`, `\+`,
		`-`, `\-`,
		`!`, `\!`,
		`(`, `\(`,
		`)`, `\)`,
		`{`, `\{`,
		`}`, `\}`,
		`[`, `\[`,
		`]`, `\]`,
		`^`, `\^`,
		`~`, `\~`,
		`*`, `\*`,
		`?`, `\?`,
		`:`, `\:`,
		`/`, `\/`,
	)
	return replacer.Replace(s)
}
