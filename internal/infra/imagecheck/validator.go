// Package imagecheck verifies that image URLs actually load.
package imagecheck

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds a single load check.
	DefaultTimeout = 5 * time.Second

	// sniffLen is how many bytes we read to identify the image format.
	sniffLen = 512
)

// Checker performs bounded HTTP load checks against image URLs. It is used
// only for untrusted lookup candidates, never for the feed's primary hint.
type Checker struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// CheckerOption is a functional option for configuring the checker.
type CheckerOption func(*Checker)

// WithTimeout sets the per-check timeout.
func WithTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		c.httpClient = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) CheckerOption {
	return func(c *Checker) {
		c.userAgent = ua
	}
}

// NewChecker creates a checker with the default 5 second timeout.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		userAgent:  "Airlog/1.0 (https://github.com/lakefm/airlog)",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsLoadable reports whether rawURL serves a real image within the timeout.
// Any failure — bad URL, timeout, non-2xx status, non-image payload — is
// simply "not loadable"; the resolution chain treats it as a miss and moves
// on.
func (c *Checker) IsLoadable(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("Image check request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debug().Int("status", resp.StatusCode).Str("url", rawURL).Msg("Image check non-2xx")
		return false
	}

	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		return true
	}

	// No image content type; sniff the first bytes instead.
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}

	return strings.HasPrefix(detectMimeType(buf[:n]), "image/")
}

// detectMimeType detects the MIME type from image data magic bytes.
func detectMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
		return "image/gif"
	case data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46:
		// RIFF header - could be WebP
		if len(data) >= 12 && data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
			return "image/webp"
		}
	}

	return "application/octet-stream"
}
