// Package artwork provides album art resolution with multi-source fallback.
package artwork

import (
	"context"
	"errors"
)

// Common errors
var (
	// ErrArtNotFound indicates no artwork was found (permanent failure)
	ErrArtNotFound = errors.New("artwork not found")

	// ErrTemporaryFailure indicates a temporary failure (should retry)
	ErrTemporaryFailure = errors.New("temporary failure")

	// ErrRateLimited indicates a lookup service rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
)

// Source indicates which step of the resolution chain produced a URL.
type Source string

const (
	SourceCache       Source = "cache"
	SourcePrimary     Source = "primary"
	SourceITunes      Source = "itunes"
	SourceMusicBrainz Source = "musicbrainz"
	SourcePool        Source = "pool"
	SourceBundled     Source = "bundled"
)

// ResolutionResult is the outcome of one resolution chain run. URL is always
// non-empty: the chain bottoms out at a bundled local asset.
type ResolutionResult struct {
	URL       string `json:"url"`
	Source    Source `json:"source"`
	PoolIndex int    `json:"poolIndex"` // index into the fallback pool, -1 otherwise
}

// Hints are the art URLs the feed's primary source supplied with a play.
type Hints struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// Best returns the largest non-empty hint URL.
func (h Hints) Best() string {
	switch {
	case h.Large != "":
		return h.Large
	case h.Medium != "":
		return h.Medium
	default:
		return h.Small
	}
}

// Candidate is one untrusted result from a lookup service. Candidates must
// pass fuzzy name matching and a URL load check before use.
type Candidate struct {
	ArtistName string
	AlbumName  string
	ImageURL   string
}

// LookupProvider searches an external catalog for album art by text.
type LookupProvider interface {
	Name() string
	SearchAlbumArt(ctx context.Context, artist, release string) ([]Candidate, error)
}

// Cache answers "have we already resolved art for this (artist, release)?".
// Backed by the play-history store; reads are case-insensitive.
type Cache interface {
	CachedArt(ctx context.Context, artist, release string) (string, error)
}

// URLChecker verifies that an image URL actually loads.
type URLChecker interface {
	IsLoadable(ctx context.Context, url string) bool
}

// IsPermanentError returns true if the error indicates a permanent failure.
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrArtNotFound)
}

// IsTemporaryError returns true if the error indicates a temporary failure.
func IsTemporaryError(err error) bool {
	return errors.Is(err, ErrTemporaryFailure) || errors.Is(err, ErrRateLimited)
}
