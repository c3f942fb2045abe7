package playlist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// CorrectionWindow is how far either side of a play's timestamp the
	// detector searches for the entry it might correct.
	CorrectionWindow = 5 * time.Minute

	// SimilarityThreshold is the minimum trigram score required on both the
	// artist and track fields for a fuzzy correction match.
	SimilarityThreshold = 0.7
)

// CandidateFinder supplies history entries near a timestamp. Implemented by
// the store; the detector does the matching itself so the store stays a dumb
// time-window query.
type CandidateFinder interface {
	FindCorrectionCandidates(ctx context.Context, playedAt time.Time, window time.Duration, excludeSourceID string) ([]PlayEntry, error)
}

// Detector finds the earlier entry that a newly captured play corrects.
// DJs occasionally re-submit a song to fix a typo in the artist or title;
// the feed then exposes both entries with different source IDs but nearly
// identical content and timestamps.
type Detector struct {
	finder CandidateFinder
}

// NewDetector creates a correction detector backed by the given finder.
func NewDetector(finder CandidateFinder) *Detector {
	return &Detector{finder: finder}
}

// Find returns the earliest entry within ±CorrectionWindow of playedAt whose
// artist and track match the input either exactly (case-insensitive) or with
// trigram similarity at or above the threshold on both fields. Returns nil
// when there is no match. A finder failure degrades to "no correction found"
// rather than aborting the caller's batch.
func (d *Detector) Find(ctx context.Context, artist, track string, playedAt time.Time, excludeSourceID string) *PlayEntry {
	candidates, err := d.finder.FindCorrectionCandidates(ctx, playedAt, CorrectionWindow, excludeSourceID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("artist", artist).
			Str("track", track).
			Msg("Correction candidate lookup failed")
		return nil
	}

	for i := range candidates {
		c := &candidates[i]
		if matchesCorrection(artist, track, c) {
			log.Info().
				Int64("originalId", c.ID).
				Str("originalSourceId", c.SourceID).
				Str("artist", artist).
				Str("track", track).
				Msg("Detected correction")
			return c
		}
	}

	return nil
}

// matchesCorrection reports whether candidate c plausibly describes the same
// on-air moment as (artist, track).
func matchesCorrection(artist, track string, c *PlayEntry) bool {
	if Normalize(c.Artist) == Normalize(artist) && Normalize(c.Track) == Normalize(track) {
		return true
	}

	return Similarity(c.Artist, artist) >= SimilarityThreshold &&
		Similarity(c.Track, track) >= SimilarityThreshold
}
